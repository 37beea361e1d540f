package v1

import (
	"net/http"

	"github.com/voltbridge/voltbridge/internal/api/dto"
	ierr "github.com/voltbridge/voltbridge/internal/errors"
	"github.com/voltbridge/voltbridge/internal/logger"
	"github.com/voltbridge/voltbridge/internal/service"
	"github.com/voltbridge/voltbridge/internal/types"
	"github.com/gin-gonic/gin"
)

type PayoutHandler struct {
	service service.PayoutService
	log     *logger.Logger
}

func NewPayoutHandler(service service.PayoutService, log *logger.Logger) *PayoutHandler {
	return &PayoutHandler{service: service, log: log}
}

// @Summary Generate a payout statement
// @Description Aggregate eligible sessions of the period into a statement; dry_run previews without writing
// @Tags Payouts
// @Accept json
// @Produce json
// @Param request body dto.GeneratePayoutStatementRequest true "Generation request"
// @Success 200 {object} dto.GeneratePayoutStatementResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 422 {object} ierr.ErrorResponse
// @Router /payouts/generate [post]
func (h *PayoutHandler) GeneratePayoutStatement(c *gin.Context) {
	var req dto.GeneratePayoutStatementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.GeneratePayoutStatement(c.Request.Context(), &req)
	if err != nil {
		h.log.Error("Failed to generate payout statement", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Recalculate a draft statement
// @Description Resum the statement totals from its existing line items
// @Tags Payouts
// @Produce json
// @Param id path string true "Statement ID"
// @Success 200 {object} dto.PayoutStatementResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 422 {object} ierr.ErrorResponse
// @Router /payouts/{id}/recalculate [post]
func (h *PayoutHandler) RecalculatePayoutStatement(c *gin.Context) {
	resp, err := h.service.RecalculatePayoutStatement(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.log.Error("Failed to recalculate payout statement", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Issue a statement
// @Description Transition a DRAFT statement to ISSUED, freezing its line items
// @Tags Payouts
// @Produce json
// @Param id path string true "Statement ID"
// @Success 200 {object} dto.PayoutStatementResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 422 {object} ierr.ErrorResponse
// @Router /payouts/{id}/issue [post]
func (h *PayoutHandler) IssuePayoutStatement(c *gin.Context) {
	resp, err := h.service.IssuePayoutStatement(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.log.Error("Failed to issue payout statement", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Mark a statement paid
// @Description Record the bank payment of an ISSUED statement
// @Tags Payouts
// @Accept json
// @Produce json
// @Param id path string true "Statement ID"
// @Param payment body dto.MarkPayoutPaidRequest true "Payment details"
// @Success 200 {object} dto.PayoutStatementResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 422 {object} ierr.ErrorResponse
// @Router /payouts/{id}/pay [post]
func (h *PayoutHandler) MarkPayoutPaid(c *gin.Context) {
	var req dto.MarkPayoutPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.MarkPayoutPaid(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.log.Error("Failed to mark payout statement paid", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Cancel a statement
// @Description Cancel a DRAFT or ISSUED statement and release its session claims
// @Tags Payouts
// @Produce json
// @Param id path string true "Statement ID"
// @Success 200 {object} dto.PayoutStatementResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 422 {object} ierr.ErrorResponse
// @Router /payouts/{id}/cancel [post]
func (h *PayoutHandler) CancelPayoutStatement(c *gin.Context) {
	resp, err := h.service.CancelPayoutStatement(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.log.Error("Failed to cancel payout statement", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Get a statement
// @Description Get a payout statement by ID, line items included
// @Tags Payouts
// @Produce json
// @Param id path string true "Statement ID"
// @Success 200 {object} dto.PayoutStatementResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /payouts/{id} [get]
func (h *PayoutHandler) GetPayoutStatement(c *gin.Context) {
	resp, err := h.service.GetPayoutStatement(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary List statements
// @Description List payout statements of the workspace with optional filtering
// @Tags Payouts
// @Produce json
// @Param filter query types.PayoutStatementFilter false "Filter"
// @Success 200 {object} dto.ListPayoutStatementsResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /payouts [get]
func (h *PayoutHandler) ListPayoutStatements(c *gin.Context) {
	var filter types.PayoutStatementFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.GetPayoutStatements(c.Request.Context(), &filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
