package v1

import (
	"net/http"

	"github.com/voltbridge/voltbridge/internal/api/dto"
	ierr "github.com/voltbridge/voltbridge/internal/errors"
	"github.com/voltbridge/voltbridge/internal/logger"
	"github.com/voltbridge/voltbridge/internal/service"
	"github.com/gin-gonic/gin"
)

type SettlementHandler struct {
	clearing service.ClearingService
	sessions service.SessionService
	log      *logger.Logger
}

func NewSettlementHandler(clearing service.ClearingService, sessions service.SessionService, log *logger.Logger) *SettlementHandler {
	return &SettlementHandler{clearing: clearing, sessions: sessions, log: log}
}

// @Summary Reconcile a settlement
// @Description Verify a clearinghouse settlement against a known session and settle or dispute it
// @Tags Settlements
// @Accept json
// @Produce json
// @Param settlement body dto.ReconcileSettlementRequest true "Settlement envelope"
// @Success 200 {object} dto.SettlementResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Failure 422 {object} ierr.ErrorResponse
// @Router /settlements/reconcile [post]
func (h *SettlementHandler) ReconcileSettlement(c *gin.Context) {
	var req dto.ReconcileSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.clearing.ReconcileSettlement(c.Request.Context(), &req)
	if err != nil {
		h.log.Error("Failed to reconcile settlement", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Match a CDR by roaming session id
// @Description Locate the session by its roaming counterpart id and reconcile the CDR against it
// @Tags Settlements
// @Accept json
// @Produce json
// @Param cdr body dto.MatchCdrRequest true "Charge detail record"
// @Success 200 {object} dto.SettlementResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 422 {object} ierr.ErrorResponse
// @Router /settlements/match [post]
func (h *SettlementHandler) MatchCdr(c *gin.Context) {
	var req dto.MatchCdrRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.sessions.MatchCdrWithSession(c.Request.Context(), &req)
	if err != nil {
		h.log.Error("Failed to match CDR", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
