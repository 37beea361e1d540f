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

type SessionHandler struct {
	service service.SessionService
	log     *logger.Logger
}

func NewSessionHandler(service service.SessionService, log *logger.Logger) *SessionHandler {
	return &SessionHandler{service: service, log: log}
}

// @Summary Start an inbound roaming session
// @Description Create a session for an external driver charging at a local station. Idempotent on hubject_session_id.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param session body dto.CreateInboundSessionRequest true "Session start event"
// @Success 201 {object} dto.SessionResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /sessions/inbound [post]
func (h *SessionHandler) CreateInboundSession(c *gin.Context) {
	var req dto.CreateInboundSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreateInboundSession(c.Request.Context(), &req)
	if err != nil {
		h.log.Error("Failed to create inbound session", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// @Summary Close an inbound roaming session
// @Description Close an active inbound session from local telemetry and bill it under its frozen tariff
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param close body dto.CloseInboundSessionRequest true "Close event"
// @Success 200 {object} dto.SessionResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 422 {object} ierr.ErrorResponse
// @Router /sessions/inbound/{id}/close [post]
func (h *SessionHandler) CloseInboundSession(c *gin.Context) {
	var req dto.CloseInboundSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	req.SessionID = c.Param("id")

	resp, err := h.service.CloseInboundSession(c.Request.Context(), &req)
	if err != nil {
		h.log.Error("Failed to close inbound session", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Start an outbound roaming session
// @Description Create a session for a local driver charging at an external station and place a payment hold
// @Tags Sessions
// @Accept json
// @Produce json
// @Param session body dto.CreateOutboundSessionRequest true "Session start event"
// @Success 201 {object} dto.SessionResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /sessions/outbound [post]
func (h *SessionHandler) CreateOutboundSession(c *gin.Context) {
	var req dto.CreateOutboundSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreateOutboundSession(c.Request.Context(), &req)
	if err != nil {
		h.log.Error("Failed to create outbound session", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// @Summary Close an outbound roaming session
// @Description Close an active outbound session from its CDR and capture the payment hold
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param close body dto.CloseOutboundSessionRequest true "Close event with CDR"
// @Success 200 {object} dto.SessionResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 422 {object} ierr.ErrorResponse
// @Router /sessions/outbound/{id}/close [post]
func (h *SessionHandler) CloseOutboundSession(c *gin.Context) {
	var req dto.CloseOutboundSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	req.SessionID = c.Param("id")

	resp, err := h.service.CloseOutboundSession(c.Request.Context(), &req)
	if err != nil {
		h.log.Error("Failed to close outbound session", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Get a session
// @Description Get a charging session by ID
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} dto.SessionResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /sessions/{id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	resp, err := h.service.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary List sessions
// @Description List charging sessions of the workspace with optional filtering
// @Tags Sessions
// @Produce json
// @Param filter query types.ChargingSessionFilter false "Filter"
// @Success 200 {object} dto.ListSessionsResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /sessions [get]
func (h *SessionHandler) ListSessions(c *gin.Context) {
	var filter types.ChargingSessionFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ListSessions(c.Request.Context(), &filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
