package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lukyamuziB/lenken-backend/internal/logger"
	"github.com/lukyamuziB/lenken-backend/internal/requestdata"
	"github.com/lukyamuziB/lenken-backend/internal/services"
	"github.com/lukyamuziB/lenken-backend/internal/types"
)

type SessionHandler struct {
	log            *logger.Logger
	sessionService services.SessionService
}

func NewSessionHandler(log *logger.Logger, sessionService services.SessionService) *SessionHandler {
	return &SessionHandler{
		log:            log.With("handler", "SessionHandler"),
		sessionService: sessionService,
	}
}

func (h *SessionHandler) LogSession(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request_id", err)
		return
	}
	var input services.LogSessionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	session, err := h.sessionService.LogSession(c.Request.Context(), requestID, rd.UserID, input)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondCreated(c, gin.H{"session": session})
}

func (h *SessionHandler) Approve(c *gin.Context) {
	h.review(c, h.sessionService.ApproveSession)
}

func (h *SessionHandler) Reject(c *gin.Context) {
	h.review(c, h.sessionService.RejectSession)
}

func (h *SessionHandler) review(c *gin.Context, op func(ctx context.Context, sessionID, actorID uuid.UUID) (*types.Session, error)) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_session_id", err)
		return
	}
	session, err := op(c.Request.Context(), sessionID, rd.UserID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"session": session})
}

func (h *SessionHandler) SessionDates(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request_id", err)
		return
	}
	dates, err := h.sessionService.SessionDates(c.Request.Context(), requestID, time.Now())
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"session_dates": dates})
}

func (h *SessionHandler) SessionReport(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request_id", err)
		return
	}
	report, err := h.sessionService.SessionReport(c.Request.Context(), requestID, time.Now())
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"report": report})
}
