package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lukyamuziB/lenken-backend/internal/logger"
	"github.com/lukyamuziB/lenken-backend/internal/requestdata"
	"github.com/lukyamuziB/lenken-backend/internal/services"
	"github.com/lukyamuziB/lenken-backend/internal/types"
)

type RequestHandler struct {
	log            *logger.Logger
	requestService services.RequestService
}

func NewRequestHandler(log *logger.Logger, requestService services.RequestService) *RequestHandler {
	return &RequestHandler{
		log:            log.With("handler", "RequestHandler"),
		requestService: requestService,
	}
}

func (h *RequestHandler) Create(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var input services.CreateRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	req, err := h.requestService.Create(c.Request.Context(), rd.UserID, input)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondCreated(c, gin.H{"request": req})
}

func (h *RequestHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request_id", err)
		return
	}
	req, err := h.requestService.Get(c.Request.Context(), id)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"request": req})
}

// List filters by status (default open). With mine=true only requests the
// caller created or is a party to come back.
func (h *RequestHandler) List(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	status := types.RequestStatus(c.DefaultQuery("status", string(types.RequestStatusOpen)))
	var userID *uuid.UUID
	if c.Query("mine") == "true" {
		userID = &rd.UserID
	}
	requests, err := h.requestService.List(c.Request.Context(), status, userID)
	if err != nil {
		h.log.Error("List requests failed", "error", err, "user_id", rd.UserID)
		RespondError(c, http.StatusInternalServerError, "load_requests_failed", err)
		return
	}
	RespondOK(c, gin.H{"requests": requests})
}

func (h *RequestHandler) IndicateInterest(c *gin.Context) {
	h.mutateInterest(c, h.requestService.IndicateInterest)
}

func (h *RequestHandler) WithdrawInterest(c *gin.Context) {
	h.mutateInterest(c, h.requestService.WithdrawInterest)
}

func (h *RequestHandler) mutateInterest(c *gin.Context, op func(ctx context.Context, requestID, actorID uuid.UUID) (*types.MentorshipRequest, error)) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request_id", err)
		return
	}
	req, err := op(c.Request.Context(), id, rd.UserID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"request": req})
}

type matchRequest struct {
	MentorID uuid.UUID `json:"mentor_id"`
}

func (h *RequestHandler) Match(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request_id", err)
		return
	}
	var body matchRequest
	if err := c.ShouldBindJSON(&body); err != nil || body.MentorID == uuid.Nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	req, err := h.requestService.Match(c.Request.Context(), id, rd.UserID, body.MentorID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"request": req})
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *RequestHandler) Cancel(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request_id", err)
		return
	}
	var body cancelRequest
	_ = c.ShouldBindJSON(&body)
	req, err := h.requestService.Cancel(c.Request.Context(), id, rd.UserID, body.Reason, rd.IsAdmin)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"request": req})
}
