package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lukyamuziB/lenken-backend/internal/logger"
	"github.com/lukyamuziB/lenken-backend/internal/services"
	"github.com/lukyamuziB/lenken-backend/internal/types"
)

type AuthHandler struct {
	log         *logger.Logger
	authService services.AuthService
}

func NewAuthHandler(log *logger.Logger, authService services.AuthService) *AuthHandler {
	return &AuthHandler{
		log:         log.With("handler", "AuthHandler"),
		authService: authService,
	}
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	SlackHandle string `json:"slack_handle"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var body registerRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	user := &types.User{
		Email:       body.Email,
		Password:    body.Password,
		FirstName:   body.FirstName,
		LastName:    body.LastName,
		SlackHandle: body.SlackHandle,
	}
	if err := h.authService.Register(c.Request.Context(), user); err != nil {
		RespondAppError(c, err)
		return
	}
	user.Password = ""
	RespondCreated(c, gin.H{"user": user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	token, err := h.authService.Login(c.Request.Context(), body.Email, body.Password)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "invalid_credentials", err)
		return
	}
	RespondOK(c, gin.H{"access_token": token})
}
