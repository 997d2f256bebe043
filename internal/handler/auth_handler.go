package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/evoting/internal/middleware"
	appErr "github.com/xxxsen/evoting/internal/pkg/errors"
	"github.com/xxxsen/evoting/internal/pkg/response"
	"github.com/xxxsen/evoting/internal/service"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type resendRequest struct {
	Email string `json:"email"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req credentialsRequest
	if !bindJSON(c, &req) {
		return
	}
	voter, err := h.auth.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, gin.H{
		"email":                 voter.Email,
		"verification_required": true,
	})
}

func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req verifyRequest
	if !bindJSON(c, &req) {
		return
	}
	token, voter, err := h.auth.VerifyCode(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"token": token, "user": voter})
}

func (h *AuthHandler) ResendOTP(c *gin.Context) {
	var req resendRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.auth.ResendCode(c.Request.Context(), req.Email); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"sent": true})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if !bindJSON(c, &req) {
		return
	}
	token, voter, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"token": token, "user": voter})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	sess := middleware.SessionFrom(c)
	if sess == nil {
		handleError(c, appErr.ErrUnauthorized)
		return
	}
	if err := h.auth.Logout(c.Request.Context(), sess); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *AuthHandler) Profile(c *gin.Context) {
	voter, err := h.auth.Profile(c.Request.Context(), getVoterID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, voter)
}
