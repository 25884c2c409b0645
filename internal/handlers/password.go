package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medconnecthq/medconnect/internal/models"
	"github.com/medconnecthq/medconnect/internal/services"
	"github.com/medconnecthq/medconnect/pkg/response"
)

// PasswordHandler manages the patient password recovery flow.
type PasswordHandler struct {
	resets *services.PasswordResetService
}

// NewPasswordHandler configures a password handler with required services.
func NewPasswordHandler(resets *services.PasswordResetService) *PasswordHandler {
	return &PasswordHandler{resets: resets}
}

type forgotPasswordRequest struct {
	Identifier string `json:"identifier" validate:"required"`
}

type verifyResetRequest struct {
	Token string `json:"token" validate:"required"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// POST /api/password/forgot-password
func (h *PasswordHandler) Forgot(c *gin.Context) {
	var req forgotPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.resets.Request(requestContext(c), models.KindPatient, req.Identifier); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "reset token sent"})
}

// POST /api/password/verify-otp
func (h *PasswordHandler) VerifyToken(c *gin.Context) {
	var req verifyResetRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.resets.Verify(requestContext(c), req.Token); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"valid": true})
}

// POST /api/password/reset-password
func (h *PasswordHandler) Reset(c *gin.Context) {
	var req resetPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.resets.Consume(requestContext(c), req.Token, req.Password); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "password updated"})
}
