package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medconnecthq/medconnect/internal/models"
	"github.com/medconnecthq/medconnect/internal/services"
	"github.com/medconnecthq/medconnect/pkg/response"
)

// AuthHandler manages the patient credential flows (register/login/verify).
type AuthHandler struct {
	identity *services.IdentityService
}

// NewAuthHandler configures an auth handler with required services.
func NewAuthHandler(identity *services.IdentityService) *AuthHandler {
	return &AuthHandler{identity: identity}
}

type registerPatientRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type verifyAccountRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Code       string `json:"code" validate:"required,len=6"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerPatientRequest
	if !bindAndValidate(c, &req) {
		return
	}

	patient, err := h.identity.RegisterPatient(requestContext(c), services.RegisterPatientInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, patient)
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	token, err := h.identity.Login(requestContext(c), models.KindPatient, req.Identifier, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, tokenResponse{Token: token})
}

// POST /api/auth/verify
func (h *AuthHandler) Verify(c *gin.Context) {
	var req verifyAccountRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.identity.VerifyAccount(requestContext(c), models.KindPatient, req.Identifier, req.Code); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "account verified"})
}
