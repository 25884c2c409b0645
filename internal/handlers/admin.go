package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medconnecthq/medconnect/internal/services"
	"github.com/medconnecthq/medconnect/pkg/response"
)

// AdminHandler manages administrator login and review listings.
type AdminHandler struct {
	identity *services.IdentityService
	profiles *services.ProfileService
}

// NewAdminHandler configures an admin handler with required services.
func NewAdminHandler(identity *services.IdentityService, profiles *services.ProfileService) *AdminHandler {
	return &AdminHandler{identity: identity, profiles: profiles}
}

type adminLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// POST /api/admin/login
func (h *AdminHandler) Login(c *gin.Context) {
	var req adminLoginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	token, err := h.identity.LoginAdmin(requestContext(c), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, tokenResponse{Token: token})
}

// GET /api/admin/doctors/pending
func (h *AdminHandler) ListPendingDoctors(c *gin.Context) {
	limit := parseIntQuery(c, "limit", 0)

	doctors, err := h.profiles.ListPendingDoctors(requestContext(c), limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, doctors)
}
