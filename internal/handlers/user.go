package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medconnecthq/medconnect/internal/middleware"
	"github.com/medconnecthq/medconnect/internal/models"
	"github.com/medconnecthq/medconnect/internal/services"
	"github.com/medconnecthq/medconnect/internal/storage"
	appErrors "github.com/medconnecthq/medconnect/pkg/errors"
	"github.com/medconnecthq/medconnect/pkg/response"
)

// UserHandler exposes the authenticated account's profile and contact-change
// endpoints. The routes serve patients and doctors alike; the account kind is
// derived from the token role.
type UserHandler struct {
	identity *services.IdentityService
	profiles *services.ProfileService
	store    storage.FileStore
}

// NewUserHandler configures a user handler with required services.
func NewUserHandler(identity *services.IdentityService, profiles *services.ProfileService, store storage.FileStore) *UserHandler {
	return &UserHandler{identity: identity, profiles: profiles, store: store}
}

// GET /api/user
func (h *UserHandler) Get(c *gin.Context) {
	userID, kind, ok := currentAccount(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	ctx := requestContext(c)
	switch kind {
	case models.KindPatient:
		patient, err := h.profiles.GetPatient(ctx, userID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, http.StatusOK, patient)
	case models.KindDoctor:
		doctor, err := h.profiles.GetDoctor(ctx, userID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, http.StatusOK, doctor)
	default:
		response.Error(c, appErrors.ErrForbidden)
	}
}

type updatePatientRequest struct {
	Name *string `json:"name" validate:"omitempty,max=120"`
}

// PUT /api/user
//
// Accepts JSON, or multipart/form-data when an avatar file accompanies the
// field updates.
func (h *UserHandler) Update(c *gin.Context) {
	userID, kind, ok := currentAccount(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if kind != models.KindPatient {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	input := services.UpdatePatientInput{}
	if isMultipart(c) {
		input.Name = formValue(c, "name")

		avatarURL, err := h.saveAvatar(c)
		if err != nil {
			response.Error(c, err)
			return
		}
		input.Avatar = avatarURL
	} else {
		var req updatePatientRequest
		if !bindAndValidate(c, &req) {
			return
		}
		input.Name = req.Name
	}

	patient, err := h.profiles.UpdatePatient(requestContext(c), userID, input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, patient)
}

type requestContactChangeRequest struct {
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone" validate:"omitempty,max=32"`
}

// POST /api/user/request-change-contact
func (h *UserHandler) RequestChangeContact(c *gin.Context) {
	userID, kind, ok := currentAccount(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req requestContactChangeRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.identity.RequestContactChange(requestContext(c), kind, userID, req.Email, req.Phone); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "verification code sent to the new contact"})
}

type confirmContactChangeRequest struct {
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone" validate:"omitempty,max=32"`
	Code  string `json:"code" validate:"required,len=6"`
}

// POST /api/user/confirm-change-contact
func (h *UserHandler) ConfirmChangeContact(c *gin.Context) {
	userID, kind, ok := currentAccount(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req confirmContactChangeRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.identity.ConfirmContactChange(requestContext(c), kind, userID, req.Email, req.Phone, req.Code); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "contact updated"})
}

func (h *UserHandler) saveAvatar(c *gin.Context) (*string, error) {
	fh, err := c.FormFile("avatar")
	if err != nil {
		return nil, nil
	}
	if fh.Size > maxUploadBytes {
		return nil, appErrors.NewBadRequest("file exceeds the 10MB upload limit")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, appErrors.NewBadRequest("unreadable upload")
	}
	defer f.Close()

	url, err := h.store.Save(requestContext(c), fh.Filename, f)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to store upload")
	}
	return &url, nil
}

// currentAccount resolves the authenticated account id and kind from the
// token claims set by the auth middleware.
func currentAccount(c *gin.Context) (string, models.AccountKind, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		return "", "", false
	}

	v, _ := c.Get(middleware.CtxRoleKey)
	role, _ := v.(string)
	switch role {
	case models.RolePatient:
		return userID, models.KindPatient, true
	case models.RoleDoctor:
		return userID, models.KindDoctor, true
	default:
		return "", "", false
	}
}
