package handlers

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/medconnecthq/medconnect/internal/models"
	"github.com/medconnecthq/medconnect/internal/services"
	"github.com/medconnecthq/medconnect/internal/storage"
	appErrors "github.com/medconnecthq/medconnect/pkg/errors"
	"github.com/medconnecthq/medconnect/pkg/response"
	appValidator "github.com/medconnecthq/medconnect/pkg/validator"
)

const (
	maxDoctorDocuments = 3
	maxUploadBytes     = 10 << 20
)

// DoctorHandler manages doctor registration, credential flows, and profile
// management including document uploads.
type DoctorHandler struct {
	identity *services.IdentityService
	profiles *services.ProfileService
	resets   *services.PasswordResetService
	store    storage.FileStore
}

// NewDoctorHandler configures a doctor handler with required services.
func NewDoctorHandler(identity *services.IdentityService, profiles *services.ProfileService, resets *services.PasswordResetService, store storage.FileStore) *DoctorHandler {
	return &DoctorHandler{identity: identity, profiles: profiles, resets: resets, store: store}
}

type registerDoctorRequest struct {
	Name      string `form:"name" validate:"required,max=120"`
	Specialty string `form:"specialty" validate:"omitempty,max=120"`
	Title     string `form:"title" validate:"omitempty,max=120"`
	Email     string `form:"email" validate:"omitempty,email"`
	Phone     string `form:"phone" validate:"omitempty,max=32"`
	Password  string `form:"password" validate:"required,min=8"`
}

// POST /api/doctor/register (multipart/form-data)
func (h *DoctorHandler) Register(c *gin.Context) {
	var req registerDoctorRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid form payload"))
		return
	}
	if err := appValidator.ValidateStruct(&req); err != nil {
		response.Error(c, appErrors.NewBadRequest(formatValidationError(err)))
		return
	}

	urls, err := h.saveDocuments(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	doctor, err := h.identity.RegisterDoctor(requestContext(c), services.RegisterDoctorInput{
		Name:         req.Name,
		Specialty:    req.Specialty,
		Title:        req.Title,
		Email:        req.Email,
		Phone:        req.Phone,
		Password:     req.Password,
		DocumentURLs: urls,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, doctor)
}

// POST /api/doctor/login
func (h *DoctorHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	token, err := h.identity.Login(requestContext(c), models.KindDoctor, req.Identifier, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, tokenResponse{Token: token})
}

// POST /api/doctor/verify-account
func (h *DoctorHandler) VerifyAccount(c *gin.Context) {
	var req verifyAccountRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.identity.VerifyAccount(requestContext(c), models.KindDoctor, req.Identifier, req.Code); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "account verified"})
}

// POST /api/doctor/forgot-password
func (h *DoctorHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.resets.Request(requestContext(c), models.KindDoctor, req.Identifier); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "reset token sent"})
}

// POST /api/doctor/reset-password
func (h *DoctorHandler) ResetPassword(c *gin.Context) {
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

// GET /api/doctor/profile
func (h *DoctorHandler) GetProfile(c *gin.Context) {
	doctorID, ok := currentUserID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	doctor, err := h.profiles.GetDoctor(requestContext(c), doctorID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, doctor)
}

type updateDoctorRequest struct {
	Name         *string         `json:"name" form:"name" validate:"omitempty,max=120"`
	Specialty    *string         `json:"specialty" form:"specialty" validate:"omitempty,max=120"`
	Title        *string         `json:"title" form:"title" validate:"omitempty,max=120"`
	WorkingHours json.RawMessage `json:"working_hours" validate:"omitempty"`
}

// PUT /api/doctor/profile
//
// Accepts JSON, or multipart/form-data when an avatar file accompanies the
// field updates.
func (h *DoctorHandler) UpdateProfile(c *gin.Context) {
	doctorID, ok := currentUserID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	input := services.UpdateDoctorInput{}

	if isMultipart(c) {
		input.Name = formValue(c, "name")
		input.Specialty = formValue(c, "specialty")
		input.Title = formValue(c, "title")
		if raw := formValue(c, "working_hours"); raw != nil {
			hours, err := parseWorkingHours([]byte(*raw))
			if err != nil {
				response.Error(c, err)
				return
			}
			input.WorkingHours = hours
		}

		avatarURL, err := h.saveOptionalFile(c, "avatar")
		if err != nil {
			response.Error(c, err)
			return
		}
		input.Avatar = avatarURL
	} else {
		var req updateDoctorRequest
		if !bindAndValidate(c, &req) {
			return
		}
		input.Name = req.Name
		input.Specialty = req.Specialty
		input.Title = req.Title
		if len(req.WorkingHours) > 0 {
			hours, err := parseWorkingHours(req.WorkingHours)
			if err != nil {
				response.Error(c, err)
				return
			}
			input.WorkingHours = hours
		}
	}

	doctor, err := h.profiles.UpdateDoctor(requestContext(c), doctorID, input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, doctor)
}

// POST /api/doctor/documents (multipart/form-data)
func (h *DoctorHandler) UploadDocuments(c *gin.Context) {
	doctorID, ok := currentUserID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	urls, err := h.saveDocuments(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if len(urls) == 0 {
		response.Error(c, appErrors.NewBadRequest("no documents provided"))
		return
	}

	doctor, err := h.profiles.AppendDoctorDocuments(requestContext(c), doctorID, urls)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, doctor)
}

type approveDoctorRequest struct {
	DoctorID string `json:"doctor_id" validate:"required,uuid4"`
}

// POST /api/doctor/verify (admin only)
func (h *DoctorHandler) Approve(c *gin.Context) {
	var req approveDoctorRequest
	if !bindAndValidate(c, &req) {
		return
	}

	doctor, err := h.identity.ApproveDoctor(requestContext(c), req.DoctorID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, doctor)
}

// saveDocuments stores the "documents" multipart files and returns their URLs.
func (h *DoctorHandler) saveDocuments(c *gin.Context) ([]string, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil
	}

	files := form.File["documents"]
	if len(files) == 0 {
		return nil, nil
	}
	if len(files) > maxDoctorDocuments {
		return nil, appErrors.NewBadRequest("too many documents; at most 3 are allowed")
	}

	urls := make([]string, 0, len(files))
	for _, fh := range files {
		url, err := h.saveFile(c, fh)
		if err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// saveOptionalFile stores a single named multipart file when present.
func (h *DoctorHandler) saveOptionalFile(c *gin.Context, field string) (*string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, nil
	}

	url, err := h.saveFile(c, fh)
	if err != nil {
		return nil, err
	}
	return &url, nil
}

func (h *DoctorHandler) saveFile(c *gin.Context, fh *multipart.FileHeader) (string, error) {
	if fh.Size > maxUploadBytes {
		return "", appErrors.NewBadRequest("file exceeds the 10MB upload limit")
	}

	f, err := fh.Open()
	if err != nil {
		return "", appErrors.NewBadRequest("unreadable upload")
	}
	defer f.Close()

	url, err := h.store.Save(requestContext(c), fh.Filename, f)
	if err != nil {
		return "", appErrors.Wrap(err, "failed to store upload")
	}
	return url, nil
}

func parseWorkingHours(raw []byte) (datatypes.JSON, error) {
	if !json.Valid(raw) {
		return nil, appErrors.NewBadRequest("working_hours must be valid JSON")
	}
	return datatypes.JSON(raw), nil
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/")
}

func formValue(c *gin.Context, key string) *string {
	if v, ok := c.GetPostForm(key); ok {
		v = strings.TrimSpace(v)
		return &v
	}
	return nil
}

func currentUserID(c *gin.Context) (string, bool) {
	v, ok := c.Get("userID")
	if !ok {
		return "", false
	}
	id, _ := v.(string)
	return id, id != ""
}
