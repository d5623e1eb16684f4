package handlers

import (
	"errors"
	"net/http"

	"github.com/HammerMeetNail/repeatapi/internal/logging"
	"github.com/HammerMeetNail/repeatapi/internal/models"
	"github.com/HammerMeetNail/repeatapi/internal/services"
)

const defaultMaxBodyBytes = 1 << 20

type RegistrationHandler struct {
	registrationService services.RegistrationServiceInterface
	maxBodyBytes        int64
}

func NewRegistrationHandler(registrationService services.RegistrationServiceInterface, maxBodyBytes int64) *RegistrationHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &RegistrationHandler{
		registrationService: registrationService,
		maxBodyBytes:        maxBodyBytes,
	}
}

// Register handles the signup form. Every outcome, failures included, is
// answered with 200 and a {success, message} body.
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegistrationRequest
	if r.Method == http.MethodPost {
		req = h.readForm(w, r)
	}

	outcome := h.registrationService.Register(r.Context(), r.Method, req)
	writeJSON(w, http.StatusOK, outcome.Response())
}

// readForm extracts the signup fields from a urlencoded or multipart body.
// A body that cannot be parsed yields empty fields.
func (h *RegistrationHandler) readForm(w http.ResponseWriter, r *http.Request) models.RegistrationRequest {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := r.ParseMultipartForm(h.maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		logging.FromContext(r.Context()).Debug("Unreadable signup form", logging.Fields{"error": err.Error()})
		return models.RegistrationRequest{}
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	return models.RegistrationRequest{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
		Name:     r.PostFormValue("name"),
	}
}
