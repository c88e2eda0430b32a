package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"studiovault/internal/api/v1/dto"
	"studiovault/internal/middleware"
	"studiovault/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// errorStatuses maps domain errors to HTTP statuses. Order matters only for
// errors that wrap more than one sentinel.
var errorStatuses = []struct {
	err    error
	status int
}{
	{model.ErrLimitReached, http.StatusForbidden},
	{model.ErrAlreadySelected, http.StatusConflict},
	{model.ErrAlreadyOwned, http.StatusBadRequest},
	{model.ErrNotFound, http.StatusNotFound},
	{model.ErrProjectMismatch, http.StatusBadRequest},
	{model.ErrInvalidPackage, http.StatusBadRequest},
	{model.ErrAmountMismatch, http.StatusBadRequest},
	{model.ErrPaymentNotSucceeded, http.StatusBadRequest},
	{model.ErrPaymentProcessor, http.StatusBadGateway},
	{model.ErrSignatureInvalid, http.StatusBadRequest},
	{model.ErrForbidden, http.StatusForbidden},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, dto.ErrorResponseDTO{Error: code})
}

// writeServiceError writes the status for a known domain error, or logs and
// hides anything else behind a 500.
func writeServiceError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	for _, m := range errorStatuses {
		if errors.Is(err, m.err) {
			if m.status == http.StatusBadGateway {
				logger.Warn().Err(err).Msg("Payment processor unavailable")
			}
			writeError(w, m.status, m.err.Error())
			return
		}
	}
	logger.Error().Err(err).Msg("Unhandled service error")
	writeError(w, http.StatusInternalServerError, "internal_error")
}

// requireUserID reads the authenticated subject or writes a 401.
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	return userID, true
}

// pathUUID reads a UUID path value. Malformed IDs cannot name an existing row, so they are a 404.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		writeError(w, http.StatusNotFound, model.ErrNotFound.Error())
		return "", false
	}
	return id.String(), true
}

// decodeBody decodes and validates a JSON body. An empty body is accepted when allowEmpty is set.
func decodeBody(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any, allowEmpty bool) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !(allowEmpty && errors.Is(err, io.EOF)) {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return false
	}
	if err := v.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed: "+err.Error())
		return false
	}
	return true
}

func selectionDTO(s *model.Selection) *dto.SelectionResponseDTO {
	return &dto.SelectionResponseDTO{
		SelectionID:   s.SelectionID,
		ProjectID:     s.ProjectID,
		ContentItemID: s.ContentItemID,
		ContentType:   string(s.ContentType),
		SelectionType: s.SelectionType,
		CreatedAt:     s.CreatedAt,
	}
}
