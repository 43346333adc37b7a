package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/vaultbank/backend/internal/bankerr"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// ValidationHelper provides shared validation functionality.
type ValidationHelper struct {
	validator *validator.Validate
}

func NewValidationHelper() *ValidationHelper {
	return &ValidationHelper{validator: validator.New()}
}

func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// SendErrorResponse sends a JSON error response.
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := ErrorResponse{Error: message}
	var verrs validator.ValidationErrors
	if errors.As(validationErr, &verrs) {
		errorResp.Details = make(map[string]string)
		for _, err := range verrs {
			errorResp.Details[err.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", err.Tag())
		}
	}

	json.NewEncoder(w).Encode(errorResp)
}

// decodeStrict decodes a single JSON object, rejecting unknown fields,
// trailing data, and bodies over 1 MB.
func decodeStrict(w http.ResponseWriter, r *http.Request, dst any) error {
	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("request body must only contain a single JSON object")
	}
	return nil
}

// sendEngineError maps a ledger-core error kind to a stable HTTP status
// and message. Storage detail never leaks to the client.
func sendEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bankerr.ErrNotFound):
		SendErrorResponse(w, bankerr.ErrNotFound.Error(), http.StatusNotFound, nil)
	case errors.Is(err, bankerr.ErrAccountInactive):
		SendErrorResponse(w, bankerr.ErrAccountInactive.Error(), http.StatusForbidden, nil)
	case errors.Is(err, bankerr.ErrInvalidState):
		SendErrorResponse(w, bankerr.ErrInvalidState.Error(), http.StatusConflict, nil)
	case errors.Is(err, bankerr.ErrInsufficientFunds),
		errors.Is(err, bankerr.ErrInvalidAmount),
		errors.Is(err, bankerr.ErrSameAccount),
		errors.Is(err, bankerr.ErrLimitExceeded),
		errors.Is(err, bankerr.ErrMissingReason):
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
	default:
		SendErrorResponse(w, "failed to process request", http.StatusInternalServerError, nil)
	}
}

func sendJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}
