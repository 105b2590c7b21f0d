package receiver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"alertsystem/internal/types"
)

// maxRequestBodySize bounds incoming event payloads (1 MB).
const maxRequestBodySize = 1 << 20

// ErrorResponse is the body of every non-dispatch error.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail is the structured error returned to clients.
type ErrorDetail struct {
	Code         string         `json:"code"`
	Message      string         `json:"message"`
	Details      map[string]any `json:"details,omitempty"`
	InvocationID string         `json:"invocation_id,omitempty"`
}

// JSON writes data with status. A marshalling failure becomes a 500.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Error: ErrorDetail{
			Code:         string(types.ErrCodeInternalUnexpected),
			Message:      "failed to marshal response",
			InvocationID: types.GetInvocationID(r.Context()),
		}})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Error writes err. An *types.AppError anywhere in the chain chooses the
// status and is shown to the client; anything else is a generic 500.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	id := types.GetInvocationID(r.Context())

	var appErr *types.AppError
	if errors.As(err, &appErr) {
		JSON(w, r, appErr.HTTPStatus(), ErrorResponse{Error: ErrorDetail{
			Code:         string(appErr.Code),
			Message:      appErr.Message,
			Details:      appErr.Details,
			InvocationID: id,
		}})
		return
	}

	JSON(w, r, http.StatusInternalServerError, ErrorResponse{Error: ErrorDetail{
		Code:         string(types.ErrCodeInternalUnexpected),
		Message:      "an unexpected error occurred",
		InvocationID: id,
	}})
}

// DecodeEvent reads a single JSON object from the request body.
func DecodeEvent(w http.ResponseWriter, r *http.Request) (types.RawEvent, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	var raw types.RawEvent
	if err := dec.Decode(&raw); err != nil {
		return nil, mapDecodeError(err)
	}
	if dec.More() {
		return nil, types.NewAppError(types.ErrCodeValidationInvalidPayload, "request body must contain a single JSON object", nil)
	}
	if raw == nil {
		return nil, types.NewAppError(types.ErrCodeValidationInvalidPayload, "request body must be a JSON object", nil)
	}
	return raw, nil
}

func mapDecodeError(err error) *types.AppError {
	var maxBytesErr *http.MaxBytesError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &maxBytesErr):
		return types.NewAppError(types.ErrCodeValidationInvalidPayload, "request body must not exceed 1MB", err)
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return types.NewAppError(types.ErrCodeValidationInvalidPayload, "malformed JSON in request body", err)
	case errors.As(err, &typeErr):
		return types.NewAppError(types.ErrCodeValidationInvalidPayload, "request body must be a JSON object", err)
	case errors.Is(err, io.EOF):
		return types.NewAppError(types.ErrCodeValidationInvalidPayload, "request body must not be empty", err)
	default:
		return types.NewAppError(types.ErrCodeValidationInvalidPayload, "invalid JSON in request body", err)
	}
}
