package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// DefaultMaxBodyBytes caps request bodies when the router is built without a limit.
const DefaultMaxBodyBytes int64 = 1 << 20

// DecodeJSON strictly decodes a single JSON value from the body into dst. On
// failure it writes the error response and returns false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err == nil && dec.More() {
		err = errors.New("request body must hold a single JSON value")
	}
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		WriteError(w, ErrorParams{
			Code:    http.StatusRequestEntityTooLarge,
			ErrCode: "body_too_large",
			Err:     fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit),
		})
	case errors.Is(err, io.EOF):
		badRequest(w, "invalid_json", "request body is required")
	default:
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
	}
	return false
}

// WriteJSON encodes v before touching w, so an encoding failure can still
// become a clean 500.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = buf.WriteTo(w)
}

// ErrorParams groups parameters for WriteError.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes errorBody{ErrCode, Err.Error()} with status Code.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, errorBody{Error: p.ErrCode, Message: p.Err.Error()})
}

// errorBody is the wire shape of every error response. Transition fields are only set for
// invalid_transition.
type errorBody struct {
	Error             string    `json:"error"`
	Message           string    `json:"message"`
	Field             string    `json:"field,omitempty"`
	CurrentStatus     string    `json:"current_status,omitempty"`
	RequestedStatus   string    `json:"requested_status,omitempty"`
	ValidNextStatuses *[]string `json:"valid_next_statuses,omitempty"`
}
