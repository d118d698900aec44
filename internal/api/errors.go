package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnauthorized is returned when the backend answers 401. By the time the
// caller sees it the token has been cleared and the navigator told to show
// the login screen.
var ErrUnauthorized = errors.New("unauthorized")

// DefaultErrorMessage is shown when a failure carries no usable text.
const DefaultErrorMessage = "Analysis failed"

// APIError is a non-2xx response other than 401.
type APIError struct {
	StatusCode int
	Message    string // server-provided message, may be empty
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("Request failed with status code %d", e.StatusCode)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// ErrorMessage returns the text a view should show for err: the server's own
// message when it sent one, otherwise the error text, otherwise a generic
// fallback.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if apiErr != nil {
		return apiErr.Error()
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return DefaultErrorMessage
}

// serverMessage pulls a human message out of an error body. It understands
// {"message": "..."}, {"error": "..."} and {"error": {"message": "..."}}.
func serverMessage(body []byte) string {
	var payload struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if strings.TrimSpace(payload.Message) != "" {
		return payload.Message
	}
	if len(payload.Error) == 0 {
		return ""
	}
	var asString string
	if err := json.Unmarshal(payload.Error, &asString); err == nil {
		return nonBlank(asString)
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload.Error, &nested); err == nil {
		return nonBlank(nested.Message)
	}
	return ""
}

// nonBlank returns s unchanged, or "" when it holds only whitespace.
func nonBlank(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return s
}
