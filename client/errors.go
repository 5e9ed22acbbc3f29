package client

import (
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

const fallbackDetail = "unknown API error"

// APIError is returned when the backend answers with a non-success status.
type APIError struct {
	Status int
	Detail string
	// Body is the raw error document, or a synthesized {"detail": ...} when
	// the backend did not send JSON.
	Body []byte
}

func (e *APIError) Error() string {
	return e.Detail
}

// Unauthorized reports whether the backend refused the presented credential.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

func newAPIError(status int, body []byte) *APIError {
	if !gjson.ValidBytes(body) || len(body) == 0 {
		text := http.StatusText(status)
		if text == "" {
			text = fallbackDetail
		}
		body, _ = marshal(map[string]string{"detail": text})
	}

	detail := gjson.GetBytes(body, "detail").String()
	if detail == "" {
		detail = fallbackDetail
	}
	return &APIError{Status: status, Detail: detail, Body: body}
}

// NetworkError is returned when the request never reached the backend or no
// response came back.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
