package threads

import "fmt"

// APIError is a non-2xx response from the Threads Graph API.
type APIError struct {
	StatusCode int
	Type       string
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("threads API error (status %d, code %d, type %s): %s", e.StatusCode, e.Code, e.Type, e.Message)
}

// The error envelope the Graph API wraps failures in.
type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}
