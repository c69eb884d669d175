package robot

import (
	"errors"
	"fmt"
)

// Sentinel errors for arguments rejected before any request is made.
var (
	// ErrInvalidDirection is returned for a direction other than forward/backward/left/right.
	ErrInvalidDirection = errors.New("robot: invalid direction")

	// ErrInvalidAddress is returned for a motor address outside A-D / outA-outD.
	ErrInvalidAddress = errors.New("robot: invalid motor address")

	// ErrEmptyPayload is returned when an upload has no data.
	ErrEmptyPayload = errors.New("robot: empty upload")
)

// APIError is a non-2xx response from the robot API.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error message from the API, if any.
	Message string

	// Path is the request path.
	Path string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("robot: %s: API error %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("robot: %s: API error %d: %s", e.Path, e.StatusCode, e.Message)
}

// IsBadRequest returns true if the robot rejected the request (HTTP 400).
func (e *APIError) IsBadRequest() bool {
	return e.StatusCode == 400
}

// IsNotFound returns true if the endpoint does not exist (HTTP 404).
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == 404
}

// IsServerError returns true for HTTP 5xx.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}
