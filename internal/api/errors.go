// internal/api/errors.go
package api

import (
	"fmt"

	"github.com/domipancho/courier-tracker/internal/reporter"
)

// StatusError is a response other than HTTP 200. It unwraps to
// reporter.ErrNetwork: every non-200 is treated the same.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api %s %s: HTTP %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("api %s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error { return reporter.ErrNetwork }

// Code exposes the HTTP status for status-block error codes.
func (e *StatusError) Code() uint16 { return uint16(e.StatusCode) }
