// internal/reporter/errors.go
package reporter

import "errors"

var (
	// ErrInvalidConfig is returned by Arm when the config fails validation.
	ErrInvalidConfig = errors.New("reporter: invalid config")

	// ErrAlreadyRunning is returned by Arm when the loop is already Running.
	ErrAlreadyRunning = errors.New("reporter: already running")

	// ErrNetwork covers timeouts, refused connections and non-200 responses.
	// Never returned to callers of the loop; logged only.
	ErrNetwork = errors.New("network failure")

	// ErrParse covers malformed order-list payloads. Logged only.
	ErrParse = errors.New("parse failure")
)
