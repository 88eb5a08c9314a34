package vision

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrNotCalibrated is returned when anomaly evaluation is requested
	// before a baseline exists.
	ErrNotCalibrated = errors.New("vision: not calibrated")

	// ErrInvalidConfig is returned when thresholds are out of order or
	// tolerances are not strictly positive.
	ErrInvalidConfig = errors.New("vision: invalid config")
)

// CalibrationError reports a failed calibration attempt. It is recoverable:
// the caller should capture a fresh reference frame and retry.
type CalibrationError struct {
	Err error
}

// Error implements the error interface.
func (e *CalibrationError) Error() string {
	return fmt.Sprintf("vision: calibration failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *CalibrationError) Unwrap() error {
	return e.Err
}
