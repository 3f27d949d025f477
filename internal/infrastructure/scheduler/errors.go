package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when the scheduler configuration is unusable
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrRunInProgress is returned when a run is requested while another is still going
	ErrRunInProgress = errors.New("mora snapshot run already in progress")
)
