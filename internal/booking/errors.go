package booking

import "errors"

// Client-correctable reservation failures. Each is distinguishable with
// errors.Is.
var (
	ErrSlotNotFound    = errors.New("slot not found")
	ErrInvalidDuration = errors.New("invalid duration")
	ErrSlotUnavailable = errors.New("slot unavailable")
)
