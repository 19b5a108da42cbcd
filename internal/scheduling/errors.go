package scheduling

import "errors"

// Domain outcomes of the appointment lifecycle. These are expected results
// reported to the caller, not infrastructure failures; handlers translate
// them to HTTP statuses. Anything not wrapping one of these is treated as a
// server-side failure.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("not authorized for this resource")
	ErrSlotTaken         = errors.New("time slot already booked")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrNotCompleted      = errors.New("appointment is not completed")
	ErrAlreadyRated      = errors.New("appointment already rated")
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
	ErrDuplicateRecord   = errors.New("medical record already exists for this appointment")
	ErrValidation        = errors.New("invalid request data")
)
