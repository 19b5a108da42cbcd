package scheduling

import (
	"context"
	"fmt"

	"medibook-server/internal/models"
)

// SubmitFeedback records the patient's one-shot rating of a completed visit.
// Preconditions are checked in a fixed order, each with its own error:
// appointment exists, actor owns it, visit completed, not yet rated, rating in
// range. IsRated is a latch: once set it never clears, so a second call fails
// with ErrAlreadyRated no matter the payload.
func (s *Service) SubmitFeedback(ctx context.Context, actor Actor, appointmentID string, rating int, feedback string) (*models.Appointment, error) {
	if actor.Role != models.RolePatient {
		return nil, fmt.Errorf("%w: only patients rate appointments", ErrForbidden)
	}

	return s.store.UpdateAppointment(ctx, appointmentID, func(a *models.Appointment) error {
		if a.PatientID != actor.ID {
			return fmt.Errorf("%w: appointment belongs to another patient", ErrForbidden)
		}
		if a.Status != models.StatusCompleted {
			return ErrNotCompleted
		}
		if a.IsRated {
			return ErrAlreadyRated
		}
		if rating < 1 || rating > 5 {
			return ErrInvalidRating
		}
		if len(feedback) > 500 {
			return fmt.Errorf("%w: feedback too long", ErrValidation)
		}
		a.PatientRating = rating
		a.PatientFeedback = feedback
		a.IsRated = true
		return nil
	})
}
