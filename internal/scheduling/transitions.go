package scheduling

import (
	"context"
	"fmt"
	"time"

	"medibook-server/internal/models"
)

// successors is the appointment status graph. cancelled and completed are
// terminal. completed is deliberately absent from any target reachable
// through Transition: an appointment completes only when its medical record
// is created (see CreateRecord).
var successors = map[models.AppointmentStatus][]models.AppointmentStatus{
	models.StatusPending:   {models.StatusConfirmed, models.StatusCancelled},
	models.StatusConfirmed: {models.StatusCompleted, models.StatusCancelled},
	models.StatusCancelled: {},
	models.StatusCompleted: {},
}

// CanTransition reports whether to is in the successor set of from.
func CanTransition(from, to models.AppointmentStatus) bool {
	for _, next := range successors[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves an appointment to target on behalf of actor.
//
// Actor policy: the assigned doctor and admins may drive any legal edge except
// into completed (reserved for the record linker). A patient may cancel their
// own appointment while it is pending or confirmed, and nothing else; this is
// a deliberate policy choice, not an accident of the transition table.
func (s *Service) Transition(ctx context.Context, actor Actor, appointmentID string, target models.AppointmentStatus, notes string) (*models.Appointment, error) {
	switch target {
	case models.StatusPending, models.StatusConfirmed, models.StatusCancelled:
	case models.StatusCompleted:
		return nil, fmt.Errorf("%w: appointments complete through medical record creation", ErrIllegalTransition)
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, target)
	}
	if len(notes) > 500 {
		return nil, fmt.Errorf("%w: notes too long", ErrValidation)
	}

	var doctor *models.Doctor
	if actor.Role == models.RoleDoctor {
		var err error
		doctor, err = s.store.GetDoctorByUserID(ctx, actor.ID)
		if err != nil {
			return nil, ErrForbidden
		}
	}

	var previous models.AppointmentStatus
	appt, err := s.store.UpdateAppointment(ctx, appointmentID, func(a *models.Appointment) error {
		if err := authorizeTransition(actor, doctor, a, target); err != nil {
			return err
		}
		if !CanTransition(a.Status, target) {
			return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, a.Status, target)
		}
		previous = a.Status
		a.Status = target
		if target.Terminal() {
			a.SlotKey = nil
		}
		if notes != "" {
			a.Notes = notes
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Re-confirming is impossible by the graph, but the old/new guard stays:
	// the notification must fire exactly once per entry into confirmed.
	if target == models.StatusConfirmed && previous != models.StatusConfirmed {
		s.emit("appointment_confirmed", appt.PatientID, func(ctx context.Context, patient *models.User) error {
			return s.sink.AppointmentConfirmed(ctx, appt, patient)
		})
	}
	return appt, nil
}

func authorizeTransition(actor Actor, doctor *models.Doctor, a *models.Appointment, target models.AppointmentStatus) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleDoctor:
		if doctor != nil && doctor.ID == a.DoctorID {
			return nil
		}
		return fmt.Errorf("%w: appointment belongs to another doctor", ErrForbidden)
	case models.RolePatient:
		if a.PatientID != actor.ID {
			return fmt.Errorf("%w: appointment belongs to another patient", ErrForbidden)
		}
		if target != models.StatusCancelled {
			return fmt.Errorf("%w: patients may only cancel appointments", ErrForbidden)
		}
		return nil
	default:
		return ErrForbidden
	}
}

// ClinicalUpdate carries the doctor's working notes. Nil / empty fields are
// left untouched; writes are independent of any status transition and may
// happen ahead of completion.
type ClinicalUpdate struct {
	Diagnosis    *string
	Prescription []models.PrescriptionItem
	LabTests     []string
	FollowUpDate *string // "2006-01-02"
}

func parseFollowUpDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", *raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid follow-up date %q", ErrValidation, *raw)
	}
	return &t, nil
}

// WriteClinical merges clinical fields into the appointment. Only the
// assigned doctor (or an admin) may write them, and not on a cancelled visit.
func (s *Service) WriteClinical(ctx context.Context, actor Actor, appointmentID string, upd ClinicalUpdate) (*models.Appointment, error) {
	if actor.Role != models.RoleDoctor && actor.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	followUp, err := parseFollowUpDate(upd.FollowUpDate)
	if err != nil {
		return nil, err
	}
	if upd.Diagnosis != nil && len(*upd.Diagnosis) > 500 {
		return nil, fmt.Errorf("%w: diagnosis too long", ErrValidation)
	}

	var doctor *models.Doctor
	if actor.Role == models.RoleDoctor {
		doctor, err = s.store.GetDoctorByUserID(ctx, actor.ID)
		if err != nil {
			return nil, ErrForbidden
		}
	}

	return s.store.UpdateAppointment(ctx, appointmentID, func(a *models.Appointment) error {
		if actor.Role == models.RoleDoctor && doctor.ID != a.DoctorID {
			return fmt.Errorf("%w: appointment belongs to another doctor", ErrForbidden)
		}
		if a.Status == models.StatusCancelled {
			return fmt.Errorf("%w: appointment is cancelled", ErrValidation)
		}
		if upd.Diagnosis != nil {
			a.Diagnosis = *upd.Diagnosis
		}
		if upd.Prescription != nil {
			a.Prescription = upd.Prescription
		}
		if upd.LabTests != nil {
			a.LabTests = upd.LabTests
		}
		if followUp != nil {
			a.FollowUpDate = followUp
		}
		return nil
	})
}
