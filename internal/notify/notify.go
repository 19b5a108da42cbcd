// Package notify is the best-effort side channel of the scheduling core.
// Sinks are invoked after the triggering mutation has committed; their errors
// are logged by the caller and never affect the operation's result.
package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"medibook-server/internal/models"
)

// Sink receives appointment lifecycle events.
type Sink interface {
	AppointmentBooked(ctx context.Context, appt *models.Appointment, patient *models.User) error
	AppointmentConfirmed(ctx context.Context, appt *models.Appointment, patient *models.User) error
	MedicalRecordCreated(ctx context.Context, rec *models.MedicalRecord, patient *models.User) error
}

// LogSink writes events to the log instead of delivering them anywhere. Used
// when no SMTP transport is configured.
type LogSink struct {
	Log zerolog.Logger
}

func (s *LogSink) AppointmentBooked(ctx context.Context, appt *models.Appointment, patient *models.User) error {
	s.Log.Info().
		Str("event", "appointment_booked").
		Str("appointment", appt.ID).
		Str("patient", patient.Email).
		Msg("notification")
	return nil
}

func (s *LogSink) AppointmentConfirmed(ctx context.Context, appt *models.Appointment, patient *models.User) error {
	s.Log.Info().
		Str("event", "appointment_confirmed").
		Str("appointment", appt.ID).
		Str("patient", patient.Email).
		Msg("notification")
	return nil
}

func (s *LogSink) MedicalRecordCreated(ctx context.Context, rec *models.MedicalRecord, patient *models.User) error {
	s.Log.Info().
		Str("event", "medical_record_created").
		Str("record", rec.ID).
		Str("patient", patient.Email).
		Msg("notification")
	return nil
}

func slotLine(appt *models.Appointment) string {
	return fmt.Sprintf("%s %s - %s", appt.Date.Format("2006-01-02"), appt.StartTime, appt.EndTime)
}
