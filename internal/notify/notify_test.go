package notify

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"medibook-server/internal/models"
)

func TestLogSinkNeverFails(t *testing.T) {
	sink := &LogSink{Log: zerolog.Nop()}

	appt := &models.Appointment{
		Date:      time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		StartTime: "09:00",
		EndTime:   "10:00",
		Status:    models.StatusPending,
	}
	appt.ID = "appt-1"
	patient := &models.User{Name: "Sam", Email: "sam@example.com"}
	rec := &models.MedicalRecord{Diagnosis: "all clear"}
	rec.ID = "rec-1"

	assert.NoError(t, sink.AppointmentBooked(context.Background(), appt, patient))
	assert.NoError(t, sink.AppointmentConfirmed(context.Background(), appt, patient))
	assert.NoError(t, sink.MedicalRecordCreated(context.Background(), rec, patient))
}

func TestSlotLineFormat(t *testing.T) {
	appt := &models.Appointment{
		Date:      time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		StartTime: "09:00",
		EndTime:   "10:00",
	}
	assert.Equal(t, "2025-06-01 09:00 - 10:00", slotLine(appt))
}
