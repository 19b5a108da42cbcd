package notify

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"medibook-server/internal/models"
)

// MailSink delivers lifecycle events as e-mails over SMTP.
type MailSink struct {
	dialer *gomail.Dialer
	from   string
}

// NewMailSink builds an SMTP-backed sink.
func NewMailSink(host string, port int, username, password, from string) *MailSink {
	return &MailSink{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (s *MailSink) AppointmentBooked(ctx context.Context, appt *models.Appointment, patient *models.User) error {
	body := fmt.Sprintf(
		"Dear %s,\n\nYour appointment has been successfully booked.\n\nDate and time: %s\nStatus: %s\n\nPlease arrive 10 minutes before your scheduled time.\n\nBest regards,\nMediBook Team\n",
		patient.Name, slotLine(appt), appt.Status)
	return s.send(patient.Email, "MediBook - Appointment Booked Successfully", body)
}

func (s *MailSink) AppointmentConfirmed(ctx context.Context, appt *models.Appointment, patient *models.User) error {
	body := fmt.Sprintf(
		"Dear %s,\n\nYour appointment has been confirmed by the doctor.\n\nDate and time: %s\n\nWe look forward to seeing you!\n\nBest regards,\nMediBook Team\n",
		patient.Name, slotLine(appt))
	return s.send(patient.Email, "MediBook - Appointment Confirmed", body)
}

func (s *MailSink) MedicalRecordCreated(ctx context.Context, rec *models.MedicalRecord, patient *models.User) error {
	body := fmt.Sprintf(
		"Dear %s,\n\nA medical record from your recent visit is now available in your patient portal.\n\nDiagnosis: %s\n\nBest regards,\nMediBook Team\n",
		patient.Name, rec.Diagnosis)
	return s.send(patient.Email, "MediBook - Medical Record Available", body)
}

func (s *MailSink) send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}
