// Package scheduling owns the appointment lifecycle: slot reservation, the
// status state machine, the post-visit feedback gate and medical record
// linking. Everything else in the system is plain data access around it.
package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"medibook-server/internal/models"
	"medibook-server/internal/notify"
)

// Actor is an authenticated identity resolved by the identity directory.
// The scheduling service never authenticates anyone itself.
type Actor struct {
	ID   string
	Role models.Role
}

// Service coordinates all mutations of appointments and medical records.
type Service struct {
	store Store
	sink  notify.Sink
	log   zerolog.Logger
	now   func() time.Time
}

// NewService creates the scheduling service with its persistence and
// notification ports injected.
func NewService(store Store, sink notify.Sink, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		sink:  sink,
		log:   log,
		now:   time.Now,
	}
}

// BookRequest is a patient's request for a doctor's slot.
type BookRequest struct {
	DoctorID        string
	Date            time.Time
	StartTime       string
	EndTime         string
	Symptoms        string
	Notes           string
	AppointmentType models.AppointmentType
	Priority        models.Priority
}

// Book reserves a slot for the acting patient. The slot is identified by the
// exact (doctor, date, start time) tuple; at most one pending or confirmed
// appointment may hold it at any moment, enforced by the store's unique key
// so concurrent requests cannot both succeed.
func (s *Service) Book(ctx context.Context, actor Actor, req BookRequest) (*models.Appointment, error) {
	if actor.Role != models.RolePatient {
		return nil, fmt.Errorf("%w: only patients book appointments", ErrForbidden)
	}
	if err := s.validateBooking(req); err != nil {
		return nil, err
	}

	doctor, err := s.store.GetDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}

	apptType := req.AppointmentType
	if apptType == "" {
		apptType = models.TypeConsultation
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}

	y, m, d := req.Date.Date()
	date := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	key := models.SlotKeyFor(doctor.ID, date, req.StartTime)
	appt := &models.Appointment{
		PatientID:       actor.ID,
		DoctorID:        doctor.ID,
		Date:            date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		SlotKey:         &key,
		Status:          models.StatusPending,
		Symptoms:        req.Symptoms,
		Notes:           req.Notes,
		AppointmentType: apptType,
		Priority:        priority,
	}

	if err := s.store.CreateAppointment(ctx, appt); err != nil {
		return nil, err
	}

	s.emit("appointment_booked", appt.PatientID, func(ctx context.Context, patient *models.User) error {
		return s.sink.AppointmentBooked(ctx, appt, patient)
	})
	return s.store.GetAppointment(ctx, appt.ID)
}

// AppointmentPage is one page of a role-scoped appointment listing.
type AppointmentPage struct {
	Appointments []models.Appointment
	Total        int64
	Page         int
	Pages        int
}

// ListForActor returns the actor's own appointments: the patient's bookings,
// the doctor's schedule, or everything for an admin.
func (s *Service) ListForActor(ctx context.Context, actor Actor, status models.AppointmentStatus, page, limit int) (*AppointmentPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	filter := ListFilter{Status: status, Page: page, Limit: limit}
	switch actor.Role {
	case models.RolePatient:
		filter.PatientID = actor.ID
	case models.RoleDoctor:
		doctor, err := s.store.GetDoctorByUserID(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		filter.DoctorID = doctor.ID
	case models.RoleAdmin:
		// unscoped
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrForbidden, actor.Role)
	}

	appts, total, err := s.store.ListAppointments(ctx, filter)
	if err != nil {
		return nil, err
	}
	pages := int((total + int64(limit) - 1) / int64(limit))
	return &AppointmentPage{Appointments: appts, Total: total, Page: page, Pages: pages}, nil
}

// Get returns a single appointment if the actor is the owning patient, the
// assigned doctor or an admin.
func (s *Service) Get(ctx context.Context, actor Actor, appointmentID string) (*models.Appointment, error) {
	appt, err := s.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeView(ctx, actor, appt.PatientID, appt.DoctorID); err != nil {
		return nil, err
	}
	return appt, nil
}

func (s *Service) validateBooking(req BookRequest) error {
	if req.Symptoms == "" {
		return fmt.Errorf("%w: symptoms are required", ErrValidation)
	}
	if len(req.Symptoms) > 1000 {
		return fmt.Errorf("%w: symptoms description too long", ErrValidation)
	}
	if len(req.Notes) > 500 {
		return fmt.Errorf("%w: notes too long", ErrValidation)
	}
	start, err := time.Parse("15:04", req.StartTime)
	if err != nil {
		return fmt.Errorf("%w: invalid start time %q", ErrValidation, req.StartTime)
	}
	end, err := time.Parse("15:04", req.EndTime)
	if err != nil {
		return fmt.Errorf("%w: invalid end time %q", ErrValidation, req.EndTime)
	}
	if !start.Before(end) {
		return fmt.Errorf("%w: start time must be before end time", ErrValidation)
	}
	if req.Date.Format("2006-01-02") < s.now().Format("2006-01-02") {
		return fmt.Errorf("%w: appointment date must not be in the past", ErrValidation)
	}
	return nil
}

// authorizeView implements the shared read rule: owning patient, assigned
// doctor, or admin.
func (s *Service) authorizeView(ctx context.Context, actor Actor, patientID, doctorID string) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RolePatient:
		if actor.ID == patientID {
			return nil
		}
	case models.RoleDoctor:
		doctor, err := s.store.GetDoctorByUserID(ctx, actor.ID)
		if err == nil && doctor.ID == doctorID {
			return nil
		}
	}
	return ErrForbidden
}

// emit dispatches a notification after the triggering mutation has committed.
// It runs detached from the request: failures are logged and swallowed, and no
// lock from the mutation is held while the sink runs.
func (s *Service) emit(event, patientID string, send func(context.Context, *models.User) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		patient, err := s.store.GetUser(ctx, patientID)
		if err != nil {
			s.log.Warn().Err(err).Str("event", event).Msg("notification skipped: patient lookup failed")
			return
		}
		if err := send(ctx, patient); err != nil {
			s.log.Warn().Err(err).Str("event", event).Msg("notification delivery failed")
		}
	}()
}
