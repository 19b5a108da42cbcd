package scheduling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"medibook-server/internal/models"
)

// memStore is an in-memory Store with the same atomicity contract as the
// gorm implementation: one mutex plays the role of the database transaction.
type memStore struct {
	mu      sync.Mutex
	users   map[string]*models.User
	doctors map[string]*models.Doctor
	appts   map[string]*models.Appointment
	records map[string]*models.MedicalRecord
	slots   map[string]string // slot key -> appointment id
}

func newMemStore() *memStore {
	return &memStore{
		users:   make(map[string]*models.User),
		doctors: make(map[string]*models.Doctor),
		appts:   make(map[string]*models.Appointment),
		records: make(map[string]*models.MedicalRecord),
		slots:   make(map[string]string),
	}
}

func (m *memStore) addUser(name string, role models.Role) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &models.User{Name: name, Role: role, Email: name + "@example.com"}
	u.ID = uuid.New().String()
	m.users[u.ID] = u
	return u
}

func (m *memStore) addDoctor(user *models.User) *models.Doctor {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := &models.Doctor{UserID: user.ID, Specialization: "General Medicine", Fees: 500}
	d.ID = uuid.New().String()
	m.doctors[d.ID] = d
	return d
}

func (m *memStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) GetDoctor(ctx context.Context, id string) (*models.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.doctors[id]
	if !ok {
		return nil, fmt.Errorf("%w: doctor", ErrNotFound)
	}
	cp := *d
	return &cp, nil
}

func (m *memStore) GetDoctorByUserID(ctx context.Context, userID string) (*models.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.doctors {
		if d.UserID == userID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: doctor profile", ErrNotFound)
}

func (m *memStore) CreateAppointment(ctx context.Context, appt *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if appt.SlotKey != nil {
		if _, taken := m.slots[*appt.SlotKey]; taken {
			return fmt.Errorf("%w: doctor %s", ErrSlotTaken, appt.DoctorID)
		}
	}
	appt.ID = uuid.New().String()
	cp := *appt
	m.appts[appt.ID] = &cp
	if appt.SlotKey != nil {
		m.slots[*appt.SlotKey] = appt.ID
	}
	return nil
}

func (m *memStore) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, fmt.Errorf("%w: appointment", ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) ListAppointments(ctx context.Context, f ListFilter) ([]models.Appointment, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []models.Appointment
	for _, a := range m.appts {
		if f.PatientID != "" && a.PatientID != f.PatientID {
			continue
		}
		if f.DoctorID != "" && a.DoctorID != f.DoctorID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		matched = append(matched, *a)
	}
	total := int64(len(matched))
	start := (f.Page - 1) * f.Limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (m *memStore) UpdateAppointment(ctx context.Context, id string, mutate func(*models.Appointment) error) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, fmt.Errorf("%w: appointment", ErrNotFound)
	}
	cp := *a
	if err := mutate(&cp); err != nil {
		return nil, err
	}
	if a.SlotKey != nil && cp.SlotKey == nil {
		delete(m.slots, *a.SlotKey)
	}
	m.appts[id] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) CreateMedicalRecord(ctx context.Context, rec *models.MedicalRecord, guard func(*models.Appointment) error) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[rec.AppointmentID]
	if !ok {
		return nil, fmt.Errorf("%w: appointment", ErrNotFound)
	}
	cp := *a
	if err := guard(&cp); err != nil {
		return nil, err
	}
	for _, existing := range m.records {
		if existing.AppointmentID == rec.AppointmentID {
			return nil, ErrDuplicateRecord
		}
	}
	rec.ID = uuid.New().String()
	stored := *rec
	m.records[rec.ID] = &stored
	if cp.SlotKey != nil {
		delete(m.slots, *cp.SlotKey)
	}
	cp.Status = models.StatusCompleted
	cp.SlotKey = nil
	m.appts[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) GetMedicalRecord(ctx context.Context, id string) (*models.MedicalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: medical record", ErrNotFound)
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) ListMedicalRecords(ctx context.Context, f RecordFilter) ([]models.MedicalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []models.MedicalRecord
	for _, r := range m.records {
		if f.PatientID != "" && r.PatientID != f.PatientID {
			continue
		}
		if f.DoctorID != "" && r.DoctorID != f.DoctorID {
			continue
		}
		matched = append(matched, *r)
	}
	return matched, nil
}

func (m *memStore) recordCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// recordingSink captures emitted notification events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []string
	fail   bool
}

func (s *recordingSink) record(event string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	if s.fail {
		return fmt.Errorf("sink unavailable")
	}
	return nil
}

func (s *recordingSink) AppointmentBooked(ctx context.Context, appt *models.Appointment, patient *models.User) error {
	return s.record("booked")
}

func (s *recordingSink) AppointmentConfirmed(ctx context.Context, appt *models.Appointment, patient *models.User) error {
	return s.record("confirmed")
}

func (s *recordingSink) MedicalRecordCreated(ctx context.Context, rec *models.MedicalRecord, patient *models.User) error {
	return s.record("record")
}

func (s *recordingSink) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	copy(out, s.events)
	return out
}

func (s *recordingSink) count(event string) int {
	n := 0
	for _, e := range s.seen() {
		if e == event {
			n++
		}
	}
	return n
}

// fixture is a service wired against the in-memory store with one doctor and
// two patients.
type fixture struct {
	service  *Service
	store    *memStore
	sink     *recordingSink
	doctor   *models.Doctor
	docUser  *models.User
	patientA *models.User
	patientB *models.User
}

func newFixture() *fixture {
	store := newMemStore()
	sink := &recordingSink{}
	svc := NewService(store, sink, zerolog.Nop())

	docUser := store.addUser("dr-jones", models.RoleDoctor)
	return &fixture{
		service:  svc,
		store:    store,
		sink:     sink,
		docUser:  docUser,
		doctor:   store.addDoctor(docUser),
		patientA: store.addUser("alice", models.RolePatient),
		patientB: store.addUser("bob", models.RolePatient),
	}
}

func (f *fixture) patientActor(u *models.User) Actor {
	return Actor{ID: u.ID, Role: models.RolePatient}
}

func (f *fixture) doctorActor() Actor {
	return Actor{ID: f.docUser.ID, Role: models.RoleDoctor}
}

func (f *fixture) bookRequest() BookRequest {
	return BookRequest{
		DoctorID:  f.doctor.ID,
		Date:      time.Now().AddDate(0, 0, 7),
		StartTime: "09:00",
		EndTime:   "10:00",
		Symptoms:  "persistent cough",
	}
}
