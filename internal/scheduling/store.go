package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"medibook-server/internal/models"
)

// ListFilter narrows an appointment listing. Zero values mean "no filter".
type ListFilter struct {
	PatientID string
	DoctorID  string
	Status    models.AppointmentStatus
	Page      int
	Limit     int
}

// RecordFilter narrows a medical record listing.
type RecordFilter struct {
	PatientID string
	DoctorID  string
}

// Store is the persistence port of the scheduling service. Implementations
// must make each mutating call atomic with respect to concurrent calls on the
// same appointment (and, for CreateAppointment, the same slot), since the
// service runs on multiple instances against one database.
type Store interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetDoctor(ctx context.Context, id string) (*models.Doctor, error)
	GetDoctorByUserID(ctx context.Context, userID string) (*models.Doctor, error)

	// CreateAppointment inserts a pending appointment. It returns ErrSlotTaken
	// when another pending or confirmed appointment already holds the slot.
	CreateAppointment(ctx context.Context, appt *models.Appointment) error
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	ListAppointments(ctx context.Context, f ListFilter) ([]models.Appointment, int64, error)

	// UpdateAppointment loads the appointment under an exclusive row lock,
	// applies mutate and persists the result in one transaction. An error from
	// mutate aborts the transaction and is returned unchanged.
	UpdateAppointment(ctx context.Context, id string, mutate func(*models.Appointment) error) (*models.Appointment, error)

	// CreateMedicalRecord creates rec and marks its appointment completed as a
	// single transaction. guard runs on the locked appointment before any
	// write; an error from it aborts the whole operation.
	CreateMedicalRecord(ctx context.Context, rec *models.MedicalRecord, guard func(*models.Appointment) error) (*models.Appointment, error)
	GetMedicalRecord(ctx context.Context, id string) (*models.MedicalRecord, error)
	ListMedicalRecords(ctx context.Context, f RecordFilter) ([]models.MedicalRecord, error)
}

type gormStore struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewStore wraps a gorm connection in the scheduling Store port. Every call
// gets a bounded deadline so a stuck database surfaces as an error instead of
// a hung request.
func NewStore(db *gorm.DB, timeout time.Duration) Store {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &gormStore{db: db, timeout: timeout}
}

func (s *gormStore) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *gormStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translateLookupErr(err, "user")
	}
	return &user, nil
}

func (s *gormStore) GetDoctor(ctx context.Context, id string) (*models.Doctor, error) {
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	var doctor models.Doctor
	if err := s.db.WithContext(ctx).Preload("User").First(&doctor, "id = ?", id).Error; err != nil {
		return nil, translateLookupErr(err, "doctor")
	}
	return &doctor, nil
}

func (s *gormStore) GetDoctorByUserID(ctx context.Context, userID string) (*models.Doctor, error) {
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	var doctor models.Doctor
	if err := s.db.WithContext(ctx).First(&doctor, "user_id = ?", userID).Error; err != nil {
		return nil, translateLookupErr(err, "doctor profile")
	}
	return &doctor, nil
}

func (s *gormStore) CreateAppointment(ctx context.Context, appt *models.Appointment) error {
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	if err := s.db.WithContext(ctx).Create(appt).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("%w: doctor %s at %s %s", ErrSlotTaken, appt.DoctorID, appt.Date.Format("2006-01-02"), appt.StartTime)
		}
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

func (s *gormStore) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	var appt models.Appointment
	err := s.db.WithContext(ctx).
		Preload("Patient").
		Preload("Doctor").
		Preload("Doctor.User").
		First(&appt, "id = ?", id).Error
	if err != nil {
		return nil, translateLookupErr(err, "appointment")
	}
	return &appt, nil
}

func (s *gormStore) ListAppointments(ctx context.Context, f ListFilter) ([]models.Appointment, int64, error) {
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	query := s.db.WithContext(ctx).Model(&models.Appointment{})
	if f.PatientID != "" {
		query = query.Where("patient_id = ?", f.PatientID)
	}
	if f.DoctorID != "" {
		query = query.Where("doctor_id = ?", f.DoctorID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	limit := f.Limit
	if limit < 1 {
		limit = 10
	}

	var appts []models.Appointment
	err := query.
		Preload("Patient").
		Preload("Doctor").
		Preload("Doctor.User").
		Order("date DESC, start_time DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&appts).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}
	return appts, total, nil
}

func (s *gormStore) UpdateAppointment(ctx context.Context, id string, mutate func(*models.Appointment) error) (*models.Appointment, error) {
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var appt models.Appointment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&appt, "id = ?", id).Error
		if err != nil {
			return translateLookupErr(err, "appointment")
		}
		if err := mutate(&appt); err != nil {
			return err
		}
		if err := tx.Save(&appt).Error; err != nil {
			return fmt.Errorf("save appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetAppointment(ctx, id)
}

func (s *gormStore) CreateMedicalRecord(ctx context.Context, rec *models.MedicalRecord, guard func(*models.Appointment) error) (*models.Appointment, error) {
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	var appt models.Appointment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&appt, "id = ?", rec.AppointmentID).Error
		if err != nil {
			return translateLookupErr(err, "appointment")
		}
		if err := guard(&appt); err != nil {
			return err
		}
		if err := tx.Create(rec).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicateRecord
			}
			return fmt.Errorf("create medical record: %w", err)
		}
		// Record finalized and visit completed commit together or not at all.
		appt.Status = models.StatusCompleted
		appt.SlotKey = nil
		if err := tx.Save(&appt).Error; err != nil {
			return fmt.Errorf("complete appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func (s *gormStore) GetMedicalRecord(ctx context.Context, id string) (*models.MedicalRecord, error) {
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	var rec models.MedicalRecord
	err := s.db.WithContext(ctx).
		Preload("Patient").
		Preload("Doctor").
		Preload("Doctor.User").
		Preload("Appointment").
		First(&rec, "id = ?", id).Error
	if err != nil {
		return nil, translateLookupErr(err, "medical record")
	}
	return &rec, nil
}

func (s *gormStore) ListMedicalRecords(ctx context.Context, f RecordFilter) ([]models.MedicalRecord, error) {
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	query := s.db.WithContext(ctx).Model(&models.MedicalRecord{})
	if f.PatientID != "" {
		query = query.Where("patient_id = ?", f.PatientID)
	}
	if f.DoctorID != "" {
		query = query.Where("doctor_id = ?", f.DoctorID)
	}

	var recs []models.MedicalRecord
	err := query.
		Preload("Patient").
		Preload("Doctor").
		Preload("Doctor.User").
		Preload("Appointment").
		Order("created_at DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list medical records: %w", err)
	}
	return recs, nil
}

func translateLookupErr(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, entity)
	}
	return fmt.Errorf("load %s: %w", entity, err)
}

// isDuplicateKey recognizes unique index violations both through gorm's
// TranslateError mapping and the raw MySQL error code 1062.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
