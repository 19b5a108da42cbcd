package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"medibook-server/internal/models"
)

func newMockStore(t *testing.T) (Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(gormmysql.New(gormmysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	return NewStore(db, time.Second), mock
}

func TestStoreGetAppointmentNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM `appointments`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.GetAppointment(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreCreateAppointmentTranslatesDuplicateSlot(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `appointments`").
		WillReturnError(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	key := models.SlotKeyFor("doc-1", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), "09:00")
	appt := &models.Appointment{
		PatientID: "pat-1",
		DoctorID:  "doc-1",
		Date:      time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		StartTime: "09:00",
		EndTime:   "10:00",
		SlotKey:   &key,
		Status:    models.StatusPending,
		Symptoms:  "cough",
	}
	err := store.CreateAppointment(context.Background(), appt)
	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreGetDoctorByUserID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM `doctors`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "specialization"}).
			AddRow("doc-1", "user-9", "Cardiology"))

	doctor, err := store.GetDoctorByUserID(context.Background(), "user-9")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", doctor.ID)
	assert.Equal(t, "Cardiology", doctor.Specialization)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreUpdateAppointmentAbortsOnMutateError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `appointments` (.+)FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).
			AddRow("appt-1", "pending"))
	mock.ExpectRollback()

	_, err := store.UpdateAppointment(context.Background(), "appt-1", func(a *models.Appointment) error {
		return ErrForbidden
	})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}
