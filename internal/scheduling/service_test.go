package scheduling

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medibook-server/internal/models"
)

func TestBookReservesSlot(t *testing.T) {
	f := newFixture()

	appt, err := f.service.Book(context.Background(), f.patientActor(f.patientA), f.bookRequest())
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, appt.Status)
	assert.Equal(t, f.patientA.ID, appt.PatientID)
	assert.Equal(t, f.doctor.ID, appt.DoctorID)
	assert.Equal(t, "09:00", appt.StartTime)
	assert.Equal(t, models.TypeConsultation, appt.AppointmentType)
	assert.Equal(t, models.PriorityMedium, appt.Priority)

	require.Eventually(t, func() bool {
		return f.sink.count("booked") == 1
	}, time.Second, 10*time.Millisecond)
}

func TestBookSameSlotConflicts(t *testing.T) {
	f := newFixture()

	_, err := f.service.Book(context.Background(), f.patientActor(f.patientA), f.bookRequest())
	require.NoError(t, err)

	_, err = f.service.Book(context.Background(), f.patientActor(f.patientB), f.bookRequest())
	assert.ErrorIs(t, err, ErrSlotTaken)
}

func TestBookDifferentTimesDoNotConflict(t *testing.T) {
	f := newFixture()

	_, err := f.service.Book(context.Background(), f.patientActor(f.patientA), f.bookRequest())
	require.NoError(t, err)

	req := f.bookRequest()
	req.StartTime = "10:00"
	req.EndTime = "11:00"
	_, err = f.service.Book(context.Background(), f.patientActor(f.patientB), req)
	assert.NoError(t, err)
}

func TestBookSlotFreedByCancellation(t *testing.T) {
	f := newFixture()

	appt, err := f.service.Book(context.Background(), f.patientActor(f.patientA), f.bookRequest())
	require.NoError(t, err)

	_, err = f.service.Transition(context.Background(), f.doctorActor(), appt.ID, models.StatusCancelled, "")
	require.NoError(t, err)

	// Cancelled appointments no longer hold the slot
	_, err = f.service.Book(context.Background(), f.patientActor(f.patientB), f.bookRequest())
	assert.NoError(t, err)
}

func TestBookConcurrentRequestsOnlyOneWins(t *testing.T) {
	f := newFixture()

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			patient := f.patientA
			if i%2 == 0 {
				patient = f.patientB
			}
			_, errs[i] = f.service.Book(context.Background(), f.patientActor(patient), f.bookRequest())
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, ErrSlotTaken)
		}
	}
	assert.Equal(t, 1, won)
}

func TestBookValidation(t *testing.T) {
	f := newFixture()
	actor := f.patientActor(f.patientA)

	cases := []struct {
		name   string
		mutate func(*BookRequest)
	}{
		{"missing symptoms", func(r *BookRequest) { r.Symptoms = "" }},
		{"start after end", func(r *BookRequest) { r.StartTime, r.EndTime = "11:00", "10:00" }},
		{"start equals end", func(r *BookRequest) { r.EndTime = r.StartTime }},
		{"malformed time", func(r *BookRequest) { r.StartTime = "9am" }},
		{"past date", func(r *BookRequest) { r.Date = time.Now().AddDate(0, 0, -1) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := f.bookRequest()
			tc.mutate(&req)
			_, err := f.service.Book(context.Background(), actor, req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestBookUnknownDoctor(t *testing.T) {
	f := newFixture()

	req := f.bookRequest()
	req.DoctorID = "no-such-doctor"
	_, err := f.service.Book(context.Background(), f.patientActor(f.patientA), req)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBookRequiresPatientRole(t *testing.T) {
	f := newFixture()

	_, err := f.service.Book(context.Background(), f.doctorActor(), f.bookRequest())
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestListForActorScopesAndPaginates(t *testing.T) {
	f := newFixture()
	actor := f.patientActor(f.patientA)

	for i := 0; i < 5; i++ {
		req := f.bookRequest()
		req.Date = time.Now().AddDate(0, 0, i+1)
		_, err := f.service.Book(context.Background(), actor, req)
		require.NoError(t, err)
	}
	// One booking by another patient must not leak into A's listing
	otherReq := f.bookRequest()
	otherReq.Date = time.Now().AddDate(0, 0, 10)
	_, err := f.service.Book(context.Background(), f.patientActor(f.patientB), otherReq)
	require.NoError(t, err)

	page, err := f.service.ListForActor(context.Background(), actor, "", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 3, page.Pages)
	assert.Len(t, page.Appointments, 2)

	// Doctor sees everything on their schedule
	docPage, err := f.service.ListForActor(context.Background(), f.doctorActor(), "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(6), docPage.Total)
}

func TestListForActorStatusFilter(t *testing.T) {
	f := newFixture()
	actor := f.patientActor(f.patientA)

	first, err := f.service.Book(context.Background(), actor, f.bookRequest())
	require.NoError(t, err)
	second := f.bookRequest()
	second.Date = time.Now().AddDate(0, 0, 8)
	_, err = f.service.Book(context.Background(), actor, second)
	require.NoError(t, err)

	_, err = f.service.Transition(context.Background(), f.doctorActor(), first.ID, models.StatusConfirmed, "")
	require.NoError(t, err)

	page, err := f.service.ListForActor(context.Background(), actor, models.StatusConfirmed, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Appointments, 1)
	assert.Equal(t, first.ID, page.Appointments[0].ID)
}

func TestGetAuthorization(t *testing.T) {
	f := newFixture()

	appt, err := f.service.Book(context.Background(), f.patientActor(f.patientA), f.bookRequest())
	require.NoError(t, err)

	_, err = f.service.Get(context.Background(), f.patientActor(f.patientA), appt.ID)
	assert.NoError(t, err)

	_, err = f.service.Get(context.Background(), f.doctorActor(), appt.ID)
	assert.NoError(t, err)

	_, err = f.service.Get(context.Background(), Actor{ID: "root", Role: models.RoleAdmin}, appt.ID)
	assert.NoError(t, err)

	_, err = f.service.Get(context.Background(), f.patientActor(f.patientB), appt.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.service.Get(context.Background(), f.patientActor(f.patientA), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNotificationFailureDoesNotAffectBooking(t *testing.T) {
	f := newFixture()
	f.sink.fail = true

	_, err := f.service.Book(context.Background(), f.patientActor(f.patientA), f.bookRequest())
	assert.NoError(t, err)

	require.Eventually(t, func() bool {
		return f.sink.count("booked") == 1
	}, time.Second, 10*time.Millisecond)
}
