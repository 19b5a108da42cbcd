package scheduling

import (
	"context"
	"fmt"

	"gorm.io/datatypes"

	"medibook-server/internal/models"
)

// RecordInput is the clinical snapshot supplied by the doctor when closing a
// visit. It is independent of the appointment's own working-notes fields: the
// appointment carries the doctor's drafts, the medical record is the durable
// patient-facing artifact, and the two are intentionally not synchronized.
type RecordInput struct {
	AppointmentID        string
	Diagnosis            string
	Symptoms             []string
	Vitals               models.VitalSigns
	Prescriptions        []models.RecordPrescription
	LabTests             []models.RecordLabTest
	Notes                string
	FollowUpDate         *string // "2006-01-02"
	FollowUpInstructions string
}

// CreateRecord creates the medical record for a confirmed appointment and
// completes the visit in one atomic step. This is the only path into the
// completed status. At most one record may reference an appointment; a
// repeat call fails with ErrDuplicateRecord and completes nothing twice.
func (s *Service) CreateRecord(ctx context.Context, actor Actor, in RecordInput) (*models.MedicalRecord, error) {
	if actor.Role != models.RoleDoctor {
		return nil, fmt.Errorf("%w: only the assigned doctor creates medical records", ErrForbidden)
	}
	if err := validateRecordInput(in); err != nil {
		return nil, err
	}
	followUp, err := parseFollowUpDate(in.FollowUpDate)
	if err != nil {
		return nil, err
	}

	doctor, err := s.store.GetDoctorByUserID(ctx, actor.ID)
	if err != nil {
		return nil, ErrForbidden
	}

	rec := &models.MedicalRecord{
		AppointmentID:        in.AppointmentID,
		DoctorID:             doctor.ID,
		Diagnosis:            in.Diagnosis,
		Symptoms:             in.Symptoms,
		Prescriptions:        in.Prescriptions,
		LabTests:             in.LabTests,
		Notes:                in.Notes,
		FollowUpDate:         followUp,
		FollowUpInstructions: in.FollowUpInstructions,
		IsActive:             true,
	}
	rec.Vitals = datatypes.NewJSONType(in.Vitals)

	_, err = s.store.CreateMedicalRecord(ctx, rec, func(a *models.Appointment) error {
		if a.DoctorID != doctor.ID {
			return fmt.Errorf("%w: appointment belongs to another doctor", ErrForbidden)
		}
		switch a.Status {
		case models.StatusConfirmed:
			// completed is reachable only from confirmed
		case models.StatusCompleted:
			// completed implies a record exists; the linker is the only
			// way an appointment gets here
			return ErrDuplicateRecord
		default:
			return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, a.Status, models.StatusCompleted)
		}
		rec.PatientID = a.PatientID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit("medical_record_created", rec.PatientID, func(ctx context.Context, patient *models.User) error {
		return s.sink.MedicalRecordCreated(ctx, rec, patient)
	})
	return s.store.GetMedicalRecord(ctx, rec.ID)
}

// GetRecord returns a single medical record under the shared read rule.
func (s *Service) GetRecord(ctx context.Context, actor Actor, recordID string) (*models.MedicalRecord, error) {
	rec, err := s.store.GetMedicalRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeView(ctx, actor, rec.PatientID, rec.DoctorID); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListRecordsForActor returns the patient's own records or those the doctor
// authored.
func (s *Service) ListRecordsForActor(ctx context.Context, actor Actor) ([]models.MedicalRecord, error) {
	switch actor.Role {
	case models.RolePatient:
		return s.store.ListMedicalRecords(ctx, RecordFilter{PatientID: actor.ID})
	case models.RoleDoctor:
		doctor, err := s.store.GetDoctorByUserID(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		return s.store.ListMedicalRecords(ctx, RecordFilter{DoctorID: doctor.ID})
	case models.RoleAdmin:
		return s.store.ListMedicalRecords(ctx, RecordFilter{})
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrForbidden, actor.Role)
	}
}

func validateRecordInput(in RecordInput) error {
	if in.AppointmentID == "" {
		return fmt.Errorf("%w: appointment id is required", ErrValidation)
	}
	if in.Diagnosis == "" {
		return fmt.Errorf("%w: diagnosis is required", ErrValidation)
	}
	if len(in.Diagnosis) > 500 {
		return fmt.Errorf("%w: diagnosis too long", ErrValidation)
	}
	if len(in.Notes) > 1000 {
		return fmt.Errorf("%w: notes too long", ErrValidation)
	}
	for _, p := range in.Prescriptions {
		if p.Medicine == "" || p.Dosage == "" || p.Frequency == "" || p.Duration == "" {
			return fmt.Errorf("%w: prescription entries need medicine, dosage, frequency and duration", ErrValidation)
		}
	}
	return nil
}
