package models

import (
	"time"

	"gorm.io/datatypes"
)

// VitalSigns captured during the visit.
type VitalSigns struct {
	BloodPressure string  `json:"bloodPressure,omitempty"`
	HeartRate     int     `json:"heartRate,omitempty"`
	Temperature   float64 `json:"temperature,omitempty"`
	Weight        float64 `json:"weight,omitempty"`
	Height        float64 `json:"height,omitempty"`
}

// RecordPrescription is one prescription line on the durable record.
type RecordPrescription struct {
	Medicine     string `json:"medicine"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Duration     string `json:"duration"`
	Instructions string `json:"instructions,omitempty"`
}

// RecordLabTest is a lab test with its result on the durable record.
type RecordLabTest struct {
	TestName string     `json:"testName"`
	Results  string     `json:"results,omitempty"`
	Notes    string     `json:"notes,omitempty"`
	Date     *time.Time `json:"date,omitempty"`
}

// MedicalRecord is the durable patient-facing artifact of a completed visit.
// Exactly one record may reference a given appointment; creating it is the
// only path by which an appointment becomes completed. Records are never
// updated or deleted by this service.
type MedicalRecord struct {
	BaseModel
	PatientID     string `gorm:"size:36;index:idx_record_patient" json:"patientId"`
	DoctorID      string `gorm:"size:36;index" json:"doctorId"`
	AppointmentID string `gorm:"size:36;uniqueIndex" json:"appointmentId"`

	Diagnosis     string                                  `gorm:"size:500" json:"diagnosis"`
	Symptoms      datatypes.JSONSlice[string]             `json:"symptoms,omitempty"`
	Vitals        datatypes.JSONType[VitalSigns]          `gorm:"column:vital_signs" json:"vitalSigns"`
	Prescriptions datatypes.JSONSlice[RecordPrescription] `json:"prescriptions,omitempty"`
	LabTests      datatypes.JSONSlice[RecordLabTest]      `json:"labTests,omitempty"`

	Notes                string     `gorm:"size:1000" json:"notes,omitempty"`
	FollowUpDate         *time.Time `json:"followUpDate,omitempty"`
	FollowUpInstructions string     `gorm:"size:500" json:"followUpInstructions,omitempty"`
	IsActive             bool       `gorm:"default:true" json:"isActive"`

	// Relations
	Patient     User        `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Doctor      Doctor      `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
	Appointment Appointment `gorm:"foreignKey:AppointmentID" json:"appointment,omitempty"`
}
