package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
)

// AppointmentType describes what kind of visit was booked. Descriptive only,
// it has no effect on the appointment lifecycle.
type AppointmentType string

const (
	TypeConsultation AppointmentType = "consultation"
	TypeFollowUp     AppointmentType = "follow-up"
	TypeCheckup      AppointmentType = "checkup"
	TypeEmergency    AppointmentType = "emergency"
)

// Priority of an appointment. Descriptive only.
type Priority string

const (
	PriorityLow       Priority = "low"
	PriorityMedium    Priority = "medium"
	PriorityHigh      Priority = "high"
	PriorityEmergency Priority = "emergency"
)

// PrescriptionItem is one line of the doctor's working prescription notes.
type PrescriptionItem struct {
	Medicine     string `json:"medicine"`
	Dosage       string `json:"dosage"`
	Duration     string `json:"duration"`
	Instructions string `json:"instructions,omitempty"`
}

// Appointment represents a scheduled medical appointment. Times are the
// doctor's local wall clock ("HH:MM" strings); no timezone conversion is done.
type Appointment struct {
	BaseModel
	PatientID string `gorm:"size:36;index:idx_appt_patient_date" json:"patientId"`
	DoctorID  string `gorm:"size:36;index:idx_appt_doctor_date" json:"doctorId"`

	Date      time.Time `gorm:"type:date;index:idx_appt_patient_date;index:idx_appt_doctor_date" json:"date"`
	StartTime string    `gorm:"size:5" json:"startTime"`
	EndTime   string    `gorm:"size:5" json:"endTime"`

	// SlotKey is set while the appointment holds its slot (pending or
	// confirmed) and cleared when it reaches a terminal status. The unique
	// index is what makes double-booking impossible even across concurrent
	// server instances; MySQL allows any number of NULLs in a unique index.
	SlotKey *string `gorm:"size:64;uniqueIndex" json:"-"`

	Status   AppointmentStatus `gorm:"size:20;default:'pending';index" json:"status"`
	Symptoms string            `gorm:"size:1000" json:"symptoms"`
	Notes    string            `gorm:"size:500" json:"notes,omitempty"`

	// Clinical working notes, written by the assigned doctor ahead of or at
	// completion. The durable patient-facing snapshot lives on MedicalRecord.
	Diagnosis    string                                  `gorm:"size:500" json:"diagnosis,omitempty"`
	Prescription datatypes.JSONSlice[PrescriptionItem]   `json:"prescription,omitempty"`
	LabTests     datatypes.JSONSlice[string]             `json:"labTests,omitempty"`
	FollowUpDate *time.Time                              `json:"followUpDate,omitempty"`

	// Patient feedback, a one-shot latch gated on completion.
	PatientRating   int    `json:"patientRating,omitempty"`
	PatientFeedback string `gorm:"size:500" json:"patientFeedback,omitempty"`
	IsRated         bool   `gorm:"default:false" json:"isRated"`

	AppointmentType AppointmentType `gorm:"size:20;default:'consultation'" json:"appointmentType"`
	Priority        Priority        `gorm:"size:20;default:'medium'" json:"priority"`

	// Relations
	Patient User   `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Doctor  Doctor `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
}

// SlotKeyFor builds the uniqueness key for a doctor's slot. Slot identity is
// exact start-time equality: the booking UI only offers fixed hourly slots.
func SlotKeyFor(doctorID string, date time.Time, startTime string) string {
	return strings.Join([]string{doctorID, date.Format("2006-01-02"), startTime}, "|")
}

// HoldsSlot reports whether the status counts against the doctor's slot.
func (s AppointmentStatus) HoldsSlot() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Terminal reports whether the status has no legal outgoing transition.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}
