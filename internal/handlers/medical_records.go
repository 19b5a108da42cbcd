package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"medibook-server/internal/models"
	"medibook-server/internal/scheduling"
	"medibook-server/internal/utils"
)

// MedicalRecordHandler handles medical record related requests.
type MedicalRecordHandler struct {
	Service *scheduling.Service
	Log     zerolog.Logger
}

// NewMedicalRecordHandler creates a new MedicalRecordHandler.
func NewMedicalRecordHandler(service *scheduling.Service, log zerolog.Logger) *MedicalRecordHandler {
	return &MedicalRecordHandler{Service: service, Log: log}
}

// VitalSignsRequest mirrors the vitals captured during the visit.
type VitalSignsRequest struct {
	BloodPressure string  `json:"bloodPressure"`
	HeartRate     int     `json:"heartRate"`
	Temperature   float64 `json:"temperature"`
	Weight        float64 `json:"weight"`
	Height        float64 `json:"height"`
}

// RecordPrescriptionRequest is one prescription line on the durable record.
type RecordPrescriptionRequest struct {
	Medicine     string `json:"medicine" binding:"required"`
	Dosage       string `json:"dosage" binding:"required"`
	Frequency    string `json:"frequency" binding:"required"`
	Duration     string `json:"duration" binding:"required"`
	Instructions string `json:"instructions"`
}

// RecordLabTestRequest is one lab test entry on the durable record.
type RecordLabTestRequest struct {
	TestName string `json:"testName" binding:"required"`
	Results  string `json:"results"`
	Notes    string `json:"notes"`
	Date     string `json:"date"`
}

// CreateMedicalRecordRequest represents the request body for creating a
// medical record. Creating the record also completes the appointment.
type CreateMedicalRecordRequest struct {
	AppointmentID        string                      `json:"appointmentId" binding:"required,uuid"`
	Diagnosis            string                      `json:"diagnosis" binding:"required,max=500"`
	Symptoms             []string                    `json:"symptoms"`
	VitalSigns           VitalSignsRequest           `json:"vitalSigns"`
	Prescriptions        []RecordPrescriptionRequest `json:"prescriptions"`
	LabTests             []RecordLabTestRequest      `json:"labTests"`
	Notes                string                      `json:"notes" binding:"max=1000"`
	FollowUpDate         *string                     `json:"followUpDate"`
	FollowUpInstructions string                      `json:"followUpInstructions" binding:"max=500"`
}

// CreateMedicalRecord finalizes a visit: it snapshots the clinical data and
// marks the appointment completed in one step. Only the assigned doctor may
// call it, and only once per appointment.
func (h *MedicalRecordHandler) CreateMedicalRecord(c *gin.Context) {
	var req CreateMedicalRecordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	in := scheduling.RecordInput{
		AppointmentID: req.AppointmentID,
		Diagnosis:     req.Diagnosis,
		Symptoms:      req.Symptoms,
		Vitals: models.VitalSigns{
			BloodPressure: req.VitalSigns.BloodPressure,
			HeartRate:     req.VitalSigns.HeartRate,
			Temperature:   req.VitalSigns.Temperature,
			Weight:        req.VitalSigns.Weight,
			Height:        req.VitalSigns.Height,
		},
		Notes:                req.Notes,
		FollowUpDate:         req.FollowUpDate,
		FollowUpInstructions: req.FollowUpInstructions,
	}
	for _, p := range req.Prescriptions {
		in.Prescriptions = append(in.Prescriptions, models.RecordPrescription{
			Medicine:     p.Medicine,
			Dosage:       p.Dosage,
			Frequency:    p.Frequency,
			Duration:     p.Duration,
			Instructions: p.Instructions,
		})
	}
	for _, t := range req.LabTests {
		entry := models.RecordLabTest{TestName: t.TestName, Results: t.Results, Notes: t.Notes}
		if t.Date != "" {
			if parsed, err := time.Parse("2006-01-02", t.Date); err == nil {
				entry.Date = &parsed
			} else {
				utils.BadRequest(c, "Invalid lab test date, expected YYYY-MM-DD")
				return
			}
		}
		in.LabTests = append(in.LabTests, entry)
	}

	rec, err := h.Service.CreateRecord(c.Request.Context(), actor, in)
	if err != nil {
		respondDomainError(c, h.Log, err)
		return
	}

	utils.Created(c, "Medical record created successfully", rec)
}

// GetMyMedicalRecords returns the records owned by the acting patient or
// authored by the acting doctor.
func (h *MedicalRecordHandler) GetMyMedicalRecords(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	records, err := h.Service.ListRecordsForActor(c.Request.Context(), actor)
	if err != nil {
		respondDomainError(c, h.Log, err)
		return
	}

	utils.Success(c, "Medical records fetched successfully", gin.H{
		"count":   len(records),
		"results": records,
	})
}

// GetMedicalRecordByID fetches a single record under the shared read rule.
func (h *MedicalRecordHandler) GetMedicalRecordByID(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	rec, err := h.Service.GetRecord(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondDomainError(c, h.Log, err)
		return
	}

	utils.Success(c, "Medical record fetched successfully", rec)
}
