package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"medibook-server/internal/middleware"
	"medibook-server/internal/models"
	"medibook-server/internal/scheduling"
	"medibook-server/internal/utils"
)

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	Service *scheduling.Service
	Log     zerolog.Logger
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(service *scheduling.Service, log zerolog.Logger) *AppointmentHandler {
	return &AppointmentHandler{Service: service, Log: log}
}

// actorFromContext resolves the authenticated actor placed in the gin context
// by the auth middleware.
func actorFromContext(c *gin.Context) (scheduling.Actor, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return scheduling.Actor{}, false
	}
	role, ok := middleware.GetUserRoleFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User role missing from token")
		return scheduling.Actor{}, false
	}
	return scheduling.Actor{ID: userID, Role: role}, true
}

// respondDomainError maps scheduling outcomes to HTTP statuses. Domain
// rejections are expected results; only unrecognized errors are logged and
// surfaced as a generic server failure.
func respondDomainError(c *gin.Context, log zerolog.Logger, err error) {
	switch {
	case errors.Is(err, scheduling.ErrNotFound):
		utils.NotFound(c, err.Error())
	case errors.Is(err, scheduling.ErrForbidden):
		utils.Forbidden(c, err.Error())
	case errors.Is(err, scheduling.ErrSlotTaken),
		errors.Is(err, scheduling.ErrDuplicateRecord),
		errors.Is(err, scheduling.ErrIllegalTransition):
		utils.Conflict(c, err.Error())
	case errors.Is(err, scheduling.ErrNotCompleted),
		errors.Is(err, scheduling.ErrAlreadyRated),
		errors.Is(err, scheduling.ErrInvalidRating),
		errors.Is(err, scheduling.ErrValidation):
		utils.BadRequest(c, err.Error())
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		utils.InternalServerError(c, "Server error")
	}
}

// TimeSlotRequest is the wall-clock slot the patient picked.
type TimeSlotRequest struct {
	StartTime string `json:"startTime" binding:"required"`
	EndTime   string `json:"endTime" binding:"required"`
}

// CreateAppointmentRequest represents the request body for creating an appointment.
type CreateAppointmentRequest struct {
	DoctorID        string          `json:"doctorId" binding:"required,uuid"`
	Date            string          `json:"date" binding:"required"`
	TimeSlot        TimeSlotRequest `json:"timeSlot" binding:"required"`
	Symptoms        string          `json:"symptoms" binding:"required,max=1000"`
	Notes           string          `json:"notes" binding:"max=500"`
	AppointmentType string          `json:"appointmentType" binding:"omitempty,oneof=consultation follow-up checkup emergency"`
	Priority        string          `json:"priority" binding:"omitempty,oneof=low medium high emergency"`
}

// CreateAppointment books a slot for the authenticated patient.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		utils.BadRequest(c, "Invalid date format, expected YYYY-MM-DD")
		return
	}

	appt, err := h.Service.Book(c.Request.Context(), actor, scheduling.BookRequest{
		DoctorID:        req.DoctorID,
		Date:            date,
		StartTime:       req.TimeSlot.StartTime,
		EndTime:         req.TimeSlot.EndTime,
		Symptoms:        req.Symptoms,
		Notes:           req.Notes,
		AppointmentType: models.AppointmentType(req.AppointmentType),
		Priority:        models.Priority(req.Priority),
	})
	if err != nil {
		respondDomainError(c, h.Log, err)
		return
	}

	utils.Created(c, "Appointment created successfully", appt)
}

// AppointmentPageResponse is the paginated listing payload.
type AppointmentPageResponse struct {
	Count       int                  `json:"count"`
	Total       int64                `json:"total"`
	Pages       int                  `json:"pages"`
	CurrentPage int                  `json:"currentPage"`
	Results     []models.Appointment `json:"results"`
}

// GetAppointmentsForUser handles fetching appointments for the logged-in user
// (patient or doctor), optionally filtered by status and paginated.
func (h *AppointmentHandler) GetAppointmentsForUser(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	status := models.AppointmentStatus(c.Query("status"))

	result, err := h.Service.ListForActor(c.Request.Context(), actor, status, page, limit)
	if err != nil {
		respondDomainError(c, h.Log, err)
		return
	}

	utils.Success(c, "Appointments fetched successfully", AppointmentPageResponse{
		Count:       len(result.Appointments),
		Total:       result.Total,
		Pages:       result.Pages,
		CurrentPage: result.Page,
		Results:     result.Appointments,
	})
}

// GetAppointmentByID handles fetching a single appointment by its ID.
// Accessible by the involved patient, the assigned doctor, or an admin.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	appt, err := h.Service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondDomainError(c, h.Log, err)
		return
	}

	utils.Success(c, "Appointment fetched successfully", appt)
}

// UpdateAppointmentStatusRequest represents the request body for updating an
// appointment's status.
type UpdateAppointmentStatusRequest struct {
	Status models.AppointmentStatus `json:"status" binding:"required,oneof=pending confirmed cancelled completed"`
	Notes  string                   `json:"notes" binding:"max=500"` // Optional notes for status change (e.g., cancellation reason)
}

// UpdateAppointmentStatus drives the appointment state machine. The assigned
// doctor or an admin may use any legal transition; a patient may only cancel
// their own appointment.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	var req UpdateAppointmentStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	appt, err := h.Service.Transition(c.Request.Context(), actor, c.Param("id"), req.Status, req.Notes)
	if err != nil {
		respondDomainError(c, h.Log, err)
		return
	}

	utils.Success(c, "Appointment status updated successfully", appt)
}

// PrescriptionItemRequest mirrors one working-notes prescription line.
type PrescriptionItemRequest struct {
	Medicine     string `json:"medicine" binding:"required"`
	Dosage       string `json:"dosage" binding:"required"`
	Duration     string `json:"duration" binding:"required"`
	Instructions string `json:"instructions"`
}

// UpdateClinicalRequest carries the doctor's working notes for a visit.
// Omitted fields are left unchanged.
type UpdateClinicalRequest struct {
	Diagnosis    *string                   `json:"diagnosis" binding:"omitempty,max=500"`
	Prescription []PrescriptionItemRequest `json:"prescription"`
	LabTests     []string                  `json:"labTests"`
	FollowUpDate *string                   `json:"followUpDate"`
}

// UpdateClinical merges clinical fields into the appointment. Only the
// assigned doctor (or an admin) may write them.
func (h *AppointmentHandler) UpdateClinical(c *gin.Context) {
	var req UpdateClinicalRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	upd := scheduling.ClinicalUpdate{
		Diagnosis:    req.Diagnosis,
		LabTests:     req.LabTests,
		FollowUpDate: req.FollowUpDate,
	}
	for _, p := range req.Prescription {
		upd.Prescription = append(upd.Prescription, models.PrescriptionItem{
			Medicine:     p.Medicine,
			Dosage:       p.Dosage,
			Duration:     p.Duration,
			Instructions: p.Instructions,
		})
	}

	appt, err := h.Service.WriteClinical(c.Request.Context(), actor, c.Param("id"), upd)
	if err != nil {
		respondDomainError(c, h.Log, err)
		return
	}

	utils.Success(c, "Appointment updated successfully", appt)
}

// SubmitFeedbackRequest represents the patient's post-visit rating.
type SubmitFeedbackRequest struct {
	Rating   int    `json:"rating" binding:"required"`
	Feedback string `json:"feedback" binding:"max=500"`
}

// SubmitFeedback records the one-shot rating of a completed appointment.
func (h *AppointmentHandler) SubmitFeedback(c *gin.Context) {
	var req SubmitFeedbackRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	appt, err := h.Service.SubmitFeedback(c.Request.Context(), actor, c.Param("id"), req.Rating, req.Feedback)
	if err != nil {
		respondDomainError(c, h.Log, err)
		return
	}

	utils.Success(c, "Feedback submitted successfully", appt)
}
