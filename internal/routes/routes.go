package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"medibook-server/internal/config"
	"medibook-server/internal/handlers"
	"medibook-server/internal/middleware"
	"medibook-server/internal/models"
	"medibook-server/internal/scheduling"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, service *scheduling.Service, cfg *config.Config, log zerolog.Logger) {
	// Initialize handlers
	appointmentHandler := handlers.NewAppointmentHandler(service, log)
	medicalRecordHandler := handlers.NewMedicalRecordHandler(service, log)

	// All API routes require an authenticated actor from the identity
	// directory; this service performs no authentication of its own.
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		// Appointment routes
		appointmentRoutes := private.Group("/appointments")
		{
			// Patients book slots for themselves
			appointmentRoutes.POST("", middleware.RoleAuthMiddleware(models.RolePatient), appointmentHandler.CreateAppointment)

			// Role-scoped listing with status filter and pagination
			appointmentRoutes.GET("", appointmentHandler.GetAppointmentsForUser)

			// Specific appointment access (owning patient, assigned doctor, or admin)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID) // Authorization inside handler

			// Status transitions (doctor/admin; patients may cancel - policy inside the service)
			appointmentRoutes.PATCH("/:id/status", appointmentHandler.UpdateAppointmentStatus)

			// Clinical working notes (assigned doctor or admin)
			appointmentRoutes.PUT("/:id/medical", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), appointmentHandler.UpdateClinical)

			// Post-visit feedback (owning patient, completed visits only)
			appointmentRoutes.POST("/:id/feedback", middleware.RoleAuthMiddleware(models.RolePatient), appointmentHandler.SubmitFeedback)
		}

		// Medical Record routes
		medicalRecordRoutes := private.Group("/medical-records")
		{
			// Creating a record completes the appointment; assigned doctor only
			medicalRecordRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleDoctor), medicalRecordHandler.CreateMedicalRecord)

			// Patients see their own records, doctors the ones they authored
			medicalRecordRoutes.GET("", medicalRecordHandler.GetMyMedicalRecords)

			// Single record access (owning patient, authoring doctor, or admin)
			medicalRecordRoutes.GET("/:id", medicalRecordHandler.GetMedicalRecordByID)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
