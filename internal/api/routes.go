package api

import (
	"alcyxob/health-tracker/internal/domain"
	"alcyxob/health-tracker/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services bundles what the HTTP surface calls into.
type Services struct {
	Plans    service.PlanService
	Schedule service.ScheduleService
	Progress service.ProgressService
	Cleaner  PlanDayCleaner
}

func SetupRoutes(router *gin.Engine, jwtSecret string, services Services, gatherer prometheus.Gatherer) {
	planHandler := NewPlanHandler(services.Plans)
	scheduleHandler := NewScheduleHandler(services.Schedule)
	progressHandler := NewProgressHandler(services.Progress)
	adminHandler := NewAdminHandler(services.Cleaner)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	apiV1 := router.Group("/api/v1")
	protected := apiV1.Group("")
	protected.Use(AuthMiddleware(jwtSecret))
	{
		plans := protected.Group("/plans")
		{
			plans.GET("/active", planHandler.GetActivePlan)
			plans.GET("/editor", planHandler.GetPlanForEditing)
			plans.POST("/assign", planHandler.AssignTemplate)
			plans.POST("/default", planHandler.CreateDefaultPlan)

			plans.GET("/schedule", scheduleHandler.GetCurrentWeekSchedule)
			plans.GET("/today", scheduleHandler.GetTodaySummary)
			plans.PUT("/weeks/:weekId/days/:dayOfWeek", scheduleHandler.UpsertWeekDay)
			plans.POST("/days/:dayId/exercises", scheduleHandler.AddExercise)
			plans.PUT("/days/:dayId/exercises/order", scheduleHandler.ReorderPrescriptions)
			plans.DELETE("/prescriptions/:prescriptionId", scheduleHandler.RemovePrescription)

			plans.GET("/adherence", progressHandler.GetAdherence)
			plans.POST("/progress/:progressId/complete", progressHandler.CompleteDay)
			plans.POST("/progress/:progressId/skip", progressHandler.SkipDay)
		}

		// Maintenance
		admin := protected.Group("/admin")
		admin.Use(RoleMiddleware(domain.RoleAdmin))
		{
			admin.POST("/plan-days/cleanup", adminHandler.CleanupPlanDays)
		}
	}
}
