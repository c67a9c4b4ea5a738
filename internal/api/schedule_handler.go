package api

import (
	"alcyxob/health-tracker/internal/service"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ScheduleHandler struct {
	scheduleService service.ScheduleService
}

func NewScheduleHandler(scheduleService service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleService: scheduleService}
}

// --- DTOs ---

type UpsertWeekDayRequest struct {
	TemplateID        string  `json:"templateId" binding:"required"`
	Focus             string  `json:"focus"`
	Name              *string `json:"name"`
	EstimatedMinutes  *int    `json:"estimatedMinutes" binding:"omitempty,min=0"`
	ExistingPlanDayID *string `json:"existingPlanDayId"`
}

type AddExerciseRequest struct {
	ExerciseVariantID *string  `json:"exerciseVariantId"`
	ExerciseLibraryID *string  `json:"exerciseLibraryId"`
	TargetSets        int      `json:"targetSets" binding:"min=0"`
	TargetReps        string   `json:"targetReps"`
	TargetRIR         *int     `json:"targetRir" binding:"omitempty,min=0"`
	RestSeconds       int      `json:"restSeconds" binding:"min=0"`
	Notes             string   `json:"notes"`
	SubstitutionTags  []string `json:"substitutionTags"`
}

type ReorderPrescriptionsRequest struct {
	PrescriptionIDs []string `json:"prescriptionIds" binding:"required"`
}

// --- Handler Methods ---

// GetCurrentWeekSchedule godoc
// @Summary Get this week's schedule
// @Description Seven slots, Sunday first; slots without a plan day are rest placeholders.
// @Tags Schedule
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.WeekSchedule
// @Router /plans/schedule [get]
func (h *ScheduleHandler) GetCurrentWeekSchedule(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	schedule, err := h.scheduleService.GetCurrentWeekSchedule(c.Request.Context(), userID)
	if err != nil {
		respondWithServiceError(c, err, "Failed to load schedule.")
		return
	}
	c.JSON(http.StatusOK, schedule)
}

// GetTodaySummary godoc
// @Summary Get today's plan day
// @Tags Schedule
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.TodaySummary
// @Router /plans/today [get]
func (h *ScheduleHandler) GetTodaySummary(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	summary, err := h.scheduleService.GetTodayPlanSummary(c.Request.Context(), userID)
	if err != nil {
		respondWithServiceError(c, err, "Failed to load today's plan.")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// UpsertWeekDay godoc
// @Summary Create or update the plan day of a weekday
// @Tags Schedule
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param weekId path string true "Plan week ObjectID Hex"
// @Param dayOfWeek path int true "0 (Sunday) to 6 (Saturday)"
// @Param day body UpsertWeekDayRequest true "Day fields"
// @Success 200 {object} service.UpsertWeekDayResult
// @Failure 404 {object} gin.H "Week or plan day not found"
// @Router /plans/weeks/{weekId}/days/{dayOfWeek} [put]
func (h *ScheduleHandler) UpsertWeekDay(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	weekID, ok := objectIDParam(c, "weekId")
	if !ok {
		return
	}
	dayOfWeek, err := strconv.Atoi(c.Param("dayOfWeek"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid dayOfWeek.")
		return
	}

	var req UpsertWeekDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	templateID, err := primitive.ObjectIDFromHex(req.TemplateID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid templateId format.")
		return
	}
	existingID, err := optionalObjectID(req.ExistingPlanDayID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid existingPlanDayId format.")
		return
	}

	result, err := h.scheduleService.UpsertWeekDay(c.Request.Context(), service.UpsertWeekDayInput{
		UserID:            userID,
		WeekID:            weekID,
		TemplateID:        templateID,
		DayOfWeek:         dayOfWeek,
		Focus:             req.Focus,
		Name:              req.Name,
		EstimatedMinutes:  req.EstimatedMinutes,
		ExistingPlanDayID: existingID,
	})
	if err != nil {
		respondWithServiceError(c, err, "Failed to save plan day.")
		return
	}
	c.JSON(http.StatusOK, result)
}

// AddExercise godoc
// @Summary Append an exercise to a plan day
// @Tags Schedule
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param dayId path string true "Plan day ObjectID Hex"
// @Param exercise body AddExerciseRequest true "Prescription"
// @Success 201 {object} domain.PlanPrescription
// @Router /plans/days/{dayId}/exercises [post]
func (h *ScheduleHandler) AddExercise(c *gin.Context) {
	dayID, ok := objectIDParam(c, "dayId")
	if !ok {
		return
	}
	var req AddExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	variantID, err := optionalObjectID(req.ExerciseVariantID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid exerciseVariantId format.")
		return
	}
	libraryID, err := optionalObjectID(req.ExerciseLibraryID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid exerciseLibraryId format.")
		return
	}

	prescription, err := h.scheduleService.AddExerciseToPlanDay(c.Request.Context(), dayID, service.AddExerciseInput{
		ExerciseVariantID: variantID,
		ExerciseLibraryID: libraryID,
		TargetSets:        req.TargetSets,
		TargetReps:        req.TargetReps,
		TargetRIR:         req.TargetRIR,
		RestSeconds:       req.RestSeconds,
		Notes:             req.Notes,
		SubstitutionTags:  req.SubstitutionTags,
	})
	if err != nil {
		respondWithServiceError(c, err, "Failed to add exercise.")
		return
	}
	c.JSON(http.StatusCreated, prescription)
}

// ReorderPrescriptions godoc
// @Summary Reorder the exercises of a plan day
// @Tags Schedule
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param dayId path string true "Plan day ObjectID Hex"
// @Param order body ReorderPrescriptionsRequest true "Prescription IDs in the new order"
// @Success 200 {array} domain.PlanPrescription
// @Router /plans/days/{dayId}/exercises/order [put]
func (h *ScheduleHandler) ReorderPrescriptions(c *gin.Context) {
	dayID, ok := objectIDParam(c, "dayId")
	if !ok {
		return
	}
	var req ReorderPrescriptionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	ids := make([]primitive.ObjectID, 0, len(req.PrescriptionIDs))
	for _, hex := range req.PrescriptionIDs {
		id, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid prescription ID format: "+hex)
			return
		}
		ids = append(ids, id)
	}

	prescriptions, err := h.scheduleService.ReorderPlanPrescriptions(c.Request.Context(), dayID, ids)
	if err != nil {
		respondWithServiceError(c, err, "Failed to reorder exercises.")
		return
	}
	c.JSON(http.StatusOK, prescriptions)
}

// RemovePrescription godoc
// @Summary Remove an exercise from a plan day
// @Description Idempotent; removing a missing prescription reports alreadyDeleted.
// @Tags Schedule
// @Produce json
// @Security BearerAuth
// @Param prescriptionId path string true "Prescription ObjectID Hex"
// @Success 200 {object} service.RemovePrescriptionResult
// @Router /plans/prescriptions/{prescriptionId} [delete]
func (h *ScheduleHandler) RemovePrescription(c *gin.Context) {
	prescriptionID, ok := objectIDParam(c, "prescriptionId")
	if !ok {
		return
	}
	result, err := h.scheduleService.RemovePlanPrescription(c.Request.Context(), prescriptionID)
	if err != nil {
		respondWithServiceError(c, err, "Failed to remove exercise.")
		return
	}
	c.JSON(http.StatusOK, result)
}
