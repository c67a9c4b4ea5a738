package api

import (
	"alcyxob/health-tracker/internal/service"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PlanHandler struct {
	planService service.PlanService
}

func NewPlanHandler(planService service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// --- DTOs ---

type AssignTemplateRequest struct {
	TemplateID   string     `json:"templateId" binding:"required"`
	GymProfileID *string    `json:"gymProfileId"`
	StartDate    *time.Time `json:"startDate"` // RFC 3339; defaults to today
	Exclusions   []string   `json:"exclusions"`
}

type CreateDefaultPlanRequest struct {
	Goal            string `json:"goal" binding:"required"`
	ExperienceLevel string `json:"experienceLevel" binding:"required"`
	DaysPerWeek     int    `json:"daysPerWeek" binding:"required,min=1,max=7"`
}

// --- Handler Methods ---

// GetActivePlan godoc
// @Summary Get my active plan
// @Description Returns the active plan instance, its template and the current week. The body is null when no plan is active.
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.ActivePlan
// @Router /plans/active [get]
func (h *PlanHandler) GetActivePlan(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	plan, err := h.planService.GetActivePlan(c.Request.Context(), userID)
	if err != nil {
		respondWithServiceError(c, err, "Failed to load active plan.")
		return
	}
	c.JSON(http.StatusOK, plan)
}

// GetPlanForEditing godoc
// @Summary Get my plan tree for editing
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.PlanEditView
// @Router /plans/editor [get]
func (h *PlanHandler) GetPlanForEditing(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	view, err := h.planService.GetPlanForEditing(c.Request.Context(), userID)
	if err != nil {
		respondWithServiceError(c, err, "Failed to load plan.")
		return
	}
	c.JSON(http.StatusOK, view)
}

// AssignTemplate godoc
// @Summary Start a plan from a template
// @Description Pauses the current active plan and starts a new one.
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param plan body AssignTemplateRequest true "Template to assign"
// @Success 201 {object} domain.UserPlanInstance
// @Failure 404 {object} gin.H "Template not found"
// @Router /plans/assign [post]
func (h *PlanHandler) AssignTemplate(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var req AssignTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	templateID, err := primitive.ObjectIDFromHex(req.TemplateID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid templateId format.")
		return
	}
	gymProfileID, err := optionalObjectID(req.GymProfileID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid gymProfileId format.")
		return
	}

	instance, err := h.planService.AssignTemplate(c.Request.Context(), service.AssignTemplateInput{
		UserID:       userID,
		TemplateID:   templateID,
		GymProfileID: gymProfileID,
		StartDate:    req.StartDate,
		Exclusions:   req.Exclusions,
	})
	if err != nil {
		respondWithServiceError(c, err, "Failed to assign plan.")
		return
	}
	c.JSON(http.StatusCreated, instance)
}

// CreateDefaultPlan godoc
// @Summary Start the default plan for my profile
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param profile body CreateDefaultPlanRequest true "Training profile"
// @Success 201 {object} domain.UserPlanInstance
// @Failure 422 {object} gin.H "No template matches the profile"
// @Router /plans/default [post]
func (h *PlanHandler) CreateDefaultPlan(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var req CreateDefaultPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	instance, err := h.planService.CreateDefaultPlanForUser(c.Request.Context(), userID, req.Goal, req.ExperienceLevel, req.DaysPerWeek)
	if err != nil {
		respondWithServiceError(c, err, "Failed to create default plan.")
		return
	}
	log.WithFields(log.Fields{"user": userID.Hex(), "goal": req.Goal}).Debug("default plan created")
	c.JSON(http.StatusCreated, instance)
}
