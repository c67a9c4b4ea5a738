package api

import (
	"alcyxob/health-tracker/internal/domain"
	"alcyxob/health-tracker/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

type ProgressHandler struct {
	progressService service.ProgressService
}

func NewProgressHandler(progressService service.ProgressService) *ProgressHandler {
	return &ProgressHandler{progressService: progressService}
}

// --- DTOs ---

type CompleteDayRequest struct {
	WorkoutID           *string                     `json:"workoutId"`
	ProgressionDecision *domain.ProgressionDecision `json:"progressionDecision" binding:"omitempty,oneof=increase hold reduce"`
	DecisionReason      *string                     `json:"decisionReason"`
}

type SkipDayRequest struct {
	Reason *string `json:"reason"`
}

// --- Handler Methods ---

// CompleteDay godoc
// @Summary Mark a plan day completed
// @Tags Progress
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param progressId path string true "Progress ObjectID Hex"
// @Param outcome body CompleteDayRequest false "Workout and progression decision"
// @Success 200 {object} domain.UserPlanDayProgress
// @Failure 404 {object} gin.H "Progress row not found"
// @Router /plans/progress/{progressId}/complete [post]
func (h *ProgressHandler) CompleteDay(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	progressID, ok := objectIDParam(c, "progressId")
	if !ok {
		return
	}

	var req CompleteDayRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}
	workoutID, err := optionalObjectID(req.WorkoutID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid workoutId format.")
		return
	}

	row, err := h.progressService.MarkDayCompleted(c.Request.Context(), service.MarkDayCompletedInput{
		UserID:              userID,
		ProgressID:          progressID,
		WorkoutID:           workoutID,
		ProgressionDecision: req.ProgressionDecision,
		DecisionReason:      req.DecisionReason,
	})
	if err != nil {
		respondWithServiceError(c, err, "Failed to record completion.")
		return
	}
	c.JSON(http.StatusOK, row)
}

// SkipDay godoc
// @Summary Mark a plan day skipped
// @Tags Progress
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param progressId path string true "Progress ObjectID Hex"
// @Param reason body SkipDayRequest false "Why the day was skipped"
// @Success 200 {object} domain.UserPlanDayProgress
// @Router /plans/progress/{progressId}/skip [post]
func (h *ProgressHandler) SkipDay(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	progressID, ok := objectIDParam(c, "progressId")
	if !ok {
		return
	}

	var req SkipDayRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}

	row, err := h.progressService.MarkDaySkipped(c.Request.Context(), userID, progressID, req.Reason)
	if err != nil {
		respondWithServiceError(c, err, "Failed to record skip.")
		return
	}
	c.JSON(http.StatusOK, row)
}

// GetAdherence godoc
// @Summary Get adherence of my active plan
// @Tags Progress
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.Adherence
// @Router /plans/adherence [get]
func (h *ProgressHandler) GetAdherence(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	adherence, err := h.progressService.GetAdherence(c.Request.Context(), userID)
	if err != nil {
		respondWithServiceError(c, err, "Failed to compute adherence.")
		return
	}
	c.JSON(http.StatusOK, adherence)
}
