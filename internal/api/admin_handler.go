package api

import (
	"alcyxob/health-tracker/internal/service"
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// PlanDayCleaner is the maintenance entry point of the reconciler.
type PlanDayCleaner interface {
	CleanupDuplicatePlanDays(ctx context.Context, dryRun bool) (*service.CleanupReport, error)
}

type AdminHandler struct {
	cleaner PlanDayCleaner
}

func NewAdminHandler(cleaner PlanDayCleaner) *AdminHandler {
	return &AdminHandler{cleaner: cleaner}
}

// CleanupPlanDays godoc
// @Summary Merge duplicate plan days
// @Description Runs the duplicate plan day cleanup. dryRun defaults to true.
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param dryRun query bool false "Report without writing"
// @Success 200 {object} service.CleanupReport
// @Failure 403 {object} gin.H "Caller is not an admin"
// @Router /admin/plan-days/cleanup [post]
func (h *AdminHandler) CleanupPlanDays(c *gin.Context) {
	dryRun := true
	if raw := c.Query("dryRun"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "dryRun must be true or false.")
			return
		}
		dryRun = parsed
	}

	report, err := h.cleaner.CleanupDuplicatePlanDays(c.Request.Context(), dryRun)
	if err != nil {
		respondWithServiceError(c, err, "Plan day cleanup failed.")
		return
	}
	c.JSON(http.StatusOK, report)
}
