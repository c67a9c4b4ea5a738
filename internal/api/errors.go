package api

import (
	"alcyxob/health-tracker/internal/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// respondWithServiceError maps service errors onto HTTP statuses. Unknown
// errors are logged and answered with a generic message.
func respondWithServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrTemplateNotFound),
		errors.Is(err, service.ErrWeekNotFound),
		errors.Is(err, service.ErrPlanDayNotFound),
		errors.Is(err, service.ErrProgressNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNoMatchingTemplate):
		abortWithError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrInvalidInput):
		abortWithError(c, http.StatusBadRequest, err.Error())
	default:
		log.WithError(err).WithField("path", c.FullPath()).Error(fallback)
		abortWithError(c, http.StatusInternalServerError, fallback)
	}
}
