package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"linkgate/internal/apperr"
	"linkgate/internal/logging"
	"linkgate/internal/service"
)

// respondError renders err as {"error": message, ...details}. Internal
// errors are logged and never leak their cause.
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		logging.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	_ = c.Error(err)

	if status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable {
		if secs := service.RetryAfterSeconds(err, time.Now()); secs != "" {
			c.Header("Retry-After", secs)
		}
	}

	body := gin.H{}
	for k, v := range apperr.DetailsOf(err) {
		body[k] = v
	}
	body["error"] = apperr.PublicMessage(err)
	c.AbortWithStatusJSON(status, body)
}

// respondBindError reports a request body that failed to decode or validate.
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":  "Invalid request body",
			"fields": fields,
		})
		return
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request body",
		"details": err.Error(),
	})
}
