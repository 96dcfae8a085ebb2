package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/greensmil/site_api/internal/middleware"
	"github.com/greensmil/site_api/internal/service"
	"github.com/greensmil/site_api/internal/utils"
)

// respondError maps service errors to the response envelope. Unknown errors
// are logged and reported as a generic 500.
func respondError(c *gin.Context, err error) {
	var captchaErr *service.CaptchaError

	switch {
	case errors.As(err, &captchaErr):
		msg := "reCAPTCHA verification failed"
		if len(captchaErr.ErrorCodes) > 0 {
			msg += ": " + strings.Join(captchaErr.ErrorCodes, ", ")
		}
		utils.Error(c, http.StatusBadRequest, "CAPTCHA_FAILED", msg)
	case errors.Is(err, utils.ErrCaptchaRequired):
		utils.Error(c, http.StatusBadRequest, "CAPTCHA_REQUIRED", "reCAPTCHA token is required")
	case errors.Is(err, utils.ErrInvalidCredentials):
		utils.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password")
	case errors.Is(err, utils.ErrChallengeRequired):
		utils.Error(c, http.StatusUnauthorized, "CHALLENGE_REQUIRED", "Additional sign-in step required")
	case errors.Is(err, utils.ErrInvalidToken):
		utils.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
	case errors.Is(err, utils.ErrForbidden):
		utils.Error(c, http.StatusForbidden, "FORBIDDEN", "Insufficient privileges")
	case errors.Is(err, utils.ErrUserNotFound):
		utils.Error(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	case errors.Is(err, utils.ErrGroupNotFound):
		utils.Error(c, http.StatusNotFound, "GROUP_NOT_FOUND", "Group not found")
	case errors.Is(err, utils.ErrUserExists):
		utils.Error(c, http.StatusConflict, "USER_EXISTS", "User already exists")
	case errors.Is(err, utils.ErrGroupExists):
		utils.Error(c, http.StatusConflict, "GROUP_EXISTS", "Group already exists")
	case errors.Is(err, utils.ErrInvalidInput):
		utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request")
	case errors.Is(err, utils.ErrRateLimited):
		utils.Error(c, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
	case errors.Is(err, utils.ErrEmailNotConfigured), errors.Is(err, utils.ErrEmailFailed):
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Email delivery unavailable")
		utils.Error(c, http.StatusInternalServerError, "EMAIL_FAILED", "Failed to send message. Please try again later.")
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		utils.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

// actor describes the authenticated admin behind the request.
func actor(c *gin.Context) service.Actor {
	a := service.Actor{IP: middleware.ClientIP(c), UserAgent: c.Request.UserAgent()}
	if claims := middleware.GetClaims(c); claims != nil {
		a.Username = claims.Username
	}
	return a
}
