package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/greensmil/site_api/internal/middleware"
	"github.com/greensmil/site_api/internal/models"
	"github.com/greensmil/site_api/internal/service"
	"github.com/greensmil/site_api/internal/utils"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) SignIn(c *gin.Context) {
	var req models.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	session, err := h.authService.SignIn(c.Request.Context(), req.Username, req.Password, middleware.ClientIP(c), c.Request.UserAgent())
	if err != nil {
		respondError(c, err)
		return
	}

	utils.Success(c, 200, "Sign-in successful", session)
}

// Me returns the session behind the bearer token.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		utils.Error(c, 401, "UNAUTHORIZED", "Not signed in")
		return
	}
	utils.Success(c, 200, "OK", models.SessionUser{
		Sub:      claims.Subject,
		Username: claims.Username,
		Groups:   claims.Groups,
	})
}
