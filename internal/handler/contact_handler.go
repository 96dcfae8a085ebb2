package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/greensmil/site_api/internal/middleware"
	"github.com/greensmil/site_api/internal/models"
	"github.com/greensmil/site_api/internal/service"
	"github.com/greensmil/site_api/internal/utils"
)

// ContactHandler serves the public contact form. Rate limiting happens in
// middleware before Submit runs.
type ContactHandler struct {
	contactService *service.ContactService
}

func NewContactHandler(contactService *service.ContactService) *ContactHandler {
	return &ContactHandler{contactService: contactService}
}

// Submit handles POST /v1/contact.
func (h *ContactHandler) Submit(c *gin.Context) {
	var form models.ContactForm
	if err := c.ShouldBindJSON(&form); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Please fill in all fields with valid values")
		return
	}

	ip := middleware.ClientIP(c)
	res, err := h.contactService.Submit(c.Request.Context(), form, ip, c.Request.UserAgent())
	if err != nil {
		respondError(c, err)
		return
	}

	log.Info().Str("ip", ip).Bool("confirmation_sent", res.ConfirmationSent).Msg("Contact form submitted")
	utils.Success(c, 200, res.Message, res)
}
