package handler

import (
	"net"

	"github.com/gin-gonic/gin"

	"github.com/greensmil/site_api/internal/service"
	"github.com/greensmil/site_api/internal/utils"
)

// SecurityHandler exposes the security log to admins.
type SecurityHandler struct {
	securityService *service.SecurityService
}

func NewSecurityHandler(securityService *service.SecurityService) *SecurityHandler {
	return &SecurityHandler{securityService: securityService}
}

// Dashboard handles GET /v1/admin/security/dashboard.
func (h *SecurityHandler) Dashboard(c *gin.Context) {
	utils.Success(c, 200, "OK", h.securityService.Dashboard())
}

// ClearOld handles DELETE /v1/admin/security/events.
func (h *SecurityHandler) ClearOld(c *gin.Context) {
	removed := h.securityService.ClearOld(actor(c))
	utils.Success(c, 200, "Old security events cleared", gin.H{"removed": removed})
}

// CheckIP handles GET /v1/admin/security/suspicious?ip=
func (h *SecurityHandler) CheckIP(c *gin.Context) {
	ip := c.Query("ip")
	if net.ParseIP(ip) == nil {
		utils.Error(c, 400, "INVALID_REQUEST", "ip must be a valid IP address")
		return
	}
	utils.Success(c, 200, "OK", h.securityService.CheckIP(ip))
}
