package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/greensmil/site_api/internal/models"
	"github.com/greensmil/site_api/internal/service"
	"github.com/greensmil/site_api/internal/utils"
)

type GroupHandler struct {
	groupService *service.GroupService
}

func NewGroupHandler(groupService *service.GroupService) *GroupHandler {
	return &GroupHandler{groupService: groupService}
}

func (h *GroupHandler) ListGroups(c *gin.Context) {
	groups, err := h.groupService.ListGroups(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "OK", groups)
}

func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var req models.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "groupName is required")
		return
	}

	if err := h.groupService.CreateGroup(c.Request.Context(), actor(c), req); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 201, "Group created", nil)
}

func (h *GroupHandler) DeleteGroup(c *gin.Context) {
	if err := h.groupService.DeleteGroup(c.Request.Context(), actor(c), c.Param("group")); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Group deleted", nil)
}
