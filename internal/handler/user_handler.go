package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/greensmil/site_api/internal/models"
	"github.com/greensmil/site_api/internal/service"
	"github.com/greensmil/site_api/internal/utils"
)

// UserHandler serves /v1/admin/users and /v1/admin/system.
type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// ListUsers handles GET /v1/admin/users?limit=&paginationToken=
func (h *UserHandler) ListUsers(c *gin.Context) {
	limit := service.MaxListUsersLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			utils.Error(c, 400, "INVALID_REQUEST", "limit must be a positive integer")
			return
		}
		limit = min(n, service.MaxListUsersLimit)
	}

	page, err := h.userService.ListUsers(c.Request.Context(), limit, c.Query("paginationToken"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithPagination(c, 200, "OK", page, limit, page.NextToken)
}

func (h *UserHandler) CountUsers(c *gin.Context) {
	total, err := h.userService.CountUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "OK", models.UserCount{Count: total})
}

func (h *UserHandler) ApproximateCount(c *gin.Context) {
	count, err := h.userService.ApproximateUserCount(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "OK", count)
}

func (h *UserHandler) ActiveUsers(c *gin.Context) {
	utils.Success(c, 200, "OK", gin.H{"count": h.userService.ActiveUsers(c.Request.Context())})
}

func (h *UserHandler) SystemStatus(c *gin.Context) {
	utils.Success(c, 200, "OK", h.userService.SystemStatus(c.Request.Context()))
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "A valid email is required")
		return
	}

	created, err := h.userService.CreateUser(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 201, "User created", created)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	if err := h.userService.UpdateUser(c.Request.Context(), actor(c), c.Param("username"), req.Attributes); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "User updated", nil)
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.userService.DeleteUser(c.Request.Context(), actor(c), c.Param("username")); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "User deleted", nil)
}

func (h *UserHandler) EnableUser(c *gin.Context)  { h.setEnabled(c, true) }
func (h *UserHandler) DisableUser(c *gin.Context) { h.setEnabled(c, false) }

func (h *UserHandler) setEnabled(c *gin.Context, enabled bool) {
	if err := h.userService.SetUserEnabled(c.Request.Context(), actor(c), c.Param("username"), enabled); err != nil {
		respondError(c, err)
		return
	}
	msg := "User disabled"
	if enabled {
		msg = "User enabled"
	}
	utils.Success(c, 200, msg, nil)
}

func (h *UserHandler) AddToGroup(c *gin.Context) {
	var req models.GroupMembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "groupName is required")
		return
	}

	if err := h.userService.AddUserToGroup(c.Request.Context(), actor(c), c.Param("username"), req.GroupName); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "User added to group", nil)
}

func (h *UserHandler) RemoveFromGroup(c *gin.Context) {
	if err := h.userService.RemoveUserFromGroup(c.Request.Context(), actor(c), c.Param("username"), c.Param("group")); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "User removed from group", nil)
}
