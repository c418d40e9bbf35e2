package handler

import (
	"net/http"
	"strings"

	"fad-monitoring-backend/internal/middleware"
	"fad-monitoring-backend/internal/repository"
	"fad-monitoring-backend/internal/service"
	"fad-monitoring-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// ListUsers returns users with their last login (admin only)
func (h *UserHandler) ListUsers(c *gin.Context) {
	page := pageFromQuery(c)
	users, total, err := h.userService.ListUsers(c.Request.Context(), repository.UserFilter{
		Query:  strings.TrimSpace(c.Query("q")),
		Role:   strings.ToUpper(strings.TrimSpace(c.Query("role"))),
		Status: strings.ToUpper(strings.TrimSpace(c.Query("status"))),
	}, page)
	if err != nil {
		respondError(c, err, "Failed to fetch users")
		return
	}
	pagedResponse(c, users, total, page)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	user, err := h.userService.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to fetch user")
		return
	}
	utils.SuccessResponse(c, user)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	user, err := h.userService.UpdateUser(c.Request.Context(), id, req, middleware.CurrentActor(c))
	if err != nil {
		respondError(c, err, "Failed to update user")
		return
	}
	utils.SuccessResponse(c, user)
}

// DeleteUser deactivates the user and revokes their sessions
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if p, _ := middleware.CurrentPrincipal(c); p != nil && p.UserID == id {
		utils.ErrorResponse(c, http.StatusBadRequest, "You cannot deactivate your own account")
		return
	}
	user, err := h.userService.DeactivateUser(c.Request.Context(), id, middleware.CurrentActor(c))
	if err != nil {
		respondError(c, err, "Failed to deactivate user")
		return
	}
	utils.SuccessResponse(c, gin.H{
		"message": "User deactivated successfully",
		"user":    user,
	})
}
