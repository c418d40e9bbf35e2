package handler

import (
	"net/http"

	"fad-monitoring-backend/internal/middleware"
	"fad-monitoring-backend/internal/service"
	"fad-monitoring-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

type AreaHandler struct {
	areaService *service.AreaService
}

func NewAreaHandler(areaService *service.AreaService) *AreaHandler {
	return &AreaHandler{areaService: areaService}
}

type areaRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *AreaHandler) GetAllAreas(c *gin.Context) {
	areas, err := h.areaService.GetAllAreas(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to fetch areas")
		return
	}
	utils.SuccessResponse(c, areas)
}

func (h *AreaHandler) CreateArea(c *gin.Context) {
	var req areaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Name is required")
		return
	}
	area, err := h.areaService.CreateArea(c.Request.Context(), req.Name, middleware.CurrentActor(c))
	if err != nil {
		respondError(c, err, "Failed to create area")
		return
	}
	utils.CreatedResponse(c, area)
}

func (h *AreaHandler) UpdateArea(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req areaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Name is required")
		return
	}
	area, err := h.areaService.RenameArea(c.Request.Context(), id, req.Name, middleware.CurrentActor(c))
	if err != nil {
		respondError(c, err, "Failed to update area")
		return
	}
	utils.SuccessResponse(c, area)
}

func (h *AreaHandler) DeleteArea(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.areaService.DeleteArea(c.Request.Context(), id, middleware.CurrentActor(c)); err != nil {
		respondError(c, err, "Failed to delete area")
		return
	}
	utils.MessageResponse(c, "Area deleted successfully")
}
