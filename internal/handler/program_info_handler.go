package handler

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"fad-monitoring-backend/internal/middleware"
	"fad-monitoring-backend/internal/service"
	"fad-monitoring-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

type ProgramInfoHandler struct {
	infoService *service.ProgramInfoService
	maxBody     int64
}

func NewProgramInfoHandler(infoService *service.ProgramInfoService, maxBody int64) *ProgramInfoHandler {
	return &ProgramInfoHandler{infoService: infoService, maxBody: maxBody}
}

func (h *ProgramInfoHandler) ListImages(c *gin.Context) {
	images, err := h.infoService.ListImages(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to fetch program info images")
		return
	}
	utils.SuccessResponse(c, images)
}

// Upload stores a single image sent as multipart field "image"
func (h *ProgramInfoHandler) Upload(c *gin.Context) {
	if h.maxBody > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)
	}
	fh, err := c.FormFile("image")
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Image file is required")
		return
	}

	req := service.ProgramInfoUpload{
		Title: c.PostForm("title"),
		File:  uploadFiles([]*multipart.FileHeader{fh})[0],
	}
	if raw := strings.TrimSpace(c.PostForm("displayOrder")); raw != "" {
		order, err := strconv.Atoi(raw)
		if err != nil || order < 0 {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid displayOrder")
			return
		}
		req.DisplayOrder = &order
	}

	image, err := h.infoService.Upload(c.Request.Context(), req, middleware.CurrentActor(c))
	if err != nil {
		respondError(c, err, "Failed to upload program info image")
		return
	}
	utils.CreatedResponse(c, image)
}

func (h *ProgramInfoHandler) UpdateImage(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in service.ProgramInfoUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	image, err := h.infoService.UpdateImage(c.Request.Context(), id, in, middleware.CurrentActor(c))
	if err != nil {
		respondError(c, err, "Failed to update program info image")
		return
	}
	utils.SuccessResponse(c, image)
}

func (h *ProgramInfoHandler) DeleteImage(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.infoService.DeleteImage(c.Request.Context(), id, middleware.CurrentActor(c)); err != nil {
		respondError(c, err, "Failed to delete program info image")
		return
	}
	utils.MessageResponse(c, "Program info image deleted successfully")
}

type reorderRequest struct {
	Orders []service.OrderItem `json:"orders" binding:"required,dive"`
}

func (h *ProgramInfoHandler) Reorder(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "orders must be an array of {id, display_order}")
		return
	}
	images, err := h.infoService.Reorder(c.Request.Context(), req.Orders, middleware.CurrentActor(c))
	if err != nil {
		respondError(c, err, "Failed to update display order")
		return
	}
	utils.SuccessResponse(c, images)
}
