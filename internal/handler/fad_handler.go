package handler

import (
	"net/http"
	"strconv"

	"fad-monitoring-backend/internal/middleware"
	"fad-monitoring-backend/internal/service"
	"fad-monitoring-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

type FadHandler struct {
	fadService    *service.FadService
	vendorService *service.VendorService
}

func NewFadHandler(fadService *service.FadService, vendorService *service.VendorService) *FadHandler {
	return &FadHandler{fadService: fadService, vendorService: vendorService}
}

// ListFads is public; search also matches dates when it parses as a day or month
func (h *FadHandler) ListFads(c *gin.Context) {
	page := pageFromQuery(c)
	fads, total, err := h.fadService.ListFads(c.Request.Context(), service.FadQuery{
		Search: c.Query("search"),
		Status: c.Query("status"),
	}, page)
	if err != nil {
		respondError(c, err, "Failed to fetch FAD data")
		return
	}
	pagedResponse(c, fads, total, page)
}

func (h *FadHandler) GetFad(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	fad, err := h.fadService.GetFad(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to fetch FAD")
		return
	}
	utils.SuccessResponse(c, fad)
}

func (h *FadHandler) CreateFad(c *gin.Context) {
	var in service.FadInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	fad, err := h.fadService.CreateFad(c.Request.Context(), in, middleware.CurrentActor(c))
	if err != nil {
		respondError(c, err, "Failed to save FAD")
		return
	}
	utils.CreatedResponse(c, fad)
}

func (h *FadHandler) UpdateFad(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in service.FadInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	fad, err := h.fadService.UpdateFad(c.Request.Context(), id, in, middleware.CurrentActor(c))
	if err != nil {
		respondError(c, err, "Failed to update FAD")
		return
	}
	utils.SuccessResponse(c, fad)
}

func (h *FadHandler) DeleteFad(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.fadService.DeleteFad(c.Request.Context(), id, middleware.CurrentActor(c)); err != nil {
		respondError(c, err, "Failed to delete FAD")
		return
	}
	utils.MessageResponse(c, "FAD deleted successfully")
}

func (h *FadHandler) ListVendors(c *gin.Context) {
	activeOnly, _ := strconv.ParseBool(c.Query("active"))
	vendors, err := h.vendorService.GetAllVendors(c.Request.Context(), activeOnly)
	if err != nil {
		respondError(c, err, "Failed to fetch vendors")
		return
	}
	utils.SuccessResponse(c, vendors)
}

func (h *FadHandler) CreateVendor(c *gin.Context) {
	var in service.VendorInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	vendor, err := h.vendorService.CreateVendor(c.Request.Context(), in, middleware.CurrentActor(c))
	if err != nil {
		respondError(c, err, "Failed to save vendor")
		return
	}
	utils.CreatedResponse(c, vendor)
}

func (h *FadHandler) UpdateVendor(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in service.VendorInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	vendor, err := h.vendorService.UpdateVendor(c.Request.Context(), id, in, middleware.CurrentActor(c))
	if err != nil {
		respondError(c, err, "Failed to update vendor")
		return
	}
	utils.SuccessResponse(c, vendor)
}

func (h *FadHandler) DeleteVendor(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.vendorService.DeleteVendor(c.Request.Context(), id, middleware.CurrentActor(c)); err != nil {
		respondError(c, err, "Failed to delete vendor")
		return
	}
	utils.MessageResponse(c, "Vendor deleted successfully")
}
