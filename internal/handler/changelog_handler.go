package handler

import (
	"strconv"

	"fad-monitoring-backend/internal/service"
	"fad-monitoring-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

type ChangeLogHandler struct {
	changeLogService *service.ChangeLogService
}

func NewChangeLogHandler(changeLogService *service.ChangeLogService) *ChangeLogHandler {
	return &ChangeLogHandler{changeLogService: changeLogService}
}

// ListChangeLogs returns filtered entries, or only the latest timestamp with last=true&entity=X
func (h *ChangeLogHandler) ListChangeLogs(c *gin.Context) {
	entity := c.Query("entity")
	if entity == "" {
		entity = c.Query("model")
	}

	if last, _ := strconv.ParseBool(c.Query("last")); last && entity != "" {
		ts, err := h.changeLogService.LastUpdate(c.Request.Context(), entity)
		if err != nil {
			respondError(c, err, "Failed to fetch change log")
			return
		}
		var lastUpdate interface{}
		if ts != nil {
			lastUpdate = gin.H{"timestamp": ts}
		}
		utils.SuccessResponse(c, gin.H{"last_update": lastUpdate})
		return
	}

	operation := c.Query("operation")
	if operation == "" {
		operation = c.Query("action")
	}
	page := pageFromQuery(c)
	entries, total, err := h.changeLogService.List(c.Request.Context(), service.ChangeLogQuery{
		Entity:    entity,
		Operation: operation,
		Search:    c.Query("search"),
		From:      c.Query("from"),
		To:        c.Query("to"),
	}, page)
	if err != nil {
		respondError(c, err, "Failed to fetch change logs")
		return
	}
	pagedResponse(c, entries, total, page)
}

func (h *ChangeLogHandler) Stats(c *gin.Context) {
	stats, err := h.changeLogService.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to fetch change log stats")
		return
	}
	utils.SuccessResponse(c, stats)
}
