package handler

import (
	"errors"
	"net/http"
	"strconv"

	"fad-monitoring-backend/internal/repository"
	"fad-monitoring-backend/internal/service"
	"fad-monitoring-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// statusFor maps service error kinds to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidRefreshToken):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrUserDisabled),
		errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInvalidUpload),
		errors.Is(err, service.ErrInvalidCategory),
		errors.Is(err, service.ErrInvalidTakenAt),
		errors.Is(err, service.ErrAreaRequired),
		errors.Is(err, service.ErrConversionFailed):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrDuplicate),
		errors.Is(err, service.ErrAreaInUse),
		errors.Is(err, service.ErrGroupAlreadyComplete),
		errors.Is(err, service.ErrCategorySlotTaken):
		return http.StatusConflict
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// respondError writes the error envelope. Unexpected errors are logged and replaced by fallback.
func respondError(c *gin.Context, err error, fallback string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		utils.ErrorResponse(c, status, fallback)
		return
	}

	var fileErr *service.FileError
	if errors.As(err, &fileErr) {
		c.JSON(status, gin.H{
			"success":   false,
			"error":     fileErr.Err.Error(),
			"fileIndex": fileErr.Index,
		})
		return
	}
	utils.ErrorResponse(c, status, err.Error())
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// optionalUint parses an optional numeric query or form value
func optionalUint(raw string) (*uint, bool) {
	if raw == "" {
		return nil, true
	}
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil, false
	}
	v := uint(n)
	return &v, true
}

func pageFromQuery(c *gin.Context) repository.Page {
	number, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.Query("pageSize"))
	if size == 0 {
		size, _ = strconv.Atoi(c.Query("page_size"))
	}
	return repository.NewPage(number, size, 10)
}

func pagedResponse(c *gin.Context, items interface{}, total int64, page repository.Page) {
	utils.PagedResponse(c, items, utils.NewPageMeta(total, page.Number, page.Size))
}
