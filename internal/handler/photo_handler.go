package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"fad-monitoring-backend/internal/middleware"
	"fad-monitoring-backend/internal/repository"
	"fad-monitoring-backend/internal/service"
	"fad-monitoring-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

type PhotoHandler struct {
	photoService *service.PhotoService
	maxBody      int64
}

// NewPhotoHandler caps multipart bodies at maxBody bytes; zero disables the cap
func NewPhotoHandler(photoService *service.PhotoService, maxBody int64) *PhotoHandler {
	return &PhotoHandler{photoService: photoService, maxBody: maxBody}
}

// parseFileMeta decodes the fileMeta form field: a JSON array of {category, takenAt, keterangan}
func parseFileMeta(raw string) ([]service.FileMeta, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if !strings.HasPrefix(raw, "[") {
		return nil, errors.New("fileMeta must be a JSON array")
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	var meta []service.FileMeta
	if err := dec.Decode(&meta); err != nil {
		return nil, errors.New("fileMeta must be an array of {category, takenAt, keterangan}")
	}
	if dec.More() {
		return nil, errors.New("fileMeta must contain a single JSON array")
	}
	return meta, nil
}

func uploadFiles(headers []*multipart.FileHeader) []service.UploadFile {
	files := make([]service.UploadFile, len(headers))
	for i, fh := range headers {
		fh := fh
		files[i] = service.UploadFile{
			OriginalName: fh.Filename,
			Size:         fh.Size,
			Open: func() (io.ReadCloser, error) {
				f, err := fh.Open()
				if err != nil {
					return nil, err
				}
				return f, nil
			},
		}
	}
	return files
}

// Upload stores a batch of photos sent as multipart field "files"
func (h *PhotoHandler) Upload(c *gin.Context) {
	if h.maxBody > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)
	}
	form, err := c.MultipartForm()
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer func() { _ = form.RemoveAll() }()

	value := func(keys ...string) string {
		for _, key := range keys {
			if v := form.Value[key]; len(v) > 0 && strings.TrimSpace(v[0]) != "" {
				return strings.TrimSpace(v[0])
			}
		}
		return ""
	}

	meta, err := parseFileMeta(value("fileMeta"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	areaID, ok := optionalUint(value("areaId"))
	if !ok {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid areaId")
		return
	}
	groupID, ok := optionalUint(value("comparisonGroupId"))
	if !ok {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid comparisonGroupId")
		return
	}

	result, err := h.photoService.Ingest(c.Request.Context(), service.IngestRequest{
		AreaID:           areaID,
		AreaName:         value("areaName"),
		GroupID:          groupID,
		GroupTitle:       value("comparisonGroupTitle"),
		GroupDescription: value("comparisonGroupDescription"),
		Files:            uploadFiles(form.File["files"]),
		Meta:             meta,
	}, middleware.CurrentActor(c))
	if err != nil {
		respondError(c, err, "Failed to upload photos")
		return
	}

	utils.CreatedResponse(c, result)
}

// ListPhotos lists photos, or comparison groups when groupByComparison=true
func (h *PhotoHandler) ListPhotos(c *gin.Context) {
	areaID, ok := optionalUint(c.Query("areaId"))
	if !ok {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid areaId")
		return
	}
	groupID, ok := optionalUint(c.Query("comparisonGroupId"))
	if !ok {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid comparisonGroupId")
		return
	}
	page := pageFromQuery(c)

	if grouped, _ := strconv.ParseBool(c.Query("groupByComparison")); grouped {
		groups, total, err := h.photoService.ListGroups(c.Request.Context(), repository.GroupFilter{AreaID: areaID}, page)
		if err != nil {
			respondError(c, err, "Failed to fetch comparison groups")
			return
		}
		pagedResponse(c, groups, total, page)
		return
	}

	photos, total, err := h.photoService.ListPhotos(c.Request.Context(), service.PhotoQuery{
		AreaID:            areaID,
		Category:          c.Query("category"),
		ComparisonGroupID: groupID,
		Period:            c.Query("period"),
		Date:              c.Query("date"),
	}, page)
	if err != nil {
		respondError(c, err, "Failed to fetch photos")
		return
	}
	pagedResponse(c, photos, total, page)
}

func (h *PhotoHandler) GetPhoto(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	photo, err := h.photoService.GetPhoto(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to fetch photo")
		return
	}
	utils.SuccessResponse(c, photo)
}

type updatePhotoRequest struct {
	Keterangan string `json:"keterangan"`
}

func (h *PhotoHandler) UpdatePhoto(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req updatePhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	photo, err := h.photoService.UpdatePhotoKeterangan(c.Request.Context(), id, req.Keterangan, middleware.CurrentActor(c))
	if err != nil {
		respondError(c, err, "Failed to update photo")
		return
	}
	utils.SuccessResponse(c, photo)
}

func (h *PhotoHandler) DeletePhoto(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.photoService.RemovePhoto(c.Request.Context(), id, middleware.CurrentActor(c)); err != nil {
		respondError(c, err, "Failed to delete photo")
		return
	}
	utils.MessageResponse(c, "Photo deleted successfully")
}

func (h *PhotoHandler) CreateGroup(c *gin.Context) {
	var req service.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Title is required")
		return
	}
	group, err := h.photoService.CreateGroup(c.Request.Context(), req, middleware.CurrentActor(c))
	if err != nil {
		respondError(c, err, "Failed to create comparison group")
		return
	}
	utils.CreatedResponse(c, group)
}

func (h *PhotoHandler) ListGroups(c *gin.Context) {
	areaID, ok := optionalUint(c.Query("areaId"))
	if !ok {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid areaId")
		return
	}
	page := pageFromQuery(c)
	groups, total, err := h.photoService.ListGroups(c.Request.Context(), repository.GroupFilter{
		AreaID: areaID,
		Query:  strings.TrimSpace(c.Query("q")),
	}, page)
	if err != nil {
		respondError(c, err, "Failed to fetch comparison groups")
		return
	}
	pagedResponse(c, groups, total, page)
}

func (h *PhotoHandler) GetGroup(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	group, err := h.photoService.GetGroup(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to fetch comparison group")
		return
	}
	utils.SuccessResponse(c, group)
}

func (h *PhotoHandler) UpdateGroup(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	group, err := h.photoService.UpdateGroup(c.Request.Context(), id, req, middleware.CurrentActor(c))
	if err != nil {
		respondError(c, err, "Failed to update comparison group")
		return
	}
	utils.SuccessResponse(c, group)
}

func (h *PhotoHandler) DeleteGroup(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.photoService.DeleteGroup(c.Request.Context(), id, middleware.CurrentActor(c)); err != nil {
		respondError(c, err, "Failed to delete comparison group")
		return
	}
	utils.MessageResponse(c, "Comparison group deleted successfully")
}
