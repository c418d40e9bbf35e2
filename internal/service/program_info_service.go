package service

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"fad-monitoring-backend/internal/audit"
	"fad-monitoring-backend/internal/media"
	"fad-monitoring-backend/internal/models"
	"fad-monitoring-backend/internal/repository"
	"fad-monitoring-backend/internal/storage"

	"github.com/sirupsen/logrus"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

type ProgramInfoService struct {
	repo  *repository.ProgramInfoRepository
	files *imageWriter
	sink  audit.Sink
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewProgramInfoService(
	repo *repository.ProgramInfoRepository,
	store storage.Store,
	processor media.Processor,
	cfg PhotoServiceConfig,
	sink audit.Sink,
	log logrus.FieldLogger,
) *ProgramInfoService {
	log = log.WithField("component", "program_info")
	return &ProgramInfoService{
		repo: repo,
		files: &imageWriter{
			store:        store,
			processor:    processor,
			publicPrefix: cfg.PublicPrefix,
			maxFileSize:  cfg.MaxFileSize,
			log:          log,
		},
		sink: sink,
		log:  log,
		now:  time.Now,
	}
}

// ProgramInfoUpload is a single image upload. A nil or zero DisplayOrder appends the image.
type ProgramInfoUpload struct {
	Title        string
	DisplayOrder *int
	File         UploadFile
}

// ProgramInfoUpdate carries partial changes to an image
type ProgramInfoUpdate struct {
	Title        *string `json:"title"`
	DisplayOrder *int    `json:"display_order"`
}

// OrderItem assigns a display position to one image
type OrderItem struct {
	ID           uint `json:"id" binding:"required"`
	DisplayOrder int  `json:"display_order"`
}

// infoName builds info_<unix millis>_<base name with non-alphanumerics replaced>.<ext>
func infoName(original string, at time.Time) func(ext string) string {
	base := strings.TrimSuffix(path.Base(original), path.Ext(original))
	clean := unsafeNameChars.ReplaceAllString(base, "_")
	return func(ext string) string {
		return fmt.Sprintf("info_%d_%s%s", at.UnixMilli(), clean, ext)
	}
}

func (s *ProgramInfoService) ListImages(ctx context.Context) ([]models.ProgramInfoImage, error) {
	return s.repo.GetAllImages(ctx)
}

func (s *ProgramInfoService) GetImage(ctx context.Context, id uint) (*models.ProgramInfoImage, error) {
	image, err := s.repo.GetImageByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return image, nil
}

// Upload stores one image and its thumbnail. Files are removed again if the row cannot be saved.
func (s *ProgramInfoService) Upload(ctx context.Context, req ProgramInfoUpload, actor *Actor) (*models.ProgramInfoImage, error) {
	stored, written, err := s.files.write(req.File, infoName(req.File.OriginalName, s.now()))
	if err != nil {
		s.files.remove(written...)
		return nil, err
	}

	order := 0
	if req.DisplayOrder != nil {
		order = *req.DisplayOrder
	}
	if order == 0 {
		if order, err = s.repo.NextDisplayOrder(ctx); err != nil {
			s.files.remove(written...)
			return nil, fmt.Errorf("failed to compute display order: %w", err)
		}
	}

	image := &models.ProgramInfoImage{
		Filename:      stored.Filename,
		ThumbFilename: stored.ThumbFilename,
		OriginalName:  stored.OriginalName,
		Mime:          stored.Mime,
		Size:          stored.Size,
		URL:           stored.URL,
		ThumbURL:      stored.ThumbURL,
		DisplayOrder:  order,
	}
	if title := strings.TrimSpace(req.Title); title != "" {
		image.Title = &title
	}
	if err := s.repo.CreateImage(ctx, image); err != nil {
		s.files.remove(written...)
		return nil, fmt.Errorf("failed to save image: %w", err)
	}

	s.log.WithFields(logrus.Fields{"id": image.ID, "file": image.Filename, "display_order": order}).Info("program info image uploaded")
	s.record(ctx, audit.Entry{Entity: audit.EntityProgramInfo, Operation: audit.OpCreate, UserID: actor.UserID(), Data: image})
	return image, nil
}

func (s *ProgramInfoService) UpdateImage(ctx context.Context, id uint, in ProgramInfoUpdate, actor *Actor) (*models.ProgramInfoImage, error) {
	fields := map[string]interface{}{}
	if in.Title != nil {
		if title := strings.TrimSpace(*in.Title); title != "" {
			fields["title"] = title
		} else {
			fields["title"] = nil
		}
	}
	if in.DisplayOrder != nil {
		if *in.DisplayOrder < 0 {
			return nil, validationf("display_order must not be negative")
		}
		fields["display_order"] = *in.DisplayOrder
	}
	if err := s.repo.UpdateImage(ctx, id, fields); err != nil {
		return nil, mapRepoErr(err)
	}
	image, err := s.repo.GetImageByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	s.record(ctx, audit.Entry{Entity: audit.EntityProgramInfo, Operation: audit.OpUpdate, UserID: actor.UserID(), Data: image})
	return image, nil
}

// DeleteImage removes the image files best-effort, then the row
func (s *ProgramInfoService) DeleteImage(ctx context.Context, id uint, actor *Actor) error {
	image, err := s.repo.GetImageByID(ctx, id)
	if err != nil {
		return mapRepoErr(err)
	}

	names := []string{image.Filename}
	if image.ThumbFilename != nil {
		names = append(names, *image.ThumbFilename)
	}
	s.files.remove(names...)

	if err := s.repo.DeleteImage(ctx, id); err != nil {
		return mapRepoErr(err)
	}
	s.record(ctx, audit.Entry{
		Entity:    audit.EntityProgramInfo,
		Operation: audit.OpDelete,
		UserID:    actor.UserID(),
		Data:      map[string]interface{}{"id": image.ID, "filename": image.Filename},
	})
	return nil
}

// Reorder applies every position in one transaction; an unknown id leaves all positions unchanged
func (s *ProgramInfoService) Reorder(ctx context.Context, items []OrderItem, actor *Actor) ([]models.ProgramInfoImage, error) {
	if len(items) == 0 {
		return nil, validationf("orders must not be empty")
	}
	orders := make(map[uint]int, len(items))
	for _, item := range items {
		if item.ID == 0 {
			return nil, validationf("order entry without id")
		}
		if item.DisplayOrder < 0 {
			return nil, validationf("display_order must not be negative")
		}
		orders[item.ID] = item.DisplayOrder
	}

	if err := s.repo.Reorder(ctx, orders); err != nil {
		return nil, mapRepoErr(err)
	}
	s.record(ctx, audit.Entry{Entity: audit.EntityProgramInfo, Operation: audit.OpUpdateOrder, UserID: actor.UserID(), Data: items})
	return s.repo.GetAllImages(ctx)
}

func (s *ProgramInfoService) record(ctx context.Context, entry audit.Entry) {
	recordAudit(ctx, s.sink, s.log, entry)
}
