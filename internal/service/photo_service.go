package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"fad-monitoring-backend/internal/audit"
	"fad-monitoring-backend/internal/media"
	"fad-monitoring-backend/internal/metrics"
	"fad-monitoring-backend/internal/models"
	"fad-monitoring-backend/internal/repository"
	"fad-monitoring-backend/internal/storage"

	"github.com/sirupsen/logrus"
)

// takenAt layouts accepted from clients, tried in order
var takenAtLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// UploadFile is one file of a multipart batch
type UploadFile struct {
	OriginalName string
	Size         int64
	Open         func() (io.ReadCloser, error)
}

// FileMeta is the per-file metadata sent alongside an upload
type FileMeta struct {
	Category   string `json:"category"`
	TakenAt    string `json:"takenAt"`
	Keterangan string `json:"keterangan"`
}

// IngestRequest describes one photo upload call
type IngestRequest struct {
	AreaID           *uint
	AreaName         string
	GroupID          *uint
	GroupTitle       string
	GroupDescription string
	Files            []UploadFile
	Meta             []FileMeta
}

// IngestResult is what a successful upload stored
type IngestResult struct {
	Area   *models.Area   `json:"area"`
	Group  *GroupView     `json:"group,omitempty"`
	Photos []models.Photo `json:"photos"`
	Count  int            `json:"count"`
}

// PhotoServiceConfig holds upload limits and the public URL prefix
type PhotoServiceConfig struct {
	PublicPrefix string
	MaxFileSize  int64
	MaxFiles     int
}

type PhotoService struct {
	areas     *AreaService
	groupRepo *repository.GroupRepository
	photoRepo *repository.PhotoRepository
	files     *imageWriter
	cfg       PhotoServiceConfig
	sink      audit.Sink
	log       logrus.FieldLogger
	now       func() time.Time
}

func NewPhotoService(
	areas *AreaService,
	groupRepo *repository.GroupRepository,
	photoRepo *repository.PhotoRepository,
	store storage.Store,
	processor media.Processor,
	cfg PhotoServiceConfig,
	sink audit.Sink,
	log logrus.FieldLogger,
) *PhotoService {
	return &PhotoService{
		areas:     areas,
		groupRepo: groupRepo,
		photoRepo: photoRepo,
		files: &imageWriter{
			store:        store,
			processor:    processor,
			publicPrefix: cfg.PublicPrefix,
			maxFileSize:  cfg.MaxFileSize,
			log:          log.WithField("component", "uploads"),
		},
		cfg:  cfg,
		sink: sink,
		log:  log.WithField("component", "photos"),
		now:  time.Now,
	}
}

type parsedMeta struct {
	category   *string
	takenAt    time.Time
	keterangan *string
}

// parseMeta validates per-file metadata before anything is written
func (s *PhotoService) parseMeta(meta []FileMeta, files int) ([]parsedMeta, error) {
	if len(meta) > files {
		return nil, fmt.Errorf("%w: %d metadata entries for %d files", ErrInvalidUpload, len(meta), files)
	}

	parsed := make([]parsedMeta, files)
	for i := range parsed {
		parsed[i].takenAt = s.now()
		if i >= len(meta) {
			continue
		}
		m := meta[i]

		if strings.TrimSpace(m.Category) != "" {
			category, ok := models.NormalizeCategory(m.Category)
			if !ok {
				return nil, &FileError{Index: i, Err: fmt.Errorf("%w: %q", ErrInvalidCategory, m.Category)}
			}
			parsed[i].category = &category
		}
		if strings.TrimSpace(m.TakenAt) != "" {
			takenAt, ok := parseTakenAt(m.TakenAt)
			if !ok {
				return nil, &FileError{Index: i, Err: fmt.Errorf("%w: %q", ErrInvalidTakenAt, m.TakenAt)}
			}
			parsed[i].takenAt = takenAt
		}
		if k := strings.TrimSpace(m.Keterangan); k != "" {
			parsed[i].keterangan = &k
		}
	}
	return parsed, nil
}

func parseTakenAt(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range takenAtLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ValidateUploadAgainstGroup rejects a batch when the group is complete or a requested
// category slot is already occupied, including twice within the batch itself
func ValidateUploadAgainstGroup(counts models.CategoryCounts, categories []string) error {
	if counts.Complete() {
		return ErrGroupAlreadyComplete
	}
	for _, category := range categories {
		if counts.Has(category) {
			return fmt.Errorf("%w: %s", ErrCategorySlotTaken, category)
		}
		counts.Add(category)
	}
	return nil
}

// ResolveGroup returns the existing group for id, or an unsaved group when only a title is given.
// Both results are nil when the photos stand alone.
func (s *PhotoService) ResolveGroup(ctx context.Context, groupID *uint, title, description string, areaID uint) (*models.ComparisonGroup, *models.ComparisonGroup, error) {
	if groupID != nil && *groupID != 0 {
		group, err := s.groupRepo.GetGroupByID(ctx, *groupID)
		if err != nil {
			return nil, nil, fmt.Errorf("comparison group: %w", mapRepoErr(err))
		}
		return group, nil, nil
	}
	if title = strings.TrimSpace(title); title != "" {
		group := &models.ComparisonGroup{Title: title, AreaID: &areaID}
		if d := strings.TrimSpace(description); d != "" {
			group.Description = &d
		}
		return nil, group, nil
	}
	return nil, nil, nil
}

// Ingest stores a batch of photos. If anything fails after files were written, every file
// written by this call is removed before the error is returned.
func (s *PhotoService) Ingest(ctx context.Context, req IngestRequest, actor *Actor) (*IngestResult, error) {
	if len(req.Files) == 0 {
		return nil, fmt.Errorf("%w: no files uploaded", ErrInvalidUpload)
	}
	if s.cfg.MaxFiles > 0 && len(req.Files) > s.cfg.MaxFiles {
		return nil, fmt.Errorf("%w: at most %d files per upload", ErrInvalidUpload, s.cfg.MaxFiles)
	}

	meta, err := s.parseMeta(req.Meta, len(req.Files))
	if err != nil {
		return nil, err
	}

	var categories []string
	for _, m := range meta {
		if m.category != nil {
			categories = append(categories, *m.category)
		}
	}

	// group checks run before the area upsert so rejected batches mutate nothing
	var existing *models.ComparisonGroup
	if req.GroupID != nil && *req.GroupID != 0 {
		if existing, _, err = s.ResolveGroup(ctx, req.GroupID, "", "", 0); err != nil {
			return nil, err
		}
		if err := ValidateUploadAgainstGroup(models.CountCategories(existing.Photos), categories); err != nil {
			return nil, err
		}
	} else if strings.TrimSpace(req.GroupTitle) != "" {
		if err := ValidateUploadAgainstGroup(models.CategoryCounts{}, categories); err != nil {
			return nil, err
		}
	}

	area, err := s.areas.ResolveArea(ctx, req.AreaID, req.AreaName)
	if err != nil {
		return nil, err
	}

	var groupID *uint
	var newGroup *models.ComparisonGroup
	if existing != nil {
		groupID = &existing.ID
	} else if _, newGroup, err = s.ResolveGroup(ctx, nil, req.GroupTitle, req.GroupDescription, area.ID); err != nil {
		return nil, err
	}

	var written []string
	rollback := func(reason string) {
		s.files.remove(written...)
		if len(written) > 0 {
			metrics.RecordIngestRollback(reason)
		}
	}

	photos := make([]models.Photo, 0, len(req.Files))
	for i, file := range req.Files {
		stored, names, err := s.files.write(file, randomName)
		written = append(written, names...)
		if err != nil {
			rollback("storage")
			return nil, &FileError{Index: i, Err: err}
		}
		photos = append(photos, models.Photo{
			AreaID:        area.ID,
			Category:      meta[i].category,
			Filename:      stored.Filename,
			ThumbFilename: stored.ThumbFilename,
			OriginalName:  stored.OriginalName,
			Mime:          stored.Mime,
			Size:          stored.Size,
			URL:           stored.URL,
			ThumbURL:      stored.ThumbURL,
			TakenAt:       meta[i].takenAt,
			Keterangan:    meta[i].keterangan,
		})
	}

	guard := func(counts models.CategoryCounts) error {
		return ValidateUploadAgainstGroup(counts, categories)
	}
	if err := s.photoRepo.CreatePhotoBatch(ctx, newGroup, groupID, photos, guard); err != nil {
		rollback("database")
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrCategorySlotTaken
		case errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("comparison group: %w", ErrNotFound)
		case errors.Is(err, ErrGroupAlreadyComplete), errors.Is(err, ErrCategorySlotTaken):
			return nil, err
		}
		return nil, fmt.Errorf("failed to save photos: %w", err)
	}
	metrics.RecordPhotosIngested(len(photos))

	result := &IngestResult{Area: area, Photos: photos, Count: len(photos)}
	if newGroup != nil {
		groupID = &newGroup.ID
	}
	if groupID != nil {
		view, err := s.GetGroup(ctx, *groupID)
		if err != nil {
			return nil, err
		}
		result.Group = view
	}

	ids := make([]uint, len(photos))
	for i, p := range photos {
		ids[i] = p.ID
	}
	s.record(ctx, audit.Entry{
		Entity:    audit.EntityPhoto,
		Operation: audit.OpUpload,
		UserID:    actor.UserID(),
		Data: map[string]interface{}{
			"areaId":            area.ID,
			"comparisonGroupId": groupID,
			"count":             len(photos),
			"photoIds":          ids,
		},
	})
	return result, nil
}

// GetPhoto returns one photo
func (s *PhotoService) GetPhoto(ctx context.Context, id uint) (*models.Photo, error) {
	photo, err := s.photoRepo.GetPhotoByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return photo, nil
}

// RemovePhoto deletes a photo's file and thumbnail, then its row
func (s *PhotoService) RemovePhoto(ctx context.Context, id uint, actor *Actor) error {
	photo, err := s.photoRepo.GetPhotoByID(ctx, id)
	if err != nil {
		return mapRepoErr(err)
	}

	s.files.remove(photoFiles(photo)...)
	if err := s.photoRepo.DeletePhoto(ctx, id); err != nil {
		return mapRepoErr(err)
	}

	s.record(ctx, audit.Entry{
		Entity:    audit.EntityPhoto,
		Operation: audit.OpDelete,
		UserID:    actor.UserID(),
		Data: map[string]interface{}{
			"id":                photo.ID,
			"filename":          photo.Filename,
			"comparisonGroupId": photo.ComparisonGroupID,
		},
	})
	return nil
}

// UpdatePhotoKeterangan changes a photo's annotation; an empty value clears it
func (s *PhotoService) UpdatePhotoKeterangan(ctx context.Context, id uint, keterangan string, actor *Actor) (*models.Photo, error) {
	var value *string
	if k := strings.TrimSpace(keterangan); k != "" {
		value = &k
	}
	if err := s.photoRepo.UpdatePhotoKeterangan(ctx, id, value); err != nil {
		return nil, mapRepoErr(err)
	}
	photo, err := s.GetPhoto(ctx, id)
	if err != nil {
		return nil, err
	}
	s.record(ctx, audit.Entry{
		Entity:    audit.EntityPhoto,
		Operation: audit.OpUpdate,
		UserID:    actor.UserID(),
		Data:      map[string]interface{}{"id": id, "keterangan": value},
	})
	return photo, nil
}

// PhotoQuery holds the listing filters accepted from clients
type PhotoQuery struct {
	AreaID            *uint
	Category          string
	ComparisonGroupID *uint
	Period            string
	Date              string
}

// ListPhotos returns a page of photos. The period filter is ignored when a group is selected.
func (s *PhotoService) ListPhotos(ctx context.Context, q PhotoQuery, page repository.Page) ([]models.Photo, int64, error) {
	filter := repository.PhotoFilter{AreaID: q.AreaID, ComparisonGroupID: q.ComparisonGroupID}
	if q.Category != "" {
		category, ok := models.NormalizeCategory(q.Category)
		if !ok {
			return nil, 0, fmt.Errorf("%w: %q", ErrInvalidCategory, q.Category)
		}
		filter.Category = category
	}
	if q.Period != "" && q.ComparisonGroupID == nil {
		from, to, err := PeriodRange(q.Period, q.Date, s.now())
		if err != nil {
			return nil, 0, err
		}
		filter.From, filter.To = &from, &to
	}
	return s.photoRepo.ListPhotos(ctx, filter, page)
}

// PeriodRange returns the inclusive bounds of the day, Monday-based week or month containing date.
// An empty date means now.
func PeriodRange(period, date string, now time.Time) (time.Time, time.Time, error) {
	base := now
	if date != "" {
		t, err := time.ParseInLocation("2006-01-02", date, now.Location())
		if err != nil {
			return time.Time{}, time.Time{}, validationf("date must be YYYY-MM-DD")
		}
		base = t
	}
	day := time.Date(base.Year(), base.Month(), base.Day(), 0, 0, 0, 0, base.Location())

	var start, end time.Time
	switch period {
	case "day":
		start, end = day, day.AddDate(0, 0, 1)
	case "week":
		offset := (int(day.Weekday()) + 6) % 7
		start = day.AddDate(0, 0, -offset)
		end = start.AddDate(0, 0, 7)
	case "month":
		start = time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
		end = start.AddDate(0, 1, 0)
	default:
		return time.Time{}, time.Time{}, validationf("period must be day, week or month")
	}
	return start, end.Add(-time.Nanosecond), nil
}

func (s *PhotoService) record(ctx context.Context, entry audit.Entry) {
	recordAudit(ctx, s.sink, s.log, entry)
}
