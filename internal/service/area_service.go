package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fad-monitoring-backend/internal/audit"
	"fad-monitoring-backend/internal/models"
	"fad-monitoring-backend/internal/repository"

	"github.com/sirupsen/logrus"
)

type AreaService struct {
	areaRepo *repository.AreaRepository
	sink     audit.Sink
	log      logrus.FieldLogger
}

func NewAreaService(areaRepo *repository.AreaRepository, sink audit.Sink, log logrus.FieldLogger) *AreaService {
	return &AreaService{areaRepo: areaRepo, sink: sink, log: log.WithField("component", "areas")}
}

// ResolveArea returns the area by id when given, otherwise upserts it by name.
// Repeated calls with the same name return the same row.
func (s *AreaService) ResolveArea(ctx context.Context, areaID *uint, areaName string) (*models.Area, error) {
	if areaID != nil && *areaID != 0 {
		area, err := s.areaRepo.GetAreaByID(ctx, *areaID)
		if err != nil {
			return nil, fmt.Errorf("area: %w", mapRepoErr(err))
		}
		return area, nil
	}

	name := strings.TrimSpace(areaName)
	if name == "" {
		return nil, ErrAreaRequired
	}
	area, err := s.areaRepo.UpsertAreaByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert area: %w", err)
	}
	return area, nil
}

// GetAllAreas lists areas by name
func (s *AreaService) GetAllAreas(ctx context.Context) ([]models.Area, error) {
	return s.areaRepo.GetAllAreas(ctx)
}

// CreateArea upserts an area by name
func (s *AreaService) CreateArea(ctx context.Context, name string, actor *Actor) (*models.Area, error) {
	area, err := s.ResolveArea(ctx, nil, name)
	if err != nil {
		return nil, err
	}
	s.record(ctx, audit.Entry{Entity: audit.EntityArea, Operation: audit.OpCreate, UserID: actor.UserID(), Data: area})
	return area, nil
}

// RenameArea changes an area's name; a name already in use is ErrDuplicate
func (s *AreaService) RenameArea(ctx context.Context, id uint, name string, actor *Actor) (*models.Area, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("name is required")
	}
	if err := s.areaRepo.RenameArea(ctx, id, name); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("area name: %w", ErrDuplicate)
		}
		return nil, mapRepoErr(err)
	}
	area, err := s.areaRepo.GetAreaByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	s.record(ctx, audit.Entry{Entity: audit.EntityArea, Operation: audit.OpUpdate, UserID: actor.UserID(), Data: area})
	return area, nil
}

// DeleteArea removes an area that no photo references
func (s *AreaService) DeleteArea(ctx context.Context, id uint, actor *Actor) error {
	area, err := s.areaRepo.GetAreaByID(ctx, id)
	if err != nil {
		return mapRepoErr(err)
	}
	count, err := s.areaRepo.CountPhotosInArea(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count photos: %w", err)
	}
	if count > 0 {
		return ErrAreaInUse
	}
	if err := s.areaRepo.DeleteArea(ctx, id); err != nil {
		return mapRepoErr(err)
	}
	s.record(ctx, audit.Entry{Entity: audit.EntityArea, Operation: audit.OpDelete, UserID: actor.UserID(), Data: area})
	return nil
}

func (s *AreaService) record(ctx context.Context, entry audit.Entry) {
	recordAudit(ctx, s.sink, s.log, entry)
}
