package service

import (
	"context"
	"fmt"
	"strings"

	"fad-monitoring-backend/internal/audit"
	"fad-monitoring-backend/internal/models"
	"fad-monitoring-backend/internal/repository"
)

// GroupView is a comparison group with its completion status
type GroupView struct {
	models.ComparisonGroup
	Categories   models.CategoryCounts `json:"categories"`
	IsComplete   bool                  `json:"is_complete"`
	CanAddPhotos bool                  `json:"can_add_photos"`
}

// IsComplete reports whether the group holds a photo in every category
func IsComplete(group *models.ComparisonGroup) bool {
	return models.CountCategories(group.Photos).Complete()
}

func newGroupView(group *models.ComparisonGroup) *GroupView {
	complete := IsComplete(group)
	if group.Photos == nil {
		group.Photos = []models.Photo{}
	}
	return &GroupView{
		ComparisonGroup: *group,
		Categories:      models.CountCategories(group.Photos),
		IsComplete:      complete,
		CanAddPhotos:    !complete,
	}
}

// CreateGroupRequest holds the fields for an explicitly created group
type CreateGroupRequest struct {
	Title       string `json:"title" binding:"required"`
	AreaID      *uint  `json:"area_id"`
	AreaName    string `json:"area_name"`
	Description string `json:"description"`
	Keterangan  string `json:"keterangan"`
}

// UpdateGroupRequest is a partial update; nil fields are left unchanged
type UpdateGroupRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Keterangan  *string `json:"keterangan"`
}

// GetGroup returns a group with its photos and status
func (s *PhotoService) GetGroup(ctx context.Context, id uint) (*GroupView, error) {
	group, err := s.groupRepo.GetGroupByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return newGroupView(group), nil
}

// ListGroups returns a page of groups with their status, newest first
func (s *PhotoService) ListGroups(ctx context.Context, filter repository.GroupFilter, page repository.Page) ([]GroupView, int64, error) {
	groups, total, err := s.groupRepo.ListGroups(ctx, filter, page)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list groups: %w", err)
	}
	views := make([]GroupView, len(groups))
	for i := range groups {
		views[i] = *newGroupView(&groups[i])
	}
	return views, total, nil
}

// CreateGroup creates an empty group, optionally bound to an area
func (s *PhotoService) CreateGroup(ctx context.Context, req CreateGroupRequest, actor *Actor) (*GroupView, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, validationf("title is required")
	}
	group := &models.ComparisonGroup{Title: title}

	if (req.AreaID != nil && *req.AreaID != 0) || strings.TrimSpace(req.AreaName) != "" {
		area, err := s.areas.ResolveArea(ctx, req.AreaID, req.AreaName)
		if err != nil {
			return nil, err
		}
		group.AreaID = &area.ID
	}
	if d := strings.TrimSpace(req.Description); d != "" {
		group.Description = &d
	}
	if k := strings.TrimSpace(req.Keterangan); k != "" {
		group.Keterangan = &k
	}

	if err := s.groupRepo.CreateGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}
	s.record(ctx, audit.Entry{Entity: audit.EntityGroup, Operation: audit.OpCreate, UserID: actor.UserID(), Data: group})
	return s.GetGroup(ctx, group.ID)
}

// UpdateGroup changes title, description or keterangan
func (s *PhotoService) UpdateGroup(ctx context.Context, id uint, req UpdateGroupRequest, actor *Actor) (*GroupView, error) {
	fields := map[string]interface{}{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, validationf("title must not be empty")
		}
		fields["title"] = title
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Keterangan != nil {
		fields["keterangan"] = *req.Keterangan
	}

	if err := s.groupRepo.UpdateGroup(ctx, id, fields); err != nil {
		return nil, mapRepoErr(err)
	}
	view, err := s.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	s.record(ctx, audit.Entry{Entity: audit.EntityGroup, Operation: audit.OpUpdate, UserID: actor.UserID(), Data: fields})
	return view, nil
}

// DeleteGroup deletes the group's photo rows and the group in one transaction,
// then removes the photos' files best-effort
func (s *PhotoService) DeleteGroup(ctx context.Context, id uint, actor *Actor) error {
	photos, err := s.groupRepo.DeleteGroupWithPhotos(ctx, id)
	if err != nil {
		return mapRepoErr(err)
	}
	for i := range photos {
		s.files.remove(photoFiles(&photos[i])...)
	}

	s.record(ctx, audit.Entry{
		Entity:    audit.EntityGroup,
		Operation: audit.OpDelete,
		UserID:    actor.UserID(),
		Data:      map[string]interface{}{"id": id, "deletedPhotos": len(photos)},
	})
	return nil
}
