package repository_test

import (
	"context"
	"errors"
	"testing"

	"fad-monitoring-backend/internal/models"
	"fad-monitoring-backend/internal/repository"
	"fad-monitoring-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedGroup(t *testing.T, db *gorm.DB, categories ...string) (*models.Area, *models.ComparisonGroup) {
	t.Helper()
	area := &models.Area{Name: "Gudang A"}
	require.NoError(t, db.Create(area).Error)
	group := &models.ComparisonGroup{Title: "Rak 1", AreaID: &area.ID}
	require.NoError(t, db.Create(group).Error)
	for _, category := range categories {
		category := category
		require.NoError(t, db.Create(&models.Photo{
			AreaID:            area.ID,
			ComparisonGroupID: &group.ID,
			Category:          &category,
			Filename:          category + ".jpg",
		}).Error)
	}
	return area, group
}

func countPhotos(t *testing.T, db *gorm.DB, groupID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Photo{}).Where("comparison_group_id = ?", groupID).Count(&n).Error)
	return n
}

func TestCreatePhotoBatchUniqueSlot(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewPhotoRepo(db)
	area, group := seedGroup(t, db, models.CategoryBefore)

	before := models.CategoryBefore
	after := models.CategoryAfter
	photos := []models.Photo{
		{AreaID: area.ID, Category: &after, Filename: "after.jpg"},
		{AreaID: area.ID, Category: &before, Filename: "again.jpg"},
	}
	err := repo.CreatePhotoBatch(context.Background(), nil, &group.ID, photos, nil)
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	// the whole batch rolls back, including the photo for the free slot
	assert.Equal(t, int64(1), countPhotos(t, db, group.ID))
}

func TestCreatePhotoBatchGuardSeesLockedCounts(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewPhotoRepo(db)
	area, group := seedGroup(t, db, models.CategoryBefore, models.CategoryAction)

	veto := errors.New("slot taken")
	var seen models.CategoryCounts
	guard := func(counts models.CategoryCounts) error {
		seen = counts
		return veto
	}
	after := models.CategoryAfter
	err := repo.CreatePhotoBatch(context.Background(), nil, &group.ID, []models.Photo{
		{AreaID: area.ID, Category: &after, Filename: "after.jpg"},
	}, guard)
	assert.ErrorIs(t, err, veto)
	assert.Equal(t, models.CategoryCounts{Before: 1, Action: 1}, seen)
	assert.Equal(t, int64(2), countPhotos(t, db, group.ID))

	err = repo.CreatePhotoBatch(context.Background(), nil, &group.ID, []models.Photo{
		{AreaID: area.ID, Category: &after, Filename: "after.jpg"},
	}, func(models.CategoryCounts) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, int64(3), countPhotos(t, db, group.ID))
}

func TestCreatePhotoBatchMissingGroup(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewPhotoRepo(db)
	area, _ := seedGroup(t, db)

	missing := uint(999)
	err := repo.CreatePhotoBatch(context.Background(), nil, &missing, []models.Photo{
		{AreaID: area.ID, Filename: "x.jpg"},
	}, nil)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
