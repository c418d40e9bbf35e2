package service

import (
	"context"
	"testing"
	"time"

	"fad-monitoring-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func str(s string) *string { return &s }

func TestFadSearchMatchesTextAndDates(t *testing.T) {
	env := newTestEnv(t)
	env.fads.loc = time.UTC
	ctx := context.Background()

	vendor, err := env.vendors.CreateVendor(ctx, VendorInput{Name: str("PT Sinar")}, nil)
	require.NoError(t, err)
	assert.True(t, vendor.Active)

	_, err = env.fads.CreateFad(ctx, FadInput{NoFad: str("FAD-001"), Item: str("Pompa"), TerimaFad: str("2024-05-10"), VendorID: &vendor.ID}, nil)
	require.NoError(t, err)
	_, err = env.fads.CreateFad(ctx, FadInput{NoFad: str("FAD-002"), Item: str("Kabel"), TerimaFad: str("2024-06-02"), Status: str("Selesai")}, nil)
	require.NoError(t, err)

	page := repository.NewPage(1, 10, 10)

	all, total, err := env.fads.ListFads(ctx, FadQuery{}, page)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "FAD-002", all[0].NoFad, "newest terima_fad first")

	byVendor, _, err := env.fads.ListFads(ctx, FadQuery{Search: "sinar"}, page)
	require.NoError(t, err)
	require.Len(t, byVendor, 1)
	assert.Equal(t, "PT Sinar", byVendor[0].Vendor)
	require.NotNil(t, byVendor[0].VendorRel)

	byMonth, _, err := env.fads.ListFads(ctx, FadQuery{Search: "2024-05"}, page)
	require.NoError(t, err)
	require.Len(t, byMonth, 1)
	assert.Equal(t, "FAD-001", byMonth[0].NoFad)

	byDay, _, err := env.fads.ListFads(ctx, FadQuery{Search: "02/06/2024"}, page)
	require.NoError(t, err)
	require.Len(t, byDay, 1)
	assert.Equal(t, "FAD-002", byDay[0].NoFad)

	byStatus, _, err := env.fads.ListFads(ctx, FadQuery{Status: "selesai"}, page)
	require.NoError(t, err)
	assert.Len(t, byStatus, 1)
}

func TestFadUpdateAndVendorDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	vendor, err := env.vendors.CreateVendor(ctx, VendorInput{Name: str("PT Sinar")}, nil)
	require.NoError(t, err)
	fad, err := env.fads.CreateFad(ctx, FadInput{NoFad: str("FAD-001"), VendorID: &vendor.ID}, nil)
	require.NoError(t, err)

	updated, err := env.fads.UpdateFad(ctx, fad.ID, FadInput{Keterangan: str("dikirim"), Bast: str("")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "dikirim", updated.Keterangan)
	assert.Equal(t, "FAD-001", updated.NoFad)
	assert.Nil(t, updated.Bast)

	_, err = env.fads.UpdateFad(ctx, fad.ID, FadInput{TerimaBbm: str("kemarin")}, nil)
	assert.ErrorIs(t, err, ErrValidation)

	missing := uint(404)
	_, err = env.fads.UpdateFad(ctx, fad.ID, FadInput{VendorID: &missing}, nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.vendors.CreateVendor(ctx, VendorInput{Name: str("PT Sinar")}, nil)
	assert.ErrorIs(t, err, ErrDuplicate)

	require.NoError(t, env.vendors.DeleteVendor(ctx, vendor.ID, nil))
	after, err := env.fads.GetFad(ctx, fad.ID)
	require.NoError(t, err)
	assert.Nil(t, after.VendorID)

	require.NoError(t, env.fads.DeleteFad(ctx, fad.ID, nil))
	_, err = env.fads.GetFad(ctx, fad.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
