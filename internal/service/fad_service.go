package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fad-monitoring-backend/internal/audit"
	"fad-monitoring-backend/internal/models"
	"fad-monitoring-backend/internal/repository"

	"github.com/sirupsen/logrus"
)

type FadService struct {
	fadRepo    *repository.FadRepository
	vendorRepo *repository.VendorRepository
	sink       audit.Sink
	log        logrus.FieldLogger
	loc        *time.Location
}

func NewFadService(
	fadRepo *repository.FadRepository,
	vendorRepo *repository.VendorRepository,
	sink audit.Sink,
	log logrus.FieldLogger,
) *FadService {
	return &FadService{
		fadRepo:    fadRepo,
		vendorRepo: vendorRepo,
		sink:       sink,
		log:        log.WithField("component", "fad"),
		loc:        time.Local,
	}
}

// FadInput carries create and partial-update fields; nil fields are not touched on update
type FadInput struct {
	NoFad      *string `json:"no_fad"`
	Item       *string `json:"item"`
	Plant      *string `json:"plant"`
	TerimaFad  *string `json:"terima_fad"`
	TerimaBbm  *string `json:"terima_bbm"`
	Bast       *string `json:"bast"`
	Vendor     *string `json:"vendor"`
	VendorID   *uint   `json:"vendor_id"`
	Status     *string `json:"status"`
	Deskripsi  *string `json:"deskripsi"`
	Keterangan *string `json:"keterangan"`
}

// FadQuery holds the listing filters accepted from clients
type FadQuery struct {
	Search string
	Status string
}

// ListFads searches FAD records. A search that reads as a day or month also matches date fields.
func (s *FadService) ListFads(ctx context.Context, q FadQuery, page repository.Page) ([]models.Fad, int64, error) {
	filter := repository.FadFilter{
		Search: strings.TrimSpace(q.Search),
		Status: strings.TrimSpace(q.Status),
	}
	if filter.Search != "" {
		if from, to, ok := searchRange(filter.Search, s.loc); ok {
			filter.DateFrom, filter.DateTo = &from, &to
		}
	}
	fads, total, err := s.fadRepo.ListFads(ctx, filter, page)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list fad: %w", err)
	}
	return fads, total, nil
}

// GetFad returns one FAD record
func (s *FadService) GetFad(ctx context.Context, id uint) (*models.Fad, error) {
	fad, err := s.fadRepo.GetFadByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return fad, nil
}

func (s *FadService) fields(ctx context.Context, in FadInput) (map[string]interface{}, error) {
	fields := map[string]interface{}{}
	text := map[string]*string{
		"no_fad":     in.NoFad,
		"item":       in.Item,
		"plant":      in.Plant,
		"vendor":     in.Vendor,
		"status":     in.Status,
		"deskripsi":  in.Deskripsi,
		"keterangan": in.Keterangan,
	}
	for col, v := range text {
		if v != nil {
			fields[col] = strings.TrimSpace(*v)
		}
	}

	dates := map[string]*string{
		"terima_fad": in.TerimaFad,
		"terima_bbm": in.TerimaBbm,
		"bast":       in.Bast,
	}
	for col, v := range dates {
		if v == nil {
			continue
		}
		t, ok := parseDateValue(*v, s.loc)
		if !ok {
			return nil, validationf("%s is not a valid date", col)
		}
		fields[col] = t
	}

	if in.VendorID != nil {
		if *in.VendorID == 0 {
			fields["vendor_id"] = nil
		} else {
			vendor, err := s.vendorRepo.GetVendorByID(ctx, *in.VendorID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return nil, validationf("vendor %d does not exist", *in.VendorID)
				}
				return nil, err
			}
			fields["vendor_id"] = vendor.ID
			if in.Vendor == nil {
				fields["vendor"] = vendor.Name
			}
		}
	}
	return fields, nil
}

// CreateFad creates a FAD record
func (s *FadService) CreateFad(ctx context.Context, in FadInput, actor *Actor) (*models.Fad, error) {
	fields, err := s.fields(ctx, in)
	if err != nil {
		return nil, err
	}

	fad := &models.Fad{}
	applyFadFields(fad, fields)
	if err := s.fadRepo.CreateFad(ctx, fad); err != nil {
		return nil, fmt.Errorf("failed to create fad: %w", err)
	}
	s.record(ctx, audit.Entry{Entity: audit.EntityFad, Operation: audit.OpCreate, UserID: actor.UserID(), Data: fad})
	return s.GetFad(ctx, fad.ID)
}

// UpdateFad applies a partial update
func (s *FadService) UpdateFad(ctx context.Context, id uint, in FadInput, actor *Actor) (*models.Fad, error) {
	fields, err := s.fields(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.fadRepo.UpdateFad(ctx, id, fields); err != nil {
		return nil, mapRepoErr(err)
	}
	fad, err := s.GetFad(ctx, id)
	if err != nil {
		return nil, err
	}
	s.record(ctx, audit.Entry{Entity: audit.EntityFad, Operation: audit.OpUpdate, UserID: actor.UserID(), Data: map[string]interface{}{"id": id, "fields": fields}})
	return fad, nil
}

// DeleteFad removes a FAD record
func (s *FadService) DeleteFad(ctx context.Context, id uint, actor *Actor) error {
	fad, err := s.fadRepo.GetFadByID(ctx, id)
	if err != nil {
		return mapRepoErr(err)
	}
	if err := s.fadRepo.DeleteFad(ctx, id); err != nil {
		return mapRepoErr(err)
	}
	s.record(ctx, audit.Entry{Entity: audit.EntityFad, Operation: audit.OpDelete, UserID: actor.UserID(), Data: fad})
	return nil
}

func applyFadFields(fad *models.Fad, fields map[string]interface{}) {
	str := func(col string) string {
		if v, ok := fields[col].(string); ok {
			return v
		}
		return ""
	}
	date := func(col string) *time.Time {
		if v, ok := fields[col].(*time.Time); ok {
			return v
		}
		return nil
	}
	fad.NoFad = str("no_fad")
	fad.Item = str("item")
	fad.Plant = str("plant")
	fad.Vendor = str("vendor")
	fad.Status = str("status")
	fad.Deskripsi = str("deskripsi")
	fad.Keterangan = str("keterangan")
	fad.TerimaFad = date("terima_fad")
	fad.TerimaBbm = date("terima_bbm")
	fad.Bast = date("bast")
	if v, ok := fields["vendor_id"].(uint); ok {
		fad.VendorID = &v
	}
}

func (s *FadService) record(ctx context.Context, entry audit.Entry) {
	recordAudit(ctx, s.sink, s.log, entry)
}
