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

type VendorService struct {
	vendorRepo *repository.VendorRepository
	sink       audit.Sink
	log        logrus.FieldLogger
}

func NewVendorService(vendorRepo *repository.VendorRepository, sink audit.Sink, log logrus.FieldLogger) *VendorService {
	return &VendorService{vendorRepo: vendorRepo, sink: sink, log: log.WithField("component", "vendors")}
}

// VendorInput carries create and partial-update fields. Active defaults to true on create.
type VendorInput struct {
	Name   *string `json:"name"`
	Active *bool   `json:"active"`
}

func (s *VendorService) GetAllVendors(ctx context.Context, activeOnly bool) ([]models.Vendor, error) {
	return s.vendorRepo.GetAllVendors(ctx, activeOnly)
}

func (s *VendorService) CreateVendor(ctx context.Context, in VendorInput, actor *Actor) (*models.Vendor, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, validationf("name is required")
	}
	vendor := &models.Vendor{Name: strings.TrimSpace(*in.Name), Active: true}
	if in.Active != nil {
		vendor.Active = *in.Active
	}
	if err := s.vendorRepo.CreateVendor(ctx, vendor); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("vendor name: %w", ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to create vendor: %w", err)
	}
	s.record(ctx, audit.Entry{Entity: audit.EntityVendor, Operation: audit.OpCreate, UserID: actor.UserID(), Data: vendor})
	return vendor, nil
}

func (s *VendorService) UpdateVendor(ctx context.Context, id uint, in VendorInput, actor *Actor) (*models.Vendor, error) {
	fields := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, validationf("name must not be empty")
		}
		fields["name"] = name
	}
	if in.Active != nil {
		fields["active"] = *in.Active
	}
	if err := s.vendorRepo.UpdateVendor(ctx, id, fields); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("vendor name: %w", ErrDuplicate)
		}
		return nil, mapRepoErr(err)
	}
	vendor, err := s.vendorRepo.GetVendorByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	s.record(ctx, audit.Entry{Entity: audit.EntityVendor, Operation: audit.OpUpdate, UserID: actor.UserID(), Data: vendor})
	return vendor, nil
}

func (s *VendorService) DeleteVendor(ctx context.Context, id uint, actor *Actor) error {
	if err := s.vendorRepo.DeleteVendor(ctx, id); err != nil {
		return mapRepoErr(err)
	}
	s.record(ctx, audit.Entry{Entity: audit.EntityVendor, Operation: audit.OpDelete, UserID: actor.UserID(), Data: map[string]uint{"id": id}})
	return nil
}

func (s *VendorService) record(ctx context.Context, entry audit.Entry) {
	recordAudit(ctx, s.sink, s.log, entry)
}
