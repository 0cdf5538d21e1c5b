// Package controller implements the core business logic (service layer)
// for managing Company entities: validation, logo storage, persistence with
// employee cascade on delete, and lifecycle events.
package controller

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/gartstein/companies/internal/company/db"
	e "github.com/gartstein/companies/internal/company/errors"
	"github.com/gartstein/companies/internal/company/events"
	"github.com/gartstein/companies/internal/company/models"
	"go.uber.org/zap"
)

const (
	// DefaultPageSize is used when a list request does not name a page size.
	DefaultPageSize = 15
	// MaxPageSize bounds the page size a caller may ask for.
	MaxPageSize = 100
)

type EventProducer interface {
	Produce(eventType events.EventType, company *models.Company)
}

// Repository defines the storage interface for Company objects.
type Repository interface {
	ListCompanies(ctx context.Context, offset, limit int) ([]*models.Company, int64, error)
	GetCompany(ctx context.Context, id uint) (*models.Company, error)
	UpdateCompany(ctx context.Context, company *models.Company) error
	CompanyEmailTaken(ctx context.Context, email string, excludeID uint) (bool, error)
	WithTransaction(ctx context.Context, fn func(repo *db.Repository) error) error
}

// BlobStore keeps logo files by name.
type BlobStore interface {
	Put(ctx context.Context, name string, r io.Reader) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Exists(ctx context.Context, name string) (bool, error)
	Delete(ctx context.Context, name string) error
}

// ImageResizer turns a decoded upload into an encoded thumbnail.
type ImageResizer interface {
	Resize(src image.Image) ([]byte, error)
}

// CompanyService provides methods to manage companies via repository
// operations, logo storage and event production.
type CompanyService struct {
	repo     Repository
	blobs    BlobStore
	resizer  ImageResizer
	producer EventProducer
	logger   *zap.Logger
	now      func() time.Time
}

// NewCompanyService constructs a CompanyService.
func NewCompanyService(
	repo Repository,
	blobs BlobStore,
	resizer ImageResizer,
	producer EventProducer,
	logger *zap.Logger,
) *CompanyService {
	if producer == nil {
		producer = events.NopProducer{}
	}
	return &CompanyService{
		repo:     repo,
		blobs:    blobs,
		resizer:  resizer,
		producer: producer,
		logger:   logger.Named("company_service"),
		now:      time.Now,
	}
}

// ListCompanies returns one page of companies in id order. Zero values for
// pageSize and page select the defaults.
func (s *CompanyService) ListCompanies(ctx context.Context, pageSize, page int) (*models.CompanyPage, error) {
	ve := e.NewValidationError()
	switch {
	case pageSize < 0:
		ve.Add("limit", "The limit must be at least 1.")
	case pageSize > MaxPageSize:
		ve.Add("limit", "The limit may not be greater than "+strconv.Itoa(MaxPageSize)+".")
	case pageSize == 0:
		pageSize = DefaultPageSize
	}
	if page < 0 {
		ve.Add("page", "The page must be at least 1.")
	}
	if err := ve.ErrorOrNil(); err != nil {
		return nil, err
	}
	if page == 0 {
		page = 1
	}
	if page-1 > math.MaxInt32/pageSize {
		ve.Add("page", "The page is too large.")
		return nil, ve
	}

	offset := (page - 1) * pageSize
	companies, total, err := s.repo.ListCompanies(ctx, offset, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}

	result := &models.CompanyPage{
		CurrentPage: page,
		Data:        companies,
		LastPage:    lastPage(total, pageSize),
		PerPage:     pageSize,
		Total:       total,
	}
	if len(companies) > 0 {
		from, to := offset+1, offset+len(companies)
		result.From, result.To = &from, &to
	}
	return result, nil
}

func lastPage(total int64, pageSize int) int {
	if total == 0 {
		return 1
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

// CreateCompany validates the input, persists the company and then attaches
// its resized logo. Row and logo reference commit together; a stored logo is
// removed again if the transaction does not commit.
func (s *CompanyService) CreateCompany(ctx context.Context, in *models.CompanyInput) (*models.Company, error) {
	logo, err := s.validate(ctx, in, 0)
	if err != nil {
		return nil, err
	}

	var thumbnail []byte
	if logo != nil {
		if thumbnail, err = s.resizer.Resize(logo); err != nil {
			return nil, fmt.Errorf("failed to resize logo: %w", err)
		}
	}

	company := &models.Company{
		Name:    in.Name,
		Email:   in.Email,
		Website: in.Website,
	}

	var stored string
	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if err := tx.CreateCompany(ctx, company); err != nil {
			return err
		}
		if thumbnail == nil {
			return nil
		}

		name := s.logoFilename(in.Logo.Filename)
		if err := s.blobs.Put(ctx, name, bytes.NewReader(thumbnail)); err != nil {
			return err
		}
		stored = name
		if err := tx.SetCompanyLogo(ctx, company.ID, name); err != nil {
			return err
		}
		company.Logo = &name
		return nil
	})
	if err != nil {
		if stored != "" {
			s.discardLogo(ctx, stored, "create rolled back")
		}
		return nil, fmt.Errorf("failed to create company: %w", err)
	}

	s.logger.Info("Company created",
		zap.Uint("company_id", company.ID),
		zap.Bool("has_logo", company.HasLogo()),
	)
	s.producer.Produce(events.CompanyCreated, company)
	return company, nil
}

// UpdateCompany overwrites name, email and website of an existing company
// and, when a logo is supplied, swaps in a new logo file. The previous logo
// is removed only once the new row state is saved.
func (s *CompanyService) UpdateCompany(ctx context.Context, in *models.CompanyInput) (*models.Company, error) {
	if in.ID == 0 {
		ve := e.NewValidationError()
		ve.Add("id", "The id field is required.")
		return nil, ve
	}

	logo, err := s.validate(ctx, in, in.ID)
	if err != nil {
		return nil, err
	}

	company, err := s.repo.GetCompany(ctx, in.ID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get company for update: %w", err)
	}
	oldLogo := company.Logo

	var newLogo string
	if logo != nil {
		thumbnail, err := s.resizer.Resize(logo)
		if err != nil {
			return nil, fmt.Errorf("failed to resize logo: %w", err)
		}
		name := s.logoFilename(in.Logo.Filename)
		if err := s.blobs.Put(ctx, name, bytes.NewReader(thumbnail)); err != nil {
			return nil, fmt.Errorf("failed to store logo: %w", err)
		}
		newLogo = name
		company.Logo = &newLogo
	}

	company.Name = in.Name
	company.Email = in.Email
	company.Website = in.Website

	if err := s.repo.UpdateCompany(ctx, company); err != nil {
		if newLogo != "" {
			s.discardLogo(ctx, newLogo, "update failed")
		}
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update company: %w", err)
	}

	if newLogo != "" && oldLogo != nil && *oldLogo != "" {
		s.discardLogo(ctx, *oldLogo, "replaced")
	}

	s.logger.Info("Company updated",
		zap.Uint("company_id", company.ID),
		zap.Bool("logo_replaced", newLogo != ""),
	)
	s.producer.Produce(events.CompanyUpdated, company)
	return company, nil
}

// DeleteCompany removes a company together with all of its employees, then
// drops its logo file.
func (s *CompanyService) DeleteCompany(ctx context.Context, id uint) error {
	if id == 0 {
		ve := e.NewValidationError()
		ve.Add("id", "The id field is required.")
		return ve
	}

	var deleted *models.Company
	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		company, err := tx.GetCompany(ctx, id)
		if err != nil {
			return err
		}
		removed, err := tx.DeleteEmployeesByCompany(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to delete employees: %w", err)
		}
		if err := tx.DeleteCompany(ctx, id); err != nil {
			return err
		}
		s.logger.Debug("Cascaded employee delete",
			zap.Uint("company_id", id),
			zap.Int64("employees", removed),
		)
		deleted = company
		return nil
	})
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete company: %w", err)
	}

	if deleted.HasLogo() {
		s.discardLogo(ctx, *deleted.Logo, "company deleted")
	}

	s.logger.Info("Company deleted", zap.Uint("company_id", id))
	s.producer.Produce(events.CompanyDeleted, deleted)
	return nil
}

// OpenLogo streams a stored logo by filename.
func (s *CompanyService) OpenLogo(ctx context.Context, name string) (io.ReadCloser, error) {
	return s.blobs.Open(ctx, name)
}

// discardLogo deletes a logo file best-effort. Failures are logged and
// never reach the caller.
func (s *CompanyService) discardLogo(ctx context.Context, name, reason string) {
	ctx = context.WithoutCancel(ctx)

	exists, err := s.blobs.Exists(ctx, name)
	if err != nil {
		s.logger.Warn("Failed to check logo before removal",
			zap.String("logo", name),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return
	}
	if !exists {
		return
	}
	if err := s.blobs.Delete(ctx, name); err != nil {
		s.logger.Warn("Failed to remove logo",
			zap.String("logo", name),
			zap.String("reason", reason),
			zap.Error(err),
		)
	}
}
