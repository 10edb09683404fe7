package stores

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lojinha-app/lojinha-backend/pkg/config"
	"github.com/lojinha-app/lojinha-backend/pkg/db/models"
	pkgerrors "github.com/lojinha-app/lojinha-backend/pkg/errors"
)

var slugRe = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Service defines merchant store management.
type Service interface {
	Create(ctx context.Context, input CreateStoreInput) (*models.Store, error)
	Get(ctx context.Context, storeID uuid.UUID) (*models.Store, error)
	GetBySlug(ctx context.Context, slug string) (*models.Store, error)
	UpdateMaturityDays(ctx context.Context, storeID uuid.UUID, days int) (*models.Store, error)
}

// CreateStoreInput captures a new storefront registration.
type CreateStoreInput struct {
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	OwnerEmail   string `json:"owner_email"`
	MaturityDays *int   `json:"maturity_days"`
}

type service struct {
	repo Repository
	cfg  config.CommissionConfig
}

// NewService wires store dependencies.
func NewService(repo Repository, cfg config.CommissionConfig) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "stores repository required")
	}
	return &service{repo: repo, cfg: cfg}, nil
}

func (s *service) Create(ctx context.Context, input CreateStoreInput) (*models.Store, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store name required")
	}
	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	if !slugRe.MatchString(slug) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug must be lowercase letters, digits and hyphens")
	}
	email := strings.TrimSpace(input.OwnerEmail)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner email required")
	}

	days := s.cfg.DefaultMaturityDays
	if input.MaturityDays != nil {
		if err := s.checkMaturityDays(*input.MaturityDays); err != nil {
			return nil, err
		}
		days = *input.MaturityDays
	}

	store := &models.Store{
		Name:         name,
		Slug:         slug,
		OwnerEmail:   email,
		MaturityDays: days,
		Active:       true,
	}
	if err := s.repo.Create(ctx, store); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create store")
	}
	return store, nil
}

func (s *service) Get(ctx context.Context, storeID uuid.UUID) (*models.Store, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	store, err := s.repo.FindByID(ctx, storeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	return store, nil
}

func (s *service) GetBySlug(ctx context.Context, slug string) (*models.Store, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug required")
	}
	store, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	return store, nil
}

// UpdateMaturityDays changes how long this store's commissions wait
// after delivery. Existing earnings keep the availability stamped at
// their delivery time.
func (s *service) UpdateMaturityDays(ctx context.Context, storeID uuid.UUID, days int) (*models.Store, error) {
	store, err := s.Get(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if err := s.checkMaturityDays(days); err != nil {
		return nil, err
	}
	store.MaturityDays = days
	store.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, store); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update store")
	}
	return store, nil
}

func (s *service) checkMaturityDays(days int) error {
	if days < 0 || days > s.cfg.MaxMaturityDays {
		return pkgerrors.New(pkgerrors.CodeValidation, "maturity days out of range")
	}
	return nil
}
