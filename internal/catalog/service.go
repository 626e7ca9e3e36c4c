package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mercato-admin/mercato-admin/internal/shared"
)

// ActorResolver maps a caller-supplied account id onto a valid actor id
// for audit columns.
type ActorResolver func(ctx context.Context, requested int64) (int64, error)

// DefaultActorResolver accepts the requested account when it exists and
// otherwise falls back to any account on record. It fails only when the
// accounts table is empty.
func DefaultActorResolver(repo Repository) ActorResolver {
	return func(ctx context.Context, requested int64) (int64, error) {
		if requested > 0 {
			ok, err := repo.AccountExists(ctx, requested)
			if err != nil {
				return 0, err
			}
			if ok {
				return requested, nil
			}
		}
		return repo.AnyAccountID(ctx)
	}
}

// Service exposes the catalog operations to transport handlers.
type Service struct {
	repo         Repository
	resolveActor ActorResolver
	audit        *shared.AuditLogger
	logger       *slog.Logger
}

// NewService wires the catalog service. audit may be nil.
func NewService(repo Repository, resolveActor ActorResolver, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	if resolveActor == nil {
		resolveActor = DefaultActorResolver(repo)
	}
	return &Service{repo: repo, resolveActor: resolveActor, audit: audit, logger: logger}
}

// List returns one page of products matching the filter.
func (s *Service) List(ctx context.Context, page, pageSize int, filter *ProductFilter) (shared.PagedResult[ProductView], error) {
	if err := GuardFilter(filter); err != nil {
		return shared.PagedResult[ProductView]{}, err
	}
	page, pageSize = shared.ClampPaging(page, pageSize)
	items, total, err := s.repo.ListPaged(ctx, filter, page, pageSize)
	if err != nil {
		return shared.PagedResult[ProductView]{}, err
	}
	return shared.NewPagedResult(items, total, page, pageSize), nil
}

// ListAll returns every product matching the filter, unpaginated. Export
// uses this path.
func (s *Service) ListAll(ctx context.Context, filter *ProductFilter) ([]ProductView, error) {
	if err := GuardFilter(filter); err != nil {
		return nil, err
	}
	return s.repo.ListAll(ctx, filter)
}

// Get returns a single non-deleted product.
func (s *Service) Get(ctx context.Context, id int64) (ProductView, error) {
	return s.repo.GetByID(ctx, id)
}

// Create validates and persists a new product, returning its name.
func (s *Service) Create(ctx context.Context, input CreateProductInput) (string, error) {
	input.Code = strings.TrimSpace(input.Code)
	input.Name = strings.TrimSpace(input.Name)
	input.BrandName = strings.TrimSpace(input.BrandName)
	input.Description = strings.TrimSpace(input.Description)

	if err := validateProductFields(input.Code, input.Name, input.BrandName, input.Description, input.PriceVnd, input.Stock); err != nil {
		return "", err
	}

	dup, err := s.repo.HasDuplicate(ctx, input.Code, input.Name, 0)
	if err != nil {
		return "", err
	}
	if dup {
		return "", fmt.Errorf("%w: code %q or name %q", ErrDuplicate, input.Code, input.Name)
	}

	brandID, err := s.repo.FindBrandIDByName(ctx, input.BrandName)
	if err != nil {
		return "", err
	}
	actorID, err := s.resolveActor(ctx, input.ActorID)
	if err != nil {
		return "", err
	}

	status := StatusActive
	if input.Status != nil && *input.Status == StatusInactive {
		status = StatusInactive
	}

	product := Product{
		Code:          input.Code,
		Name:          input.Name,
		BrandID:       brandID,
		PriceVnd:      input.PriceVnd,
		Stock:         input.Stock,
		Status:        status,
		Description:   input.Description,
		ImageURL:      strings.TrimSpace(input.ImageURL),
		SearchKeyword: BuildSearchKeyword(input.Code, input.Name, input.BrandName, input.Description),
		CreatedBy:     actorID,
		UpdatedBy:     actorID,
	}

	id, err := s.repo.Insert(ctx, product)
	if err != nil {
		return "", err
	}
	s.recordAudit(ctx, actorID, "product.create", id, map[string]any{"code": input.Code, "name": input.Name})
	return input.Name, nil
}

// Edit overwrites a product's mutable fields. The stored image survives
// unless a non-blank replacement arrives; updated_by changes only when
// the caller's account id is valid.
func (s *Service) Edit(ctx context.Context, input EditProductInput) error {
	input.Code = strings.TrimSpace(input.Code)
	input.Name = strings.TrimSpace(input.Name)
	input.BrandName = strings.TrimSpace(input.BrandName)
	input.Description = strings.TrimSpace(input.Description)

	if err := validateProductFields(input.Code, input.Name, input.BrandName, input.Description, input.PriceVnd, input.Stock); err != nil {
		return err
	}

	dup, err := s.repo.HasDuplicate(ctx, input.Code, input.Name, input.ID)
	if err != nil {
		return err
	}
	if dup {
		return fmt.Errorf("%w: code %q or name %q", ErrDuplicate, input.Code, input.Name)
	}

	existing, err := s.repo.GetRow(ctx, input.ID)
	if err != nil {
		return err
	}
	brandID, err := s.repo.FindBrandIDByName(ctx, input.BrandName)
	if err != nil {
		return err
	}

	imageURL := existing.ImageURL
	if trimmed := strings.TrimSpace(input.ImageURL); trimmed != "" {
		imageURL = trimmed
	}

	updatedBy := existing.UpdatedBy
	if input.ActorID > 0 {
		ok, err := s.repo.AccountExists(ctx, input.ActorID)
		if err != nil {
			return err
		}
		if ok {
			updatedBy = input.ActorID
		}
	}

	product := Product{
		ID:            input.ID,
		Code:          input.Code,
		Name:          input.Name,
		BrandID:       brandID,
		PriceVnd:      input.PriceVnd,
		Stock:         input.Stock,
		Status:        input.Status,
		Description:   input.Description,
		ImageURL:      imageURL,
		SearchKeyword: BuildSearchKeyword(input.Code, input.Name, input.BrandName, input.Description),
		UpdatedBy:     updatedBy,
	}
	if err := s.repo.Update(ctx, product); err != nil {
		return err
	}
	s.recordAudit(ctx, updatedBy, "product.edit", input.ID, map[string]any{"code": input.Code, "name": input.Name})
	return nil
}

// Delete soft-deletes a product. It reports false when the id is
// unknown and true otherwise, including rows already deleted.
func (s *Service) Delete(ctx context.Context, id int64, actorID int64) (bool, error) {
	ok, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return false, err
	}
	if ok {
		s.recordAudit(ctx, actorID, "product.delete", id, nil)
	}
	return ok, nil
}

// BulkDelete soft-deletes each distinct id, aborting on the first
// error. Only the aggregate success count is reported.
func (s *Service) BulkDelete(ctx context.Context, ids []int64, actorID int64) (int, error) {
	seen := make(map[int64]struct{}, len(ids))
	successes := 0
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ok, err := s.Delete(ctx, id, actorID)
		if err != nil {
			return successes, err
		}
		if ok {
			successes++
		}
	}
	return successes, nil
}

func validateProductFields(code, name, brandName, description string, price float64, stock int) error {
	switch {
	case code == "":
		return fmt.Errorf("%w: code is required", ErrValidation)
	case name == "":
		return fmt.Errorf("%w: name is required", ErrValidation)
	case brandName == "":
		return fmt.Errorf("%w: brand name is required", ErrValidation)
	case description == "":
		return fmt.Errorf("%w: description is required", ErrValidation)
	case price < 0:
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	case stock < 0:
		return fmt.Errorf("%w: stock must not be negative", ErrValidation)
	}
	for field, text := range map[string]string{
		"code": code, "name": name, "brandName": brandName, "description": description,
	} {
		if err := GuardText(field, text); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, productID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "product",
		EntityID: strconv.FormatInt(productID, 10),
		Meta:     meta,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
