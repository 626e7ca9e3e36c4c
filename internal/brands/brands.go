// Package brands exposes the read-only brand directory.
package brands

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/singleflight"

	"github.com/mercato-admin/mercato-admin/internal/catalog"
)

// Repository loads brands from storage.
type Repository interface {
	ListBrands(ctx context.Context) ([]catalog.Brand, error)
}

type repo struct {
	pool *pgxpool.Pool
}

// NewRepository creates a Postgres-backed brand repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repo{pool: pool}
}

func (r *repo) ListBrands(ctx context.Context) ([]catalog.Brand, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM brands ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("brands: list: %w", err)
	}
	defer rows.Close()

	var brands []catalog.Brand
	for rows.Next() {
		var b catalog.Brand
		if err := rows.Scan(&b.ID, &b.Name); err != nil {
			return nil, fmt.Errorf("brands: list: %w", err)
		}
		brands = append(brands, b)
	}
	return brands, rows.Err()
}

// Service serves the brand directory. Concurrent listing requests are
// collapsed into one storage round trip; every product page renders the
// brand dropdown, so the list is requested constantly.
type Service struct {
	repo  Repository
	group singleflight.Group
}

// NewService wires the brand service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListBrands returns all brands ordered by name.
func (s *Service) ListBrands(ctx context.Context) ([]catalog.Brand, error) {
	result, err, _ := s.group.Do("brands", func() (any, error) {
		return s.repo.ListBrands(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]catalog.Brand), nil
}
