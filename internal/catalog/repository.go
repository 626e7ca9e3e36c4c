package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mercato-admin/mercato-admin/internal/platform/db"
)

// Repository is the persistence surface the catalog service needs.
type Repository interface {
	ListPaged(ctx context.Context, filter *ProductFilter, page, pageSize int) ([]ProductView, int, error)
	ListAll(ctx context.Context, filter *ProductFilter) ([]ProductView, error)
	GetByID(ctx context.Context, id int64) (ProductView, error)
	GetRow(ctx context.Context, id int64) (Product, error)
	HasDuplicate(ctx context.Context, code, name string, excludeID int64) (bool, error)
	FindBrandIDByName(ctx context.Context, name string) (int64, error)
	AccountExists(ctx context.Context, id int64) (bool, error)
	AnyAccountID(ctx context.Context) (int64, error)
	Insert(ctx context.Context, product Product) (int64, error)
	Update(ctx context.Context, product Product) error
	SoftDelete(ctx context.Context, id int64) (bool, error)
}

type repo struct {
	pool *pgxpool.Pool
}

// NewRepository creates a Postgres-backed catalog repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repo{pool: pool}
}

const viewColumns = `p.id, p.code, p.name, b.name, p.price_vnd, p.stock, p.status, p.description,
	COALESCE(p.image_url, ''), COALESCE(ca.username, ''), COALESCE(ua.username, ''), p.created_at, p.updated_at`

const viewJoins = `FROM products p
	JOIN brands b ON b.id = p.brand_id
	LEFT JOIN accounts ca ON ca.id = p.created_by
	LEFT JOIN accounts ua ON ua.id = p.updated_by`

func scanView(row pgx.Row) (ProductView, error) {
	var v ProductView
	err := row.Scan(&v.ID, &v.Code, &v.Name, &v.BrandName, &v.PriceVnd, &v.Stock, &v.Status,
		&v.Description, &v.ImageURL, &v.CreatedBy, &v.UpdatedBy, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

func collectViews(rows pgx.Rows) ([]ProductView, error) {
	defer rows.Close()
	var views []ProductView
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// ListPaged counts and slices inside one repeatable-read transaction so
// totals and items come from the same snapshot.
func (r *repo) ListPaged(ctx context.Context, filter *ProductFilter, page, pageSize int) ([]ProductView, int, error) {
	conditions, args, argPos := filterConditions(filter, 1)
	where := strings.Join(conditions, " AND ")

	var views []ProductView
	var total int
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM products p JOIN brands b ON b.id = p.brand_id WHERE %s`, where)
		if err := tx.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
			return err
		}

		listQuery := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY %s OFFSET $%d LIMIT $%d`,
			viewColumns, viewJoins, where, orderClause(filter), argPos, argPos+1)
		listArgs := append(append([]any{}, args...), (page-1)*pageSize, pageSize)

		rows, err := tx.Query(ctx, listQuery, listArgs...)
		if err != nil {
			return err
		}
		views, err = collectViews(rows)
		return err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: list products: %w", err)
	}
	return views, total, nil
}

func (r *repo) ListAll(ctx context.Context, filter *ProductFilter) ([]ProductView, error) {
	conditions, args, _ := filterConditions(filter, 1)
	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY %s`,
		viewColumns, viewJoins, strings.Join(conditions, " AND "), orderClause(filter))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: list all products: %w", err)
	}
	views, err := collectViews(rows)
	if err != nil {
		return nil, fmt.Errorf("catalog: list all products: %w", err)
	}
	return views, nil
}

func (r *repo) GetByID(ctx context.Context, id int64) (ProductView, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE p.id = $1 AND p.status >= 0`, viewColumns, viewJoins)
	v, err := scanView(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ProductView{}, fmt.Errorf("%w: product %d", ErrNotFound, id)
	}
	if err != nil {
		return ProductView{}, fmt.Errorf("catalog: get product: %w", err)
	}
	return v, nil
}

func (r *repo) GetRow(ctx context.Context, id int64) (Product, error) {
	query := `SELECT id, code, name, brand_id, price_vnd, stock, status, description,
		COALESCE(image_url, ''), COALESCE(search_keyword, ''), created_by, updated_by, created_at, updated_at
		FROM products WHERE id = $1 AND status >= 0`
	var p Product
	err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Code, &p.Name, &p.BrandID, &p.PriceVnd,
		&p.Stock, &p.Status, &p.Description, &p.ImageURL, &p.SearchKeyword,
		&p.CreatedBy, &p.UpdatedBy, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("%w: product %d", ErrNotFound, id)
	}
	if err != nil {
		return Product{}, fmt.Errorf("catalog: get product row: %w", err)
	}
	return p, nil
}

// HasDuplicate reports whether a non-deleted product other than
// excludeID already uses the code or name. Pass excludeID 0 on create.
func (r *repo) HasDuplicate(ctx context.Context, code, name string, excludeID int64) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM products
		WHERE status >= 0 AND id <> $1 AND (LOWER(code) = LOWER($2) OR LOWER(name) = LOWER($3))
	)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, excludeID, code, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("catalog: duplicate check: %w", err)
	}
	return exists, nil
}

func (r *repo) FindBrandIDByName(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `SELECT id FROM brands WHERE LOWER(name) = LOWER($1)`, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: brand %q", ErrNotFound, name)
	}
	if err != nil {
		return 0, fmt.Errorf("catalog: find brand: %w", err)
	}
	return id, nil
}

func (r *repo) AccountExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("catalog: account check: %w", err)
	}
	return exists, nil
}

func (r *repo) AnyAccountID(ctx context.Context) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `SELECT id FROM accounts ORDER BY id LIMIT 1`).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: no accounts exist", ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("catalog: default account: %w", err)
	}
	return id, nil
}

func (r *repo) Insert(ctx context.Context, product Product) (int64, error) {
	query := `INSERT INTO products
		(code, name, brand_id, price_vnd, stock, status, description, image_url, search_keyword, created_by, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`
	now := time.Now()
	var id int64
	err := r.pool.QueryRow(ctx, query, product.Code, product.Name, product.BrandID, product.PriceVnd,
		product.Stock, product.Status, product.Description, nullable(product.ImageURL),
		product.SearchKeyword, product.CreatedBy, product.UpdatedBy, now, now).Scan(&id)
	if err != nil {
		return 0, mapUniqueViolation(err, "catalog: insert product")
	}
	return id, nil
}

func (r *repo) Update(ctx context.Context, product Product) error {
	query := `UPDATE products SET
		code = $1, name = $2, brand_id = $3, price_vnd = $4, stock = $5, status = $6,
		description = $7, image_url = $8, search_keyword = $9, updated_by = $10, updated_at = $11
		WHERE id = $12`
	tag, err := r.pool.Exec(ctx, query, product.Code, product.Name, product.BrandID, product.PriceVnd,
		product.Stock, product.Status, product.Description, nullable(product.ImageURL),
		product.SearchKeyword, product.UpdatedBy, time.Now(), product.ID)
	if err != nil {
		return mapUniqueViolation(err, "catalog: update product")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: product %d", ErrNotFound, product.ID)
	}
	return nil
}

// SoftDelete marks the row deleted and refreshes the update timestamp.
// Re-deleting an already-deleted row re-stamps it and still reports true.
func (r *repo) SoftDelete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET status = $1, updated_at = NOW() WHERE id = $2`, StatusDeleted, id)
	if err != nil {
		return false, fmt.Errorf("catalog: delete product: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// mapUniqueViolation converts a Postgres unique-constraint error into
// ErrDuplicate. The partial unique indexes on lower(code)/lower(name)
// are the authoritative guard; the pre-flight check only gives callers
// a friendlier failure in the common case.
func mapUniqueViolation(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return fmt.Errorf("%s: %w", op, err)
}
