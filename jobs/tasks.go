package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mercato-admin/mercato-admin/internal/catalog"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSearchReindex recomputes the denormalized search text on
	// product rows. Needed after a brand rename, which changes the
	// folded keyword of every product under the brand.
	TaskSearchReindex = "catalog:search_reindex"
)

// SearchReindexPayload scopes a reindex run. A zero ProductID means all
// non-deleted products.
type SearchReindexPayload struct {
	ProductID int64 `json:"productId"`
}

// NewSearchReindexTask constructs an Asynq task.
func NewSearchReindexTask(payload SearchReindexPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSearchReindex, data), nil
}

// NewSearchReindexHandler processes TaskSearchReindex tasks against the
// given pool.
func NewSearchReindexHandler(pool *pgxpool.Pool, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SearchReindexPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		updated, err := reindexSearchKeywords(ctx, pool, payload.ProductID)
		if err != nil {
			return err
		}
		logger.Info("search keywords reindexed", slog.Int("updated", updated), slog.Int64("product_id", payload.ProductID))
		return nil
	}
}

func reindexSearchKeywords(ctx context.Context, pool *pgxpool.Pool, productID int64) (int, error) {
	query := `SELECT p.id, p.code, p.name, b.name, p.description
		FROM products p JOIN brands b ON b.id = p.brand_id
		WHERE p.status >= 0`
	args := []any{}
	if productID > 0 {
		query += ` AND p.id = $1`
		args = append(args, productID)
	}

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	type target struct {
		id      int64
		keyword string
	}
	var targets []target
	for rows.Next() {
		var id int64
		var code, name, brand, description string
		if err := rows.Scan(&id, &code, &name, &brand, &description); err != nil {
			rows.Close()
			return 0, err
		}
		targets = append(targets, target{id: id, keyword: catalog.BuildSearchKeyword(code, name, brand, description)})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	updated := 0
	for _, t := range targets {
		tag, err := pool.Exec(ctx, `UPDATE products SET search_keyword = $1 WHERE id = $2 AND search_keyword IS DISTINCT FROM $1`, t.keyword, t.id)
		if err != nil {
			return updated, err
		}
		updated += int(tag.RowsAffected())
	}
	return updated, nil
}
