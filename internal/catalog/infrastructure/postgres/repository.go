package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meninadourada/storefront/internal/catalog/domain"
)

// A product and its variations are one JSONB document; name and active are
// copied out for filtering.
const schema = `
CREATE TABLE IF NOT EXISTS products (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	active     BOOLEAN NOT NULL,
	document   JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_products_created ON products (created_at, id);
CREATE INDEX IF NOT EXISTS idx_products_name ON products (name);
`

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return err
}

func (r *Repository) Insert(ctx context.Context, products ...domain.Product) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	batch := &pgx.Batch{}
	for _, p := range products {
		doc, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode product %s: %w", p.ID, err)
		}
		batch.Queue(`INSERT INTO products (id, name, active, document, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			p.ID, p.Name, p.Active, doc, p.CreatedAt, p.UpdatedAt)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	r.log.DebugContext(ctx, "products inserted", "count", len(products))
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Product, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx, `SELECT document FROM products WHERE id=$1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if err != nil {
		return domain.Product{}, err
	}
	return decode(doc)
}

// List pages through the catalog in creation order.
func (r *Repository) List(ctx context.Context, offset, limit int) ([]domain.Product, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT document FROM products
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Product, error) {
		var doc []byte
		if err := row.Scan(&doc); err != nil {
			return domain.Product{}, err
		}
		return decode(doc)
	})
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *Repository) Update(ctx context.Context, p domain.Product) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode product %s: %w", p.ID, err)
	}
	ct, err := r.pool.Exec(ctx, `UPDATE products SET name=$2, active=$3, document=$4, updated_at=$5 WHERE id=$1`,
		p.ID, p.Name, p.Active, doc, p.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *Repository) DeleteAll(ctx context.Context) (int64, error) {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products`)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func decode(doc []byte) (domain.Product, error) {
	var p domain.Product
	if err := json.Unmarshal(doc, &p); err != nil {
		return domain.Product{}, fmt.Errorf("decode product: %w", err)
	}
	return p, nil
}
