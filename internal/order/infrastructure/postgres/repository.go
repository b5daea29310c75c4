package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meninadourada/storefront/internal/order/domain"
	"github.com/meninadourada/storefront/pkg/outbox"
)

const aggregateType = "order"

// Each order is one JSONB document. The lookup keys are copied into indexed
// columns and version guards every update.
const schema = `
CREATE TABLE IF NOT EXISTS orders (
	id                    TEXT PRIMARY KEY,
	user_id               TEXT NOT NULL,
	correlation_token     TEXT NOT NULL,
	gateway_preference_id TEXT NOT NULL,
	gateway_payment_id    TEXT,
	status                TEXT NOT NULL,
	document              JSONB NOT NULL,
	version               BIGINT NOT NULL DEFAULT 0,
	order_date            TIMESTAMPTZ NOT NULL,
	updated_at            TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_correlation_token ON orders (correlation_token);
CREATE INDEX IF NOT EXISTS idx_orders_preference_id ON orders (gateway_preference_id);
CREATE INDEX IF NOT EXISTS idx_orders_payment_id ON orders (gateway_payment_id);
CREATE INDEX IF NOT EXISTS idx_orders_user_date ON orders (user_id, order_date DESC);
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

func (r *Repository) Create(ctx context.Context, o domain.Order) error {
	doc, err := json.Marshal(o)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO orders
		(id, user_id, correlation_token, gateway_preference_id, gateway_payment_id, status, document, version, order_date, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		o.ID, o.UserID, o.CorrelationToken, o.GatewayPreferenceID, nullable(o.GatewayPaymentID),
		string(o.Status), doc, o.Version, o.OrderDate, o.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("order %s: duplicate key %s: %w", o.ID, pgErr.ConstraintName, err)
	}
	return err
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	return r.findOne(ctx, `SELECT document, version FROM orders WHERE id=$1`, id)
}

func (r *Repository) FindByCorrelationToken(ctx context.Context, token string) (domain.Order, error) {
	return r.findOne(ctx, `SELECT document, version FROM orders WHERE correlation_token=$1`, token)
}

// FindByPreferenceID returns the most recent order for the preference.
func (r *Repository) FindByPreferenceID(ctx context.Context, preferenceID string) (domain.Order, error) {
	return r.findOne(ctx, `SELECT document, version FROM orders WHERE gateway_preference_id=$1
		ORDER BY order_date DESC LIMIT 1`, preferenceID)
}

func (r *Repository) FindByPaymentID(ctx context.Context, paymentID string) (domain.Order, error) {
	return r.findOne(ctx, `SELECT document, version FROM orders WHERE gateway_payment_id=$1
		ORDER BY order_date DESC LIMIT 1`, paymentID)
}

func (r *Repository) List(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT document, version FROM orders
		WHERE $1 = '' OR user_id = $1
		ORDER BY order_date DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// UpdateWithOutbox stores o when the row is still at o.Version and queues
// events in the same transaction. The stored version becomes o.Version+1.
func (r *Repository) UpdateWithOutbox(ctx context.Context, o domain.Order, events []domain.Event, headers map[string]string, traceparent string) error {
	expected := o.Version
	o.Version = expected + 1
	doc, err := json.Marshal(o)
	if err != nil {
		return err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx, `UPDATE orders
		SET status=$3, gateway_payment_id=$4, document=$5, version=version+1, updated_at=$6
		WHERE id=$1 AND version=$2`,
		o.ID, expected, string(o.Status), nullable(o.GatewayPaymentID), doc, o.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id=$1)`, o.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrOrderNotFound
		}
		return fmt.Errorf("order %s at version %d: %w", o.ID, expected, domain.ErrVersionConflict)
	}

	for _, e := range events {
		if err := outbox.Insert(ctx, tx, outbox.Event{
			AggregateType: aggregateType,
			AggregateID:   o.ID,
			Type:          e.Type,
			Payload:       e.Payload,
			Headers:       headers,
			Traceparent:   traceparent,
		}); err != nil {
			return fmt.Errorf("queue %s for order %s: %w", e.Type, o.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	if len(events) > 0 {
		r.log.DebugContext(ctx, "order events queued", "order_id", o.ID, "count", len(events))
	}
	return nil
}

func (r *Repository) findOne(ctx context.Context, query string, arg string) (domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, err
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var doc []byte
	var version int64
	if err := row.Scan(&doc, &version); err != nil {
		return domain.Order{}, err
	}
	var o domain.Order
	if err := json.Unmarshal(doc, &o); err != nil {
		return domain.Order{}, fmt.Errorf("decode order document: %w", err)
	}
	o.Version = version
	return o, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
