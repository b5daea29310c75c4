package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meninadourada/storefront/internal/newsletter/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS newsletter_subscriptions (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL,
	subscribed_at TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_newsletter_email ON newsletter_subscriptions (email);
`

const uniqueViolation = "23505"

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return err
}

func (r *Repository) Insert(ctx context.Context, s domain.Subscription) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO newsletter_subscriptions (id, email, subscribed_at) VALUES ($1,$2,$3)`,
		s.ID, s.Email, s.SubscribedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrAlreadySubscribed
	}
	return err
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Subscription, error) {
	return r.findOne(ctx, `SELECT id, email, subscribed_at FROM newsletter_subscriptions WHERE id=$1`, id)
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (domain.Subscription, error) {
	return r.findOne(ctx, `SELECT id, email, subscribed_at FROM newsletter_subscriptions WHERE email=$1`, email)
}

func (r *Repository) List(ctx context.Context) ([]domain.Subscription, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, email, subscribed_at FROM newsletter_subscriptions ORDER BY subscribed_at`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[domain.Subscription])
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM newsletter_subscriptions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrSubscriptionNotFound
	}
	return nil
}

func (r *Repository) findOne(ctx context.Context, query, arg string) (domain.Subscription, error) {
	var s domain.Subscription
	err := r.pool.QueryRow(ctx, query, arg).Scan(&s.ID, &s.Email, &s.SubscribedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Subscription{}, domain.ErrSubscriptionNotFound
	}
	return s, err
}
