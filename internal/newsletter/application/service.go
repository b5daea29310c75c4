package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meninadourada/storefront/internal/newsletter/domain"
)

type Repository interface {
	Insert(ctx context.Context, s domain.Subscription) error
	Get(ctx context.Context, id string) (domain.Subscription, error)
	FindByEmail(ctx context.Context, email string) (domain.Subscription, error)
	List(ctx context.Context) ([]domain.Subscription, error)
	Delete(ctx context.Context, id string) error
}

type Service struct {
	log   *slog.Logger
	repo  Repository
	newID func() string
	now   func() time.Time
}

func NewService(log *slog.Logger, repo Repository) *Service {
	return &Service{log: log, repo: repo, newID: uuid.NewString, now: time.Now}
}

// Subscribe registers email once. The unique index in the store settles
// concurrent duplicates that pass the lookup.
func (s *Service) Subscribe(ctx context.Context, email string) (domain.Subscription, error) {
	email, err := domain.NormalizeEmail(email)
	if err != nil {
		return domain.Subscription{}, err
	}

	_, err = s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		s.log.WarnContext(ctx, "email already subscribed", "email", email)
		return domain.Subscription{}, domain.ErrAlreadySubscribed
	case !errors.Is(err, domain.ErrSubscriptionNotFound):
		return domain.Subscription{}, err
	}

	sub := domain.Subscription{ID: s.newID(), Email: email, SubscribedAt: s.now().UTC()}
	if err := s.repo.Insert(ctx, sub); err != nil {
		return domain.Subscription{}, err
	}
	s.log.InfoContext(ctx, "newsletter subscription created", "id", sub.ID, "email", email)
	return sub, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Subscription, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]domain.Subscription, error) {
	return s.repo.List(ctx)
}

func (s *Service) Unsubscribe(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "newsletter subscription removed", "id", id)
	return nil
}
