package application

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/meninadourada/storefront/internal/order/domain"
	paymentdomain "github.com/meninadourada/storefront/internal/payment/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type storedEvent struct {
	OrderID string
	Event   domain.Event
}

type fakeRepo struct {
	mu     sync.Mutex
	orders map[string]domain.Order
	events []storedEvent
	writes int

	// beforeUpdate runs once before the next UpdateWithOutbox, outside the lock.
	beforeUpdate func()
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{orders: map[string]domain.Order{}}
}

func (r *fakeRepo) Create(_ context.Context, o domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = o
	return nil
}

func (r *fakeRepo) Get(_ context.Context, id string) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

func (r *fakeRepo) find(match func(domain.Order) bool) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if match(o) {
			return o, nil
		}
	}
	return domain.Order{}, domain.ErrOrderNotFound
}

func (r *fakeRepo) FindByCorrelationToken(_ context.Context, token string) (domain.Order, error) {
	return r.find(func(o domain.Order) bool { return o.CorrelationToken == token })
}

func (r *fakeRepo) FindByPreferenceID(_ context.Context, id string) (domain.Order, error) {
	return r.find(func(o domain.Order) bool { return o.GatewayPreferenceID == id })
}

func (r *fakeRepo) List(_ context.Context, userID string) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Order
	for _, o := range r.orders {
		if userID == "" || o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderDate.After(out[j].OrderDate) })
	return out, nil
}

func (r *fakeRepo) UpdateWithOutbox(_ context.Context, o domain.Order, events []domain.Event, _ map[string]string, _ string) error {
	if hook := r.beforeUpdate; hook != nil {
		r.beforeUpdate = nil
		hook()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.orders[o.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if cur.Version != o.Version {
		return domain.ErrVersionConflict
	}
	o.Version++
	r.orders[o.ID] = o
	r.writes++
	for _, e := range events {
		r.events = append(r.events, storedEvent{OrderID: o.ID, Event: e})
	}
	return nil
}

func (r *fakeRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

type fakeGateway struct {
	mu       sync.Mutex
	pref     paymentdomain.Preference
	prefErr  error
	requests []paymentdomain.PreferenceRequest
	details  map[string]paymentdomain.PaymentDetails
	fetchErr error
	fetches  int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		pref:    paymentdomain.Preference{ID: "pref-1", RedirectURL: "https://mp.example/checkout/pref-1"},
		details: map[string]paymentdomain.PaymentDetails{},
	}
}

func (g *fakeGateway) CreatePreference(_ context.Context, req paymentdomain.PreferenceRequest) (paymentdomain.Preference, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.prefErr != nil {
		return paymentdomain.Preference{}, g.prefErr
	}
	return g.pref, nil
}

func (g *fakeGateway) FetchPaymentDetails(_ context.Context, id, topic string) (paymentdomain.PaymentDetails, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetches++
	if g.fetchErr != nil {
		return paymentdomain.PaymentDetails{}, g.fetchErr
	}
	d, ok := g.details[topic+"/"+id]
	if !ok {
		return paymentdomain.PaymentDetails{}, &paymentdomain.GatewayError{Op: "fetch " + topic, StatusCode: 404, Body: "not found"}
	}
	return d, nil
}

func (g *fakeGateway) set(topic, id string, d paymentdomain.PaymentDetails) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.details[topic+"/"+id] = d
}
