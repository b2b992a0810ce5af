// Package order provides the in-memory order repository backing the
// support tools.
//
// The repository is seeded from a fixed fixture set at process start and
// mutated only by cancellation. Store is safe for concurrent use.
package order

import (
	"errors"
	"sync"
	"time"
)

// Sentinel errors for repository operations.
var (
	// ErrNotFound indicates the order ID does not exist.
	ErrNotFound = errors.New("order not found")

	// ErrNotCancellable indicates the order is not in a cancellable state.
	ErrNotCancellable = errors.New("order not cancellable")
)

// Status is the fulfillment state of an order.
type Status string

// Order fulfillment states. Only Preparing orders can be cancelled.
const (
	StatusPreparing Status = "Preparing"
	StatusShipping  Status = "Shipping"
	StatusDelivered Status = "Delivered"
	StatusCancelled Status = "Cancelled"
)

// Order is a single order record.
type Order struct {
	ID          string
	Item        string
	Price       int
	Status      Status
	PurchasedAt time.Time
}

// Summary is the read model returned by Lookup, with the age of the order
// computed against the store's clock.
type Summary struct {
	ID                string
	Item              string
	Price             int
	Status            Status
	PurchasedAt       time.Time
	DaysSincePurchase int
}

// Store is an in-memory order repository.
// All access goes through the store mutex; Cancel's check-then-set is atomic
// so concurrent cancels on the same ID have exactly one winner.
type Store struct {
	mu     sync.RWMutex
	orders map[string]*Order
	now    func() time.Time
}

// NewStore creates a Store seeded with the given orders.
// now is the clock used for day arithmetic; nil uses time.Now.
func NewStore(seed []Order, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	orders := make(map[string]*Order, len(seed))
	for i := range seed {
		o := seed[i]
		orders[o.ID] = &o
	}
	return &Store{orders: orders, now: now}
}

// Fixtures returns the demo order set, anchored to the given start time:
// a delivered keyboard from 10 days ago, a mouse shipped 3 days ago, and a
// monitor still being prepared.
func Fixtures(start time.Time) []Order {
	return []Order{
		{
			ID:          "A101",
			Item:        "wireless keyboard",
			Price:       50000,
			Status:      StatusDelivered,
			PurchasedAt: start.AddDate(0, 0, -10),
		},
		{
			ID:          "B202",
			Item:        "gaming mouse",
			Price:       30000,
			Status:      StatusShipping,
			PurchasedAt: start.AddDate(0, 0, -3),
		},
		{
			ID:          "C303",
			Item:        "27-inch monitor",
			Price:       250000,
			Status:      StatusPreparing,
			PurchasedAt: start,
		},
	}
}

// Lookup returns a summary for the given order ID.
// Returns ErrNotFound for unknown IDs.
func (s *Store) Lookup(id string) (Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return Summary{}, ErrNotFound
	}
	return Summary{
		ID:                o.ID,
		Item:              o.Item,
		Price:             o.Price,
		Status:            o.Status,
		PurchasedAt:       o.PurchasedAt,
		DaysSincePurchase: daysBetween(o.PurchasedAt, s.now()),
	}, nil
}

// Cancel transitions an order from Preparing to Cancelled.
// Returns ErrNotFound for unknown IDs and ErrNotCancellable when the order
// has already left the Preparing state (including a prior cancel).
func (s *Store) Cancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return ErrNotFound
	}
	if o.Status != StatusPreparing {
		return ErrNotCancellable
	}
	o.Status = StatusCancelled
	return nil
}

// daysBetween returns the calendar-day difference between two instants,
// floored at zero so future-dated purchases don't produce negative ages.
func daysBetween(from, to time.Time) int {
	days := int(to.Sub(from).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
