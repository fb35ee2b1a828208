package store

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/joripage/fixsim/pkg/capture/model"
)

var (
	ErrDuplicateOrder = errors.New("duplicate correlation id")
	ErrOrderNotFound  = errors.New("correlation id not found")
)

// OrderStore maps correlation ID -> order. All mutations and the random
// cancel-candidate read share one lock.
type OrderStore struct {
	mu     sync.RWMutex
	orders map[string]*model.Order
	ids    []string // insertion order, used for uniform picks
}

func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders: make(map[string]*model.Order),
	}
}

// Put inserts an order. An existing key is never overwritten.
func (s *OrderStore) Put(order *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[order.CorrelationID]; ok {
		return ErrDuplicateOrder
	}
	cp := *order
	s.orders[order.CorrelationID] = &cp
	s.ids = append(s.ids, order.CorrelationID)
	return nil
}

// Get returns a copy of the stored order.
func (s *OrderStore) Get(correlationID string) (model.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[correlationID]
	if !ok {
		return model.Order{}, false
	}
	return *order, true
}

// SetVenueOrderID records the venue identity once. It reports whether the
// value was stored; later values never overwrite the first one.
func (s *OrderStore) SetVenueOrderID(correlationID, venueOrderID string) (bool, error) {
	if venueOrderID == "" {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[correlationID]
	if !ok {
		return false, ErrOrderNotFound
	}
	if order.HasVenueOrderID() {
		return false, nil
	}
	order.VenueOrderID = venueOrderID
	return true, nil
}

// RandomID picks one stored correlation ID uniformly.
func (s *OrderStore) RandomID(r *rand.Rand) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.ids) == 0 {
		return "", false
	}
	return s.ids[r.Intn(len(s.ids))], true
}

func (s *OrderStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.ids)
}
