// Package mock provides an in-memory order repository for testing.
package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/tournevent/ordertrack/pkg/orderstore"
)

// Method names recorded in Store.Calls.
const (
	CallExactName = "FindByExactName"
	CallRawName   = "FindByRawName"
	CallBulkScan  = "FindByBulkScan"
	CallUpdate    = "UpdateTags"
)

// Store is an in-memory orderstore.Repository.
//
// ExactName and RawName are keyed by the queried name. Scan is the page
// the bulk scan sees. Err, when set for a method name, is returned instead
// of a result.
type Store struct {
	ExactName map[string]*orderstore.Order
	RawName   map[string]*orderstore.Order
	Scan      []*orderstore.Order
	Err       map[string]error

	mu    sync.Mutex
	calls []string
}

// New returns an empty store.
func New() *Store {
	return &Store{
		ExactName: make(map[string]*orderstore.Order),
		RawName:   make(map[string]*orderstore.Order),
		Err:       make(map[string]error),
	}
}

// Calls returns the method names invoked so far, in order.
func (s *Store) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

func (s *Store) record(method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, method)
	return s.Err[method]
}

// FindByExactName returns the order registered under name in ExactName.
func (s *Store) FindByExactName(_ context.Context, name string) (*orderstore.Order, error) {
	if err := s.record(CallExactName); err != nil {
		return nil, err
	}
	return s.ExactName[name], nil
}

// FindByRawName returns the order registered under name in RawName.
func (s *Store) FindByRawName(_ context.Context, name string) (*orderstore.Order, error) {
	if err := s.record(CallRawName); err != nil {
		return nil, err
	}
	return s.RawName[name], nil
}

// FindByBulkScan returns the first order in Scan accepted by match.
func (s *Store) FindByBulkScan(_ context.Context, match orderstore.MatchFunc) (*orderstore.Order, error) {
	if err := s.record(CallBulkScan); err != nil {
		return nil, err
	}
	for _, o := range s.Scan {
		if match(o) {
			return o, nil
		}
	}
	return nil, nil
}

// UpdateTags returns a copy of the known order with tags replaced.
// Unknown IDs get a bare order carrying only the ID and tags.
func (s *Store) UpdateTags(_ context.Context, orderID string, tags []string) (*orderstore.Order, error) {
	if err := s.record(CallUpdate); err != nil {
		return nil, err
	}

	updated := orderstore.Order{ID: orderID}
	if known := s.lookup(orderID); known != nil {
		updated = *known
	}
	updated.Tags = slices.Clone(tags)
	return &updated, nil
}

func (s *Store) lookup(orderID string) *orderstore.Order {
	for _, o := range s.ExactName {
		if o.ID == orderID {
			return o
		}
	}
	for _, o := range s.RawName {
		if o.ID == orderID {
			return o
		}
	}
	for _, o := range s.Scan {
		if o.ID == orderID {
			return o
		}
	}
	return nil
}

var _ orderstore.Repository = (*Store)(nil)
