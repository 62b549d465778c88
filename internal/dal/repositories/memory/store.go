// Package memory is an in-process storage backend. It backs the service when
// storage.driver is "memory" and is what the service tests run against.
//
// All tables live in one Store guarded by a single mutex. A repository call
// outside a unit of work holds the mutex for that call only. A unit of work
// holds it from Begin until Commit or Rollback and journals an undo step for
// every write so Rollback can restore the previous state.
package memory

import (
	"sync"

	"github.com/corray333/backend-labs/shop/internal/service/models/customer"
	"github.com/corray333/backend-labs/shop/internal/service/models/order"
	"github.com/corray333/backend-labs/shop/internal/service/models/outbox"
	"github.com/corray333/backend-labs/shop/internal/service/models/product"
)

// Store holds every table of the in-memory backend.
type Store struct {
	mu        sync.Mutex
	customers map[string]customer.Customer
	products  map[string]product.Product
	orders    map[string]order.Order
	outbox    map[int64]outbox.Message
	outboxSeq int64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		customers: make(map[string]customer.Customer),
		products:  make(map[string]product.Product),
		orders:    make(map[string]order.Order),
		outbox:    make(map[int64]outbox.Message),
	}
}

type journal struct {
	undo []func()
}

// session binds a repository either to the store directly or to an open unit of work.
type session struct {
	store *Store
	tx    *journal
}

func (s session) lock() {
	if s.tx == nil {
		s.store.mu.Lock()
	}
}

func (s session) unlock() {
	if s.tx == nil {
		s.store.mu.Unlock()
	}
}

func (s session) record(undo func()) {
	if s.tx != nil {
		s.tx.undo = append(s.tx.undo, undo)
	}
}

func cloneCustomer(c customer.Customer) customer.Customer {
	if c.Address != nil {
		addr := *c.Address
		c.Address = &addr
	}

	return c
}

func paginate[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}

	return rows
}
