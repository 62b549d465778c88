package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/address"
	"github.com/corray333/backend-labs/shop/internal/service/models/order"
)

// OrderRepository stores orders in a Store.
type OrderRepository struct {
	sess session
}

func NewOrderRepository(store *Store) *OrderRepository {
	return &OrderRepository{sess: session{store: store}}
}

func (r *OrderRepository) put(o order.Order) {
	id := o.ID
	prev, existed := r.sess.store.orders[id]
	r.sess.store.orders[id] = o.Clone()
	r.sess.record(func() {
		if existed {
			r.sess.store.orders[id] = prev
		} else {
			delete(r.sess.store.orders, id)
		}
	})
}

func (r *OrderRepository) Create(_ context.Context, o order.Order) error {
	r.sess.lock()
	defer r.sess.unlock()

	if _, ok := r.sess.store.orders[o.ID]; ok {
		return fmt.Errorf("order %s already exists", o.ID)
	}
	if _, ok := r.sess.store.customers[o.CustomerID]; !ok {
		return errs.ErrCustomerNotFound
	}
	r.put(o)

	return nil
}

func (r *OrderRepository) Get(_ context.Context, id string) (order.Order, error) {
	r.sess.lock()
	defer r.sess.unlock()

	o, ok := r.sess.store.orders[id]
	if !ok {
		return order.Order{}, errs.ErrOrderNotFound
	}

	return o.Clone(), nil
}

func (r *OrderRepository) List(
	_ context.Context,
	filter order.Filter,
	limit, offset int,
) ([]order.Order, int, error) {
	r.sess.lock()
	defer r.sess.unlock()

	rows := make([]order.Order, 0)
	for _, o := range r.sess.store.orders {
		if filter.Matches(o) {
			rows = append(rows, o.Clone())
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}

		return rows[i].ID < rows[j].ID
	})

	return paginate(rows, limit, offset), len(rows), nil
}

func (r *OrderRepository) UpdateStatus(
	_ context.Context,
	id string,
	from, to order.Status,
	at time.Time,
) (bool, error) {
	r.sess.lock()
	defer r.sess.unlock()

	o, ok := r.sess.store.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}

	o.Status = to
	o.UpdatedAt = at
	r.put(o)

	return true, nil
}

func (r *OrderRepository) UpdateShippingAddress(
	_ context.Context,
	id string,
	addr address.Address,
	at time.Time,
) (bool, error) {
	r.sess.lock()
	defer r.sess.unlock()

	o, ok := r.sess.store.orders[id]
	if !ok || o.Status.IsTerminal() {
		return false, nil
	}

	o.ShippingAddress = &addr
	o.UpdatedAt = at
	r.put(o)

	return true, nil
}

func (r *OrderRepository) PurchasedProductIDs(_ context.Context, customerID string) ([]string, error) {
	r.sess.lock()
	defer r.sess.unlock()

	seen := make(map[string]struct{})
	for _, o := range r.sess.store.orders {
		if o.CustomerID != customerID || o.Status == order.StatusCancelled {
			continue
		}
		for _, id := range o.ProductIDs() {
			seen[id] = struct{}{}
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids, nil
}
