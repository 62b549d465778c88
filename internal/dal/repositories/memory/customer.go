package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/customer"
)

// CustomerRepository stores customers in a Store.
type CustomerRepository struct {
	sess session
}

func NewCustomerRepository(store *Store) *CustomerRepository {
	return &CustomerRepository{sess: session{store: store}}
}

func (r *CustomerRepository) emailTaken(email, exceptID string) bool {
	for id, c := range r.sess.store.customers {
		if id != exceptID && c.Email == email {
			return true
		}
	}

	return false
}

func (r *CustomerRepository) Create(_ context.Context, c customer.Customer) error {
	r.sess.lock()
	defer r.sess.unlock()

	if _, ok := r.sess.store.customers[c.ID]; ok {
		return fmt.Errorf("customer %s already exists", c.ID)
	}
	if r.emailTaken(c.Email, "") {
		return errs.ErrDuplicateEmail
	}

	r.sess.store.customers[c.ID] = cloneCustomer(c)
	r.sess.record(func() { delete(r.sess.store.customers, c.ID) })

	return nil
}

func (r *CustomerRepository) Get(_ context.Context, id string) (customer.Customer, error) {
	r.sess.lock()
	defer r.sess.unlock()

	c, ok := r.sess.store.customers[id]
	if !ok {
		return customer.Customer{}, errs.ErrCustomerNotFound
	}

	return cloneCustomer(c), nil
}

func (r *CustomerRepository) GetMany(_ context.Context, ids []string) ([]customer.Customer, error) {
	r.sess.lock()
	defer r.sess.unlock()

	result := make([]customer.Customer, 0, len(ids))
	for _, id := range ids {
		if c, ok := r.sess.store.customers[id]; ok {
			result = append(result, cloneCustomer(c))
		}
	}

	return result, nil
}

func (r *CustomerRepository) List(_ context.Context, limit, offset int) ([]customer.Customer, int, error) {
	r.sess.lock()
	defer r.sess.unlock()

	rows := make([]customer.Customer, 0, len(r.sess.store.customers))
	for _, c := range r.sess.store.customers {
		rows = append(rows, cloneCustomer(c))
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}

		return rows[i].ID < rows[j].ID
	})

	return paginate(rows, limit, offset), len(rows), nil
}

func (r *CustomerRepository) Update(_ context.Context, c customer.Customer) error {
	r.sess.lock()
	defer r.sess.unlock()

	prev, ok := r.sess.store.customers[c.ID]
	if !ok {
		return errs.ErrCustomerNotFound
	}
	if r.emailTaken(c.Email, c.ID) {
		return errs.ErrDuplicateEmail
	}

	r.sess.store.customers[c.ID] = cloneCustomer(c)
	r.sess.record(func() { r.sess.store.customers[c.ID] = prev })

	return nil
}

func (r *CustomerRepository) Delete(_ context.Context, id string) error {
	r.sess.lock()
	defer r.sess.unlock()

	prev, ok := r.sess.store.customers[id]
	if !ok {
		return errs.ErrCustomerNotFound
	}
	for _, o := range r.sess.store.orders {
		if o.CustomerID == id {
			return errs.ErrCustomerHasOrders
		}
	}

	delete(r.sess.store.customers, id)
	r.sess.record(func() { r.sess.store.customers[id] = prev })

	return nil
}
