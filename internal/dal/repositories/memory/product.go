package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/order"
	"github.com/corray333/backend-labs/shop/internal/service/models/product"
)

// ProductRepository stores products in a Store.
type ProductRepository struct {
	sess session
}

func NewProductRepository(store *Store) *ProductRepository {
	return &ProductRepository{sess: session{store: store}}
}

func (r *ProductRepository) put(p product.Product) {
	id := p.ID
	prev, existed := r.sess.store.products[id]
	r.sess.store.products[id] = p
	r.sess.record(func() {
		if existed {
			r.sess.store.products[id] = prev
		} else {
			delete(r.sess.store.products, id)
		}
	})
}

func (r *ProductRepository) Create(_ context.Context, p product.Product) error {
	r.sess.lock()
	defer r.sess.unlock()

	if _, ok := r.sess.store.products[p.ID]; ok {
		return fmt.Errorf("product %s already exists", p.ID)
	}
	r.put(p)

	return nil
}

func (r *ProductRepository) Get(_ context.Context, id string) (product.Product, error) {
	r.sess.lock()
	defer r.sess.unlock()

	p, ok := r.sess.store.products[id]
	if !ok {
		return product.Product{}, errs.ErrProductNotFound
	}

	return p, nil
}

func (r *ProductRepository) GetMany(_ context.Context, ids []string) ([]product.Product, error) {
	r.sess.lock()
	defer r.sess.unlock()

	result := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.sess.store.products[id]; ok {
			result = append(result, p)
		}
	}

	return result, nil
}

func (r *ProductRepository) List(
	_ context.Context,
	filter product.Filter,
	limit, offset int,
) ([]product.Product, int, error) {
	r.sess.lock()
	defer r.sess.unlock()

	rows := make([]product.Product, 0)
	for _, p := range r.sess.store.products {
		if filter.Matches(p) {
			rows = append(rows, p)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}

		return rows[i].ID < rows[j].ID
	})

	return paginate(rows, limit, offset), len(rows), nil
}

func (r *ProductRepository) Update(_ context.Context, p product.Product) (product.Product, error) {
	r.sess.lock()
	defer r.sess.unlock()

	stored, ok := r.sess.store.products[p.ID]
	if !ok {
		return product.Product{}, errs.ErrProductNotFound
	}

	p.Inventory = stored.Inventory
	p.CreatedAt = stored.CreatedAt
	r.put(p)

	return p, nil
}

func (r *ProductRepository) AdjustInventory(
	_ context.Context,
	id string,
	delta int,
) (product.Product, error) {
	r.sess.lock()
	defer r.sess.unlock()

	p, ok := r.sess.store.products[id]
	if !ok {
		return product.Product{}, errs.ErrProductNotFound
	}
	if p.Inventory+delta < 0 {
		return product.Product{}, errs.ErrInsufficientInventory
	}

	p.Inventory += delta
	p.UpdatedAt = time.Now()
	r.put(p)

	return p, nil
}

func (r *ProductRepository) Delete(_ context.Context, id string) error {
	r.sess.lock()
	defer r.sess.unlock()

	prev, ok := r.sess.store.products[id]
	if !ok {
		return errs.ErrProductNotFound
	}
	for _, o := range r.sess.store.orders {
		if o.Status == order.StatusCancelled {
			continue
		}
		for _, it := range o.Items {
			if it.ProductID == id {
				return errs.ErrProductInUse
			}
		}
	}

	delete(r.sess.store.products, id)
	r.sess.record(func() { r.sess.store.products[id] = prev })

	return nil
}
