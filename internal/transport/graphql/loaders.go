package graphqltransport

import (
	"context"
	"time"

	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/customer"
	"github.com/corray333/backend-labs/shop/internal/service/models/order"
	"github.com/corray333/backend-labs/shop/internal/service/models/pagination"
	"github.com/corray333/backend-labs/shop/internal/service/models/product"
	"github.com/graph-gophers/dataloader/v7"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBatchWait      = 2 * time.Millisecond
	customerOrdersWorkers = 4
)

type customerOrdersKey struct {
	customerID string
	page       pagination.Page
}

// loaders batch the nested lookups of one request. They are built per request
// so cached entries never outlive it.
type loaders struct {
	products       *dataloader.Loader[string, product.Product]
	customers      *dataloader.Loader[string, customer.Customer]
	customerOrders *dataloader.Loader[customerOrdersKey, pagination.Result[order.Order]]
}

type loadersKey struct{}

func (r *resolver) newLoaders() *loaders {
	return &loaders{
		products: dataloader.NewBatchedLoader(
			r.batchProducts,
			dataloader.WithWait[string, product.Product](r.batchWait),
		),
		customers: dataloader.NewBatchedLoader(
			r.batchCustomers,
			dataloader.WithWait[string, customer.Customer](r.batchWait),
		),
		customerOrders: dataloader.NewBatchedLoader(
			r.batchCustomerOrders,
			dataloader.WithWait[customerOrdersKey, pagination.Result[order.Order]](r.batchWait),
		),
	}
}

func withLoaders(ctx context.Context, l *loaders) context.Context {
	return context.WithValue(ctx, loadersKey{}, l)
}

// loadersFrom returns the request loaders. A context without them gets a fresh
// set, which still works but batches nothing across fields.
func (r *resolver) loadersFrom(ctx context.Context) *loaders {
	if l, ok := ctx.Value(loadersKey{}).(*loaders); ok {
		return l
	}

	return r.newLoaders()
}

func (r *resolver) batchProducts(ctx context.Context, ids []string) []*dataloader.Result[product.Product] {
	found, err := r.products.GetProducts(ctx, ids)

	results := make([]*dataloader.Result[product.Product], len(ids))
	for i, id := range ids {
		switch p, ok := found[id]; {
		case err != nil:
			results[i] = &dataloader.Result[product.Product]{Error: err}
		case !ok:
			results[i] = &dataloader.Result[product.Product]{Error: errs.ErrProductNotFound}
		default:
			results[i] = &dataloader.Result[product.Product]{Data: p}
		}
	}

	return results
}

func (r *resolver) batchCustomers(ctx context.Context, ids []string) []*dataloader.Result[customer.Customer] {
	found, err := r.customers.GetCustomers(ctx, ids)

	results := make([]*dataloader.Result[customer.Customer], len(ids))
	for i, id := range ids {
		switch c, ok := found[id]; {
		case err != nil:
			results[i] = &dataloader.Result[customer.Customer]{Error: err}
		case !ok:
			results[i] = &dataloader.Result[customer.Customer]{Error: errs.ErrCustomerNotFound}
		default:
			results[i] = &dataloader.Result[customer.Customer]{Data: c}
		}
	}

	return results
}

// batchCustomerOrders pages each customer separately. The loader still
// collapses repeated customers and runs the pages concurrently.
func (r *resolver) batchCustomerOrders(
	ctx context.Context,
	keys []customerOrdersKey,
) []*dataloader.Result[pagination.Result[order.Order]] {
	results := make([]*dataloader.Result[pagination.Result[order.Order]], len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(customerOrdersWorkers)
	for i, key := range keys {
		g.Go(func() error {
			res, err := r.orders.CustomerOrders(gctx, key.customerID, order.Filter{}, key.page)
			results[i] = &dataloader.Result[pagination.Result[order.Order]]{Data: res, Error: err}

			return nil
		})
	}
	_ = g.Wait()

	return results
}

// thunk defers a load so sibling fields can join the same batch before it runs.
func thunk[V any](ctx context.Context, load dataloader.Thunk[V]) func() (any, error) {
	return func() (any, error) {
		v, err := load()
		if errs.KindOf(err) == errs.KindNotFound {
			return nil, nil
		}

		return result(ctx, v, err)
	}
}
