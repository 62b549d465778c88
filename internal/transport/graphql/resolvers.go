package graphqltransport

import (
	"context"

	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/address"
	"github.com/corray333/backend-labs/shop/internal/service/models/customer"
	"github.com/corray333/backend-labs/shop/internal/service/models/order"
	"github.com/corray333/backend-labs/shop/internal/service/models/product"
	"github.com/graphql-go/graphql"
)

// Single-entity queries resolve unknown ids to null, mutations report them as errors.
func nullIfNotFound(ctx context.Context, v any, err error) (any, error) {
	if errs.KindOf(err) == errs.KindNotFound {
		return nil, nil
	}

	return result(ctx, v, err)
}

func (r *resolver) getCustomer(p graphql.ResolveParams) (any, error) {
	c, err := r.customers.GetCustomer(p.Context, args(p.Args).str("id"))

	return nullIfNotFound(p.Context, c, err)
}

func (r *resolver) listCustomers(p graphql.ResolveParams) (any, error) {
	res, err := r.customers.ListCustomers(p.Context, args(p.Args).page())

	return result(p.Context, res, err)
}

func (r *resolver) getProduct(p graphql.ResolveParams) (any, error) {
	prod, err := r.products.GetProduct(p.Context, args(p.Args).str("id"))

	return nullIfNotFound(p.Context, prod, err)
}

func (r *resolver) listProducts(p graphql.ResolveParams) (any, error) {
	a := args(p.Args)
	filter, err := a.productFilter()
	if err != nil {
		return nil, toError(p.Context, err)
	}

	res, err := r.products.ListProducts(p.Context, filter, a.page())

	return result(p.Context, res, err)
}

func (r *resolver) getOrder(p graphql.ResolveParams) (any, error) {
	o, err := r.orders.GetOrder(p.Context, args(p.Args).str("id"))

	return nullIfNotFound(p.Context, o, err)
}

func (r *resolver) listOrders(p graphql.ResolveParams) (any, error) {
	a := args(p.Args)
	filter, err := a.orderFilter()
	if err != nil {
		return nil, toError(p.Context, err)
	}

	res, err := r.orders.ListOrders(p.Context, filter, a.page())

	return result(p.Context, res, err)
}

func (r *resolver) customerOrders(p graphql.ResolveParams) (any, error) {
	a := args(p.Args)
	res, err := r.orders.CustomerOrders(p.Context, a.str("customerId"), order.Filter{}, a.page())

	return result(p.Context, res, err)
}

func (r *resolver) orderTracking(p graphql.ResolveParams) (any, error) {
	return r.trackingFor(p.Context, args(p.Args).str("orderId"))
}

func (r *resolver) trackingFor(ctx context.Context, orderID string) (any, error) {
	t, err := r.tracking.GetTracking(ctx, orderID)
	if err != nil {
		return nil, toError(ctx, err)
	}
	if t == nil {
		return nil, nil
	}

	return t, nil
}

func (r *resolver) customerRecommendations(p graphql.ResolveParams) (any, error) {
	a := args(p.Args)
	recs, err := r.recommendations.GetCustomerRecommendations(p.Context, a.str("customerId"), a.num("limit"))

	return result(p.Context, recs, err)
}

func (r *resolver) createCustomer(p graphql.ResolveParams) (any, error) {
	a := args(p.Args)
	c, err := r.customers.CreateCustomer(p.Context, customer.CreateCustomerInput{
		Name:    a.str("name"),
		Email:   a.str("email"),
		Phone:   a.str("phone"),
		Address: a.address("address"),
	})

	return result(p.Context, c, err)
}

func (r *resolver) updateCustomer(p graphql.ResolveParams) (any, error) {
	a := args(p.Args)
	c, err := r.customers.UpdateCustomer(p.Context, a.str("id"), customer.UpdateCustomerInput{
		Name:    a.optStr("name"),
		Email:   a.optStr("email"),
		Phone:   a.optStr("phone"),
		Address: a.address("address"),
	})

	return result(p.Context, c, err)
}

func (r *resolver) deleteCustomer(p graphql.ResolveParams) (any, error) {
	if err := r.customers.DeleteCustomer(p.Context, args(p.Args).str("id")); err != nil {
		return nil, toError(p.Context, err)
	}

	return true, nil
}

func (r *resolver) createProduct(p graphql.ResolveParams) (any, error) {
	a := args(p.Args)
	cents, err := a.cents("price")
	if err != nil {
		return nil, toError(p.Context, err)
	}
	if cents == nil {
		return nil, toError(p.Context, errs.Validation("price is required"))
	}

	prod, err := r.products.CreateProduct(p.Context, product.CreateProductInput{
		Name:        a.str("name"),
		Description: a.str("description"),
		PriceCents:  *cents,
		Currency:    a.str("currency"),
		Category:    a.str("category"),
		Inventory:   a.num("inventory"),
		ImageURL:    a.str("imageUrl"),
	})

	return result(p.Context, prod, err)
}

func (r *resolver) updateProduct(p graphql.ResolveParams) (any, error) {
	a := args(p.Args)
	if a.optNum("inventory") != nil {
		return nil, toError(p.Context, errs.Validation(
			"inventory cannot be set directly, use adjustProductInventory",
		))
	}
	cents, err := a.cents("price")
	if err != nil {
		return nil, toError(p.Context, err)
	}

	prod, err := r.products.UpdateProduct(p.Context, a.str("id"), product.UpdateProductInput{
		Name:        a.optStr("name"),
		Description: a.optStr("description"),
		PriceCents:  cents,
		Category:    a.optStr("category"),
		ImageURL:    a.optStr("imageUrl"),
	})

	return result(p.Context, prod, err)
}

func (r *resolver) deleteProduct(p graphql.ResolveParams) (any, error) {
	if err := r.products.DeleteProduct(p.Context, args(p.Args).str("id")); err != nil {
		return nil, toError(p.Context, err)
	}

	return true, nil
}

func (r *resolver) adjustProductInventory(p graphql.ResolveParams) (any, error) {
	a := args(p.Args)
	prod, err := r.products.AdjustInventory(p.Context, a.str("id"), a.num("delta"))

	return result(p.Context, prod, err)
}

func (r *resolver) createOrder(p graphql.ResolveParams) (any, error) {
	a := args(p.Args)
	o, err := r.orders.CreateOrder(p.Context, order.CreateOrderInput{
		CustomerID:      a.str("customerId"),
		Items:           a.items(),
		ShippingAddress: a.address("shippingAddress"),
	})

	return result(p.Context, o, err)
}

func (r *resolver) updateOrderStatus(p graphql.ResolveParams) (any, error) {
	a := args(p.Args)
	o, err := r.orders.UpdateStatus(p.Context, a.str("id"), a.str("status"))

	return result(p.Context, o, err)
}

func (r *resolver) updateOrderShipping(p graphql.ResolveParams) (any, error) {
	a := args(p.Args)
	addr := a.address("shippingAddress")
	if addr == nil {
		addr = &address.Address{}
	}

	o, err := r.orders.UpdateShippingAddress(p.Context, a.str("id"), *addr)

	return result(p.Context, o, err)
}

func (r *resolver) cancelOrder(p graphql.ResolveParams) (any, error) {
	o, err := r.orders.CancelOrder(p.Context, args(p.Args).str("id"))

	return result(p.Context, o, err)
}
