package graphqltransport

import (
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/shop/internal/service/models/customer"
	"github.com/corray333/backend-labs/shop/internal/service/models/money"
	"github.com/corray333/backend-labs/shop/internal/service/models/order"
	"github.com/corray333/backend-labs/shop/internal/service/models/pagination"
	"github.com/corray333/backend-labs/shop/internal/service/models/product"
	"github.com/corray333/backend-labs/shop/internal/service/models/recommendation"
	"github.com/corray333/backend-labs/shop/internal/service/models/tracking"
	"github.com/graphql-go/graphql"
)

type types struct {
	address        *graphql.Object
	customer       *graphql.Object
	product        *graphql.Object
	orderItem      *graphql.Object
	order          *graphql.Object
	shippingEvent  *graphql.Object
	shippingInfo   *graphql.Object
	recommendation *graphql.Object
	customerPage   *graphql.Object
	productPage    *graphql.Object
	orderPage      *graphql.Object

	addressInput    *graphql.InputObject
	orderItemInput  *graphql.InputObject
	productFilter   *graphql.InputObject
	orderFilter     *graphql.InputObject
	paginationInput *graphql.InputObject
}

// field resolves from a source of type T. Any other source resolves to null.
func field[T any](typ graphql.Output, fn func(T) any) *graphql.Field {
	return &graphql.Field{
		Type: typ,
		Resolve: func(p graphql.ResolveParams) (any, error) {
			src, ok := p.Source.(T)
			if !ok {
				return nil, nil
			}

			return fn(src), nil
		},
	}
}

func nonNull(t graphql.Type) graphql.Output {
	return graphql.NewNonNull(t)
}

func optional(s string) any {
	if s == "" {
		return nil
	}

	return s
}

func timestamp(t time.Time) any {
	if t.IsZero() {
		return nil
	}

	return t.UTC().Format(time.RFC3339Nano)
}

func pageObject[T any](name, itemsField string, item *graphql.Object) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: name,
		Fields: graphql.Fields{
			itemsField: field(nonNull(graphql.NewList(nonNull(item))), func(r pagination.Result[T]) any {
				return r.Items
			}),
			"totalCount": field(nonNull(graphql.Int), func(r pagination.Result[T]) any { return r.Total }),
			"hasMore":    field(nonNull(graphql.Boolean), func(r pagination.Result[T]) any { return r.HasMore }),
			"page":       field(nonNull(graphql.Int), func(r pagination.Result[T]) any { return r.Page }),
			"limit":      field(nonNull(graphql.Int), func(r pagination.Result[T]) any { return r.Limit }),
		},
	})
}

func addressFields() graphql.InputObjectConfigFieldMap {
	return graphql.InputObjectConfigFieldMap{
		"street":  &graphql.InputObjectFieldConfig{Type: graphql.String},
		"city":    &graphql.InputObjectFieldConfig{Type: graphql.String},
		"state":   &graphql.InputObjectFieldConfig{Type: graphql.String},
		"zipCode": &graphql.InputObjectFieldConfig{Type: graphql.String},
		"country": &graphql.InputObjectFieldConfig{Type: graphql.String},
	}
}

func (r *resolver) newTypes() *types {
	t := &types{}

	t.address = graphql.NewObject(graphql.ObjectConfig{
		Name: "Address",
		Fields: graphql.Fields{
			"street":  &graphql.Field{Type: graphql.String},
			"city":    &graphql.Field{Type: graphql.String},
			"state":   &graphql.Field{Type: graphql.String},
			"zipCode": &graphql.Field{Type: graphql.String},
			"country": &graphql.Field{Type: graphql.String},
		},
	})

	t.product = graphql.NewObject(graphql.ObjectConfig{
		Name: "Product",
		Fields: graphql.Fields{
			"id":          field(nonNull(graphql.ID), func(p product.Product) any { return p.ID }),
			"name":        field(nonNull(graphql.String), func(p product.Product) any { return p.Name }),
			"description": field(nonNull(graphql.String), func(p product.Product) any { return p.Description }),
			"price": field(nonNull(graphql.Float), func(p product.Product) any {
				return money.ToFloat(p.PriceCents)
			}),
			"currency":  field(nonNull(graphql.String), func(p product.Product) any { return p.Currency.String() }),
			"category":  field(nonNull(graphql.String), func(p product.Product) any { return p.Category }),
			"inventory": field(nonNull(graphql.Int), func(p product.Product) any { return p.Inventory }),
			"imageUrl":  field(graphql.String, func(p product.Product) any { return optional(p.ImageURL) }),
			"createdAt": field(graphql.String, func(p product.Product) any { return timestamp(p.CreatedAt) }),
			"updatedAt": field(graphql.String, func(p product.Product) any { return timestamp(p.UpdatedAt) }),
		},
	})

	t.shippingEvent = graphql.NewObject(graphql.ObjectConfig{
		Name: "ShippingEvent",
		Fields: graphql.Fields{
			"date":        field(graphql.String, func(e tracking.Event) any { return timestamp(e.Date) }),
			"status":      field(graphql.String, func(e tracking.Event) any { return e.Status }),
			"location":    field(graphql.String, func(e tracking.Event) any { return e.Location }),
			"description": field(graphql.String, func(e tracking.Event) any { return optional(e.Description) }),
		},
	})

	t.shippingInfo = graphql.NewObject(graphql.ObjectConfig{
		Name: "ShippingInfo",
		Fields: graphql.Fields{
			"orderId":     field(nonNull(graphql.ID), func(s *tracking.Tracking) any { return s.OrderID }),
			"orderStatus": field(graphql.String, func(s *tracking.Tracking) any { return s.OrderStatus.String() }),
			"trackingId":  field(graphql.String, func(s *tracking.Tracking) any { return s.Info.TrackingNumber }),
			"carrier":     field(graphql.String, func(s *tracking.Tracking) any { return s.Info.Carrier }),
			"status":      field(graphql.String, func(s *tracking.Tracking) any { return s.Info.Status }),
			"estimatedDelivery": field(graphql.String, func(s *tracking.Tracking) any {
				return timestamp(s.Info.EstimatedDelivery)
			}),
			"history": field(graphql.NewList(t.shippingEvent), func(s *tracking.Tracking) any {
				return s.Info.History
			}),
			"lastUpdated": field(graphql.String, func(s *tracking.Tracking) any { return timestamp(s.Info.LastUpdated) }),
		},
	})

	t.recommendation = graphql.NewObject(graphql.ObjectConfig{
		Name: "Recommendation",
		Fields: graphql.Fields{
			"product": field(nonNull(t.product), func(rec recommendation.Recommendation) any { return rec.Product }),
			"score":   field(graphql.Float, func(rec recommendation.Recommendation) any { return rec.Score }),
			"reason":  field(graphql.String, func(rec recommendation.Recommendation) any { return rec.Reason }),
		},
	})

	t.orderItem = graphql.NewObject(graphql.ObjectConfig{
		Name: "OrderItem",
		Fields: graphql.Fields{
			"productId": field(nonNull(graphql.ID), func(it order.Item) any { return it.ProductID }),
			"quantity":  field(nonNull(graphql.Int), func(it order.Item) any { return it.Quantity }),
			"price":     field(nonNull(graphql.Float), func(it order.Item) any { return money.ToFloat(it.PriceCents) }),
			"product": &graphql.Field{
				Type:    t.product,
				Resolve: r.lineItemProduct,
			},
		},
	})

	// Customer and Order reference each other.
	t.order = graphql.NewObject(graphql.ObjectConfig{
		Name: "Order",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id":         field(nonNull(graphql.ID), func(o order.Order) any { return o.ID }),
				"customerId": field(nonNull(graphql.ID), func(o order.Order) any { return o.CustomerID }),
				"customer": &graphql.Field{
					Type:    t.customer,
					Resolve: r.orderCustomer,
				},
				"orderDate": field(nonNull(graphql.String), func(o order.Order) any { return timestamp(o.CreatedAt) }),
				"status":    field(nonNull(graphql.String), func(o order.Order) any { return o.Status.String() }),
				"items": field(nonNull(graphql.NewList(nonNull(t.orderItem))), func(o order.Order) any {
					return o.Items
				}),
				"shippingAddress": field(t.address, func(o order.Order) any {
					if o.ShippingAddress == nil {
						return nil
					}

					return *o.ShippingAddress
				}),
				"totalAmount":    field(nonNull(graphql.Float), func(o order.Order) any { return money.ToFloat(o.TotalCents) }),
				"currency":       field(nonNull(graphql.String), func(o order.Order) any { return o.Currency.String() }),
				"trackingNumber": field(graphql.String, func(o order.Order) any { return optional(o.TrackingNumber) }),
				"tracking": &graphql.Field{
					Type:    t.shippingInfo,
					Resolve: r.orderTrackingField,
				},
				"createdAt": field(graphql.String, func(o order.Order) any { return timestamp(o.CreatedAt) }),
				"updatedAt": field(graphql.String, func(o order.Order) any { return timestamp(o.UpdatedAt) }),
			}
		}),
	})

	t.orderPage = pageObject[order.Order]("PaginatedOrders", "orders", t.order)

	t.customer = graphql.NewObject(graphql.ObjectConfig{
		Name: "Customer",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id":    field(nonNull(graphql.ID), func(c customer.Customer) any { return c.ID }),
				"name":  field(nonNull(graphql.String), func(c customer.Customer) any { return c.Name }),
				"email": field(nonNull(graphql.String), func(c customer.Customer) any { return c.Email }),
				"phone": field(graphql.String, func(c customer.Customer) any { return optional(c.Phone) }),
				"address": field(t.address, func(c customer.Customer) any {
					if c.Address == nil {
						return nil
					}

					return *c.Address
				}),
				"orders": &graphql.Field{
					Type: t.orderPage,
					Args: graphql.FieldConfigArgument{
						"pagination": &graphql.ArgumentConfig{Type: t.paginationInput},
					},
					Resolve: r.customerOrdersField,
				},
				"recommendations": &graphql.Field{
					Type: graphql.NewList(t.recommendation),
					Args: graphql.FieldConfigArgument{
						"limit": &graphql.ArgumentConfig{Type: graphql.Int},
					},
					Resolve: r.customerRecommendationsField,
				},
				"createdAt": field(graphql.String, func(c customer.Customer) any { return timestamp(c.CreatedAt) }),
				"updatedAt": field(graphql.String, func(c customer.Customer) any { return timestamp(c.UpdatedAt) }),
			}
		}),
	})

	t.customerPage = pageObject[customer.Customer]("PaginatedCustomers", "customers", t.customer)
	t.productPage = pageObject[product.Product]("PaginatedProducts", "products", t.product)

	t.addressInput = graphql.NewInputObject(graphql.InputObjectConfig{
		Name:   "AddressInput",
		Fields: addressFields(),
	})
	t.orderItemInput = graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "OrderItemInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"productId": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
			"quantity":  &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Int)},
		},
	})
	t.productFilter = graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "ProductFilterInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"category": &graphql.InputObjectFieldConfig{Type: graphql.String},
			"minPrice": &graphql.InputObjectFieldConfig{Type: graphql.Float},
			"maxPrice": &graphql.InputObjectFieldConfig{Type: graphql.Float},
			"search":   &graphql.InputObjectFieldConfig{Type: graphql.String},
		},
	})
	t.orderFilter = graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "OrderFilterInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"status":    &graphql.InputObjectFieldConfig{Type: graphql.String},
			"startDate": &graphql.InputObjectFieldConfig{Type: graphql.String},
			"endDate":   &graphql.InputObjectFieldConfig{Type: graphql.String},
		},
	})
	t.paginationInput = graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "PaginationInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"page":  &graphql.InputObjectFieldConfig{Type: graphql.Int},
			"limit": &graphql.InputObjectFieldConfig{Type: graphql.Int},
		},
	})

	return t
}

func (r *resolver) lineItemProduct(p graphql.ResolveParams) (any, error) {
	it, ok := p.Source.(order.Item)
	if !ok {
		return nil, nil
	}

	return thunk(p.Context, r.loadersFrom(p.Context).products.Load(p.Context, it.ProductID)), nil
}

func (r *resolver) orderCustomer(p graphql.ResolveParams) (any, error) {
	o, ok := p.Source.(order.Order)
	if !ok {
		return nil, nil
	}

	return thunk(p.Context, r.loadersFrom(p.Context).customers.Load(p.Context, o.CustomerID)), nil
}

func (r *resolver) orderTrackingField(p graphql.ResolveParams) (any, error) {
	o, ok := p.Source.(order.Order)
	if !ok {
		return nil, nil
	}

	return r.trackingFor(p.Context, o.ID)
}

func (r *resolver) customerOrdersField(p graphql.ResolveParams) (any, error) {
	c, ok := p.Source.(customer.Customer)
	if !ok {
		return nil, nil
	}

	key := customerOrdersKey{customerID: c.ID, page: args(p.Args).page().Normalize()}

	return thunk(p.Context, r.loadersFrom(p.Context).customerOrders.Load(p.Context, key)), nil
}

// customerRecommendationsField degrades to an empty list so a provider outage
// does not fail the enclosing customer query.
func (r *resolver) customerRecommendationsField(p graphql.ResolveParams) (any, error) {
	c, ok := p.Source.(customer.Customer)
	if !ok {
		return nil, nil
	}

	recs, err := r.recommendations.GetCustomerRecommendations(p.Context, c.ID, args(p.Args).num("limit"))
	if err != nil {
		slog.WarnContext(p.Context, "Recommendations unavailable", "customer_id", c.ID, "error", err)

		return []recommendation.Recommendation{}, nil
	}

	return recs, nil
}
