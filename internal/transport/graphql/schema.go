// Package graphqltransport serves the GraphQL API on top of the same services
// as the REST handlers.
package graphqltransport

import (
	"context"
	"time"

	"github.com/corray333/backend-labs/shop/internal/service/models/address"
	"github.com/corray333/backend-labs/shop/internal/service/models/customer"
	"github.com/corray333/backend-labs/shop/internal/service/models/order"
	"github.com/corray333/backend-labs/shop/internal/service/models/pagination"
	"github.com/corray333/backend-labs/shop/internal/service/models/product"
	"github.com/corray333/backend-labs/shop/internal/service/models/recommendation"
	"github.com/corray333/backend-labs/shop/internal/service/models/tracking"
	"github.com/graphql-go/graphql"
)

type customerService interface {
	CreateCustomer(ctx context.Context, in customer.CreateCustomerInput) (customer.Customer, error)
	GetCustomer(ctx context.Context, id string) (customer.Customer, error)
	GetCustomers(ctx context.Context, ids []string) (map[string]customer.Customer, error)
	ListCustomers(ctx context.Context, page pagination.Page) (pagination.Result[customer.Customer], error)
	UpdateCustomer(ctx context.Context, id string, in customer.UpdateCustomerInput) (customer.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error
}

type productService interface {
	CreateProduct(ctx context.Context, in product.CreateProductInput) (product.Product, error)
	GetProduct(ctx context.Context, id string) (product.Product, error)
	GetProducts(ctx context.Context, ids []string) (map[string]product.Product, error)
	ListProducts(
		ctx context.Context,
		filter product.Filter,
		page pagination.Page,
	) (pagination.Result[product.Product], error)
	UpdateProduct(ctx context.Context, id string, in product.UpdateProductInput) (product.Product, error)
	AdjustInventory(ctx context.Context, id string, delta int) (product.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

type orderService interface {
	CreateOrder(ctx context.Context, in order.CreateOrderInput) (order.Order, error)
	GetOrder(ctx context.Context, id string) (order.Order, error)
	ListOrders(ctx context.Context, filter order.Filter, page pagination.Page) (pagination.Result[order.Order], error)
	CustomerOrders(
		ctx context.Context,
		customerID string,
		filter order.Filter,
		page pagination.Page,
	) (pagination.Result[order.Order], error)
	UpdateStatus(ctx context.Context, id, status string) (order.Order, error)
	UpdateShippingAddress(ctx context.Context, id string, addr address.Address) (order.Order, error)
	CancelOrder(ctx context.Context, id string) (order.Order, error)
}

type trackingService interface {
	GetTracking(ctx context.Context, orderID string) (*tracking.Tracking, error)
}

type recommendationService interface {
	GetCustomerRecommendations(
		ctx context.Context,
		customerID string,
		limit int,
	) ([]recommendation.Recommendation, error)
}

type resolver struct {
	customers       customerService
	products        productService
	orders          orderService
	tracking        trackingService
	recommendations recommendationService
	batchWait       time.Duration
}

type option func(*resolver)

//goland:noinspection GoExportedFuncWithUnexportedType
func WithCustomerService(s customerService) option {
	return func(r *resolver) {
		r.customers = s
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithProductService(s productService) option {
	return func(r *resolver) {
		r.products = s
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderService(s orderService) option {
	return func(r *resolver) {
		r.orders = s
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithTrackingService(s trackingService) option {
	return func(r *resolver) {
		r.tracking = s
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithRecommendationService(s recommendationService) option {
	return func(r *resolver) {
		r.recommendations = s
	}
}

// WithBatchWait sets how long the nested-field loaders collect keys before
// querying.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithBatchWait(d time.Duration) option {
	return func(r *resolver) {
		if d > 0 {
			r.batchWait = d
		}
	}
}

// Schema is the executable GraphQL schema.
type Schema struct {
	schema   graphql.Schema
	resolver *resolver
}

// Execute runs one operation with a fresh set of request loaders.
func (s *Schema) Execute(
	ctx context.Context,
	query, operationName string,
	variables map[string]any,
) *graphql.Result {
	return graphql.Do(graphql.Params{
		Schema:         s.schema,
		RequestString:  query,
		VariableValues: variables,
		OperationName:  operationName,
		Context:        withLoaders(ctx, s.resolver.newLoaders()),
	})
}

// MustNewSchema builds the schema. Every service is required.
func MustNewSchema(opts ...option) *Schema {
	r := &resolver{batchWait: defaultBatchWait}
	for _, opt := range opts {
		opt(r)
	}

	switch {
	case r.customers == nil:
		panic("graphql: customer service is required")
	case r.products == nil:
		panic("graphql: product service is required")
	case r.orders == nil:
		panic("graphql: order service is required")
	case r.tracking == nil:
		panic("graphql: tracking service is required")
	case r.recommendations == nil:
		panic("graphql: recommendation service is required")
	}

	t := r.newTypes()
	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query:    r.query(t),
		Mutation: r.mutation(t),
	})
	if err != nil {
		panic("graphql: failed to build schema: " + err.Error())
	}

	return &Schema{schema: schema, resolver: r}
}

func (r *resolver) query(t *types) *graphql.Object {
	id := graphql.FieldConfigArgument{"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)}}
	page := &graphql.ArgumentConfig{Type: t.paginationInput}

	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"customer": &graphql.Field{
				Type:    t.customer,
				Args:    id,
				Resolve: r.getCustomer,
			},
			"customers": &graphql.Field{
				Type:    t.customerPage,
				Args:    graphql.FieldConfigArgument{"pagination": page},
				Resolve: r.listCustomers,
			},
			"product": &graphql.Field{
				Type:    t.product,
				Args:    id,
				Resolve: r.getProduct,
			},
			"products": &graphql.Field{
				Type: t.productPage,
				Args: graphql.FieldConfigArgument{
					"filter":     &graphql.ArgumentConfig{Type: t.productFilter},
					"pagination": page,
				},
				Resolve: r.listProducts,
			},
			"order": &graphql.Field{
				Type:    t.order,
				Args:    id,
				Resolve: r.getOrder,
			},
			"orders": &graphql.Field{
				Type: t.orderPage,
				Args: graphql.FieldConfigArgument{
					"filter":     &graphql.ArgumentConfig{Type: t.orderFilter},
					"pagination": page,
				},
				Resolve: r.listOrders,
			},
			"customerOrders": &graphql.Field{
				Type: t.orderPage,
				Args: graphql.FieldConfigArgument{
					"customerId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"pagination": page,
				},
				Resolve: r.customerOrders,
			},
			"orderTracking": &graphql.Field{
				Type: t.shippingInfo,
				Args: graphql.FieldConfigArgument{
					"orderId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: r.orderTracking,
			},
			"customerRecommendations": &graphql.Field{
				Type: graphql.NewList(t.recommendation),
				Args: graphql.FieldConfigArgument{
					"customerId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"limit":      &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: r.customerRecommendations,
			},
		},
	})
}

func (r *resolver) mutation(t *types) *graphql.Object {
	nonNullID := &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)}
	nonNullString := &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)}
	optString := &graphql.ArgumentConfig{Type: graphql.String}
	addressArg := &graphql.ArgumentConfig{Type: t.addressInput}

	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createCustomer": &graphql.Field{
				Type: t.customer,
				Args: graphql.FieldConfigArgument{
					"name":    nonNullString,
					"email":   nonNullString,
					"phone":   optString,
					"address": addressArg,
				},
				Resolve: r.createCustomer,
			},
			"updateCustomer": &graphql.Field{
				Type: t.customer,
				Args: graphql.FieldConfigArgument{
					"id":      nonNullID,
					"name":    optString,
					"email":   optString,
					"phone":   optString,
					"address": addressArg,
				},
				Resolve: r.updateCustomer,
			},
			"deleteCustomer": &graphql.Field{
				Type:    graphql.Boolean,
				Args:    graphql.FieldConfigArgument{"id": nonNullID},
				Resolve: r.deleteCustomer,
			},
			"createProduct": &graphql.Field{
				Type: t.product,
				Args: graphql.FieldConfigArgument{
					"name":        nonNullString,
					"description": nonNullString,
					"price":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"currency":    optString,
					"category":    nonNullString,
					"inventory":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"imageUrl":    optString,
				},
				Resolve: r.createProduct,
			},
			"updateProduct": &graphql.Field{
				Type: t.product,
				Args: graphql.FieldConfigArgument{
					"id":          nonNullID,
					"name":        optString,
					"description": optString,
					"price":       &graphql.ArgumentConfig{Type: graphql.Float},
					"category":    optString,
					"inventory":   &graphql.ArgumentConfig{Type: graphql.Int},
					"imageUrl":    optString,
				},
				Resolve: r.updateProduct,
			},
			"deleteProduct": &graphql.Field{
				Type:    graphql.Boolean,
				Args:    graphql.FieldConfigArgument{"id": nonNullID},
				Resolve: r.deleteProduct,
			},
			"adjustProductInventory": &graphql.Field{
				Type: t.product,
				Args: graphql.FieldConfigArgument{
					"id":    nonNullID,
					"delta": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: r.adjustProductInventory,
			},
			"createOrder": &graphql.Field{
				Type: t.order,
				Args: graphql.FieldConfigArgument{
					"customerId": nonNullID,
					"items": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(t.orderItemInput))),
					},
					"shippingAddress": addressArg,
				},
				Resolve: r.createOrder,
			},
			"updateOrderStatus": &graphql.Field{
				Type:    t.order,
				Args:    graphql.FieldConfigArgument{"id": nonNullID, "status": nonNullString},
				Resolve: r.updateOrderStatus,
			},
			"updateOrderShipping": &graphql.Field{
				Type: t.order,
				Args: graphql.FieldConfigArgument{
					"id":              nonNullID,
					"shippingAddress": &graphql.ArgumentConfig{Type: graphql.NewNonNull(t.addressInput)},
				},
				Resolve: r.updateOrderShipping,
			},
			"cancelOrder": &graphql.Field{
				Type:    t.order,
				Args:    graphql.FieldConfigArgument{"id": nonNullID},
				Resolve: r.cancelOrder,
			},
		},
	})
}
