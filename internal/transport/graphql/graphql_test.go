package graphqltransport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/corray333/backend-labs/shop/internal/cache"
	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/iuow"
	"github.com/corray333/backend-labs/shop/internal/dal/providers/shipping"
	"github.com/corray333/backend-labs/shop/internal/dal/repositories/memory"
	"github.com/corray333/backend-labs/shop/internal/service/models/customer"
	"github.com/corray333/backend-labs/shop/internal/service/models/order"
	"github.com/corray333/backend-labs/shop/internal/service/models/pagination"
	"github.com/corray333/backend-labs/shop/internal/service/models/product"
	"github.com/corray333/backend-labs/shop/internal/service/models/recommendation"
	"github.com/corray333/backend-labs/shop/internal/service/services/customersvc"
	"github.com/corray333/backend-labs/shop/internal/service/services/inventorysvc"
	"github.com/corray333/backend-labs/shop/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/shop/internal/service/services/productsvc"
	"github.com/corray333/backend-labs/shop/internal/service/services/recommendationsvc"
	"github.com/corray333/backend-labs/shop/internal/service/services/trackingsvc"
	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type downRecommender struct{}

func (downRecommender) GetRecommendations(context.Context, string, []string) ([]recommendation.Candidate, error) {
	return nil, errors.New("connection reset")
}

type services struct {
	customers       customerService
	products        productService
	orders          orderService
	tracking        trackingService
	recommendations recommendationService
}

func newServices(t *testing.T) services {
	t.Helper()

	store := memory.NewStore()
	c := cache.New(time.Hour)
	customers := memory.NewCustomerRepository(store)
	products := memory.NewProductRepository(store)
	orders := memory.NewOrderRepository(store)
	ledger := inventorysvc.MustNewLedger(inventorysvc.WithProductRepository(products), inventorysvc.WithCache(c))
	ship := shipping.NewMockProvider(shipping.WithLatency(0), shipping.WithFailureRate(0), shipping.WithSeed(7))

	return services{
		customers: customersvc.MustNewCustomerService(
			customersvc.WithCustomerRepository(customers),
			customersvc.WithCache(c, time.Hour),
		),
		products: productsvc.MustNewProductService(
			productsvc.WithProductRepository(products),
			productsvc.WithLedger(ledger),
			productsvc.WithCache(c, time.Hour),
		),
		orders: ordersvc.MustNewOrderService(
			ordersvc.WithCustomerRepository(customers),
			ordersvc.WithOrderRepository(orders),
			ordersvc.WithProductRepository(products),
			ordersvc.WithLedger(ledger),
			ordersvc.WithUnitOfWork(func() iuow.IUnitOfWork { return memory.NewUnitOfWork(store) }),
			ordersvc.WithShippingProvider(ship),
			ordersvc.WithCache(c, time.Hour),
		),
		tracking: trackingsvc.MustNewTrackingService(
			trackingsvc.WithOrderRepository(orders),
			trackingsvc.WithShippingProvider(ship),
			trackingsvc.WithCache(c, time.Hour),
			trackingsvc.WithTimeout(time.Second),
		),
		recommendations: recommendationsvc.MustNewRecommendationService(
			recommendationsvc.WithCustomerRepository(customers),
			recommendationsvc.WithOrderRepository(orders),
			recommendationsvc.WithProductRepository(products),
			recommendationsvc.WithProvider(downRecommender{}),
			recommendationsvc.WithCache(c, time.Hour),
			recommendationsvc.WithTimeout(time.Second),
		),
	}
}

func schemaFor(s services, opts ...option) *Schema {
	return MustNewSchema(append([]option{
		WithCustomerService(s.customers),
		WithProductService(s.products),
		WithOrderService(s.orders),
		WithTrackingService(s.tracking),
		WithRecommendationService(s.recommendations),
	}, opts...)...)
}

func newSchema(t *testing.T) *Schema {
	t.Helper()

	return schemaFor(newServices(t))
}

func exec(t *testing.T, schema *Schema, query string, vars map[string]any) *graphql.Result {
	t.Helper()

	return schema.Execute(context.Background(), query, "", vars)
}

func mustData(t *testing.T, res *graphql.Result) map[string]any {
	t.Helper()
	require.Empty(t, res.Errors)

	return res.Data.(map[string]any)
}

func errorCode(t *testing.T, res *graphql.Result) (string, map[string]any) {
	t.Helper()
	require.Len(t, res.Errors, 1)

	return res.Errors[0].Message, res.Errors[0].Extensions
}

func createCustomer(t *testing.T, schema *Schema) string {
	t.Helper()

	data := mustData(t, exec(t, schema, `mutation {
		createCustomer(name: "Ada", email: "ada@example.com", address: {city: "Springfield"}) { id }
	}`, nil))

	return data["createCustomer"].(map[string]any)["id"].(string)
}

func createProduct(t *testing.T, schema *Schema, name string, price float64, stock int) string {
	t.Helper()

	data := mustData(t, exec(t, schema, `mutation($name: String!, $price: Float!, $stock: Int!) {
		createProduct(name: $name, description: "d", price: $price, category: "home", inventory: $stock) { id }
	}`, map[string]any{"name": name, "price": price, "stock": stock}))

	return data["createProduct"].(map[string]any)["id"].(string)
}

func inventory(t *testing.T, schema *Schema, id string) int {
	t.Helper()

	data := mustData(t, exec(t, schema, `query($id: ID!) { product(id: $id) { inventory } }`, map[string]any{"id": id}))

	return data["product"].(map[string]any)["inventory"].(int)
}

func placeOrder(t *testing.T, schema *Schema, customerID, productID string, qty int) *graphql.Result {
	t.Helper()

	return exec(t, schema, `mutation($c: ID!, $p: ID!, $q: Int!) {
		createOrder(customerId: $c, items: [{productId: $p, quantity: $q}]) {
			id status totalAmount
			shippingAddress { city }
			customer { name }
			items { quantity price product { name } }
		}
	}`, map[string]any{"c": customerID, "p": productID, "q": qty})
}

func TestCreateOrderResolvesNestedFields(t *testing.T) {
	schema := newSchema(t)
	cid := createCustomer(t, schema)
	pid := createProduct(t, schema, "Kettle", 9.99, 5)

	data := mustData(t, placeOrder(t, schema, cid, pid, 3))
	o := data["createOrder"].(map[string]any)

	assert.Equal(t, "pending", o["status"])
	assert.InDelta(t, 29.97, o["totalAmount"], 1e-9)
	assert.Equal(t, "Springfield", o["shippingAddress"].(map[string]any)["city"])
	assert.Equal(t, "Ada", o["customer"].(map[string]any)["name"])

	line := o["items"].([]any)[0].(map[string]any)
	assert.Equal(t, 3, line["quantity"])
	assert.Equal(t, "Kettle", line["product"].(map[string]any)["name"])
	assert.Equal(t, 2, inventory(t, schema, pid))
}

func TestCreateOrderInsufficientInventory(t *testing.T) {
	schema := newSchema(t)
	cid := createCustomer(t, schema)
	pid := createProduct(t, schema, "Kettle", 9.99, 2)

	msg, ext := errorCode(t, placeOrder(t, schema, cid, pid, 3))

	assert.Equal(t, "insufficient inventory", msg)
	assert.Equal(t, CodeBadUserInput, ext["code"])
	assert.Equal(t, "INSUFFICIENT_INVENTORY", ext["reason"])
	assert.Equal(t, 2, inventory(t, schema, pid))
}

func TestCancelOrderTwiceRestoresOnce(t *testing.T) {
	schema := newSchema(t)
	cid := createCustomer(t, schema)
	pid := createProduct(t, schema, "Kettle", 9.99, 5)
	id := mustData(t, placeOrder(t, schema, cid, pid, 3))["createOrder"].(map[string]any)["id"]

	cancel := `mutation($id: ID!) { cancelOrder(id: $id) { status } }`
	for range 2 {
		data := mustData(t, exec(t, schema, cancel, map[string]any{"id": id}))
		assert.Equal(t, "cancelled", data["cancelOrder"].(map[string]any)["status"])
	}
	assert.Equal(t, 5, inventory(t, schema, pid))

	res := exec(t, schema, `mutation($id: ID!) { updateOrderStatus(id: $id, status: "cancelled") { status } }`,
		map[string]any{"id": id})
	_, ext := errorCode(t, res)
	assert.Equal(t, "INVALID_TRANSITION", ext["reason"])
	assert.Equal(t, "CONFLICT", ext["kind"])
}

func TestProductsPagination(t *testing.T) {
	schema := newSchema(t)
	for i := range 5 {
		createProduct(t, schema, fmt.Sprintf("Item %d", i), 1, 1)
	}

	query := `query($page: Int) {
		products(pagination: {page: $page, limit: 2}) { products { id } totalCount hasMore }
	}`

	first := mustData(t, exec(t, schema, query, map[string]any{"page": 1}))["products"].(map[string]any)
	assert.Len(t, first["products"], 2)
	assert.Equal(t, 5, first["totalCount"])
	assert.Equal(t, true, first["hasMore"])

	last := mustData(t, exec(t, schema, query, map[string]any{"page": 3}))["products"].(map[string]any)
	assert.Len(t, last["products"], 1)
	assert.Equal(t, false, last["hasMore"])
}

func TestRecommendationsOutage(t *testing.T) {
	schema := newSchema(t)
	cid := createCustomer(t, schema)

	msg, ext := errorCode(t, exec(t, schema, `query($id: ID!) { customerRecommendations(customerId: $id) { score } }`,
		map[string]any{"id": cid}))
	assert.Equal(t, "recommendation engine is unavailable", msg)
	assert.Equal(t, CodeServiceUnavailable, ext["code"])

	data := mustData(t, exec(t, schema, `query($id: ID!) { customer(id: $id) { name recommendations { score } } }`,
		map[string]any{"id": cid}))
	assert.Equal(t, []any{}, data["customer"].(map[string]any)["recommendations"])
}

func TestUnknownIDsAndTrackingGate(t *testing.T) {
	schema := newSchema(t)
	cid := createCustomer(t, schema)
	pid := createProduct(t, schema, "Kettle", 9.99, 5)
	id := mustData(t, placeOrder(t, schema, cid, pid, 1))["createOrder"].(map[string]any)["id"]

	data := mustData(t, exec(t, schema, `{ order(id: "missing") { id } customer(id: "missing") { id } }`, nil))
	assert.Nil(t, data["order"])
	assert.Nil(t, data["customer"])

	data = mustData(t, exec(t, schema, `query($id: ID!) { orderTracking(orderId: $id) { carrier } }`,
		map[string]any{"id": id}))
	assert.Nil(t, data["orderTracking"])

	mustData(t, exec(t, schema, `mutation($id: ID!) { updateOrderStatus(id: $id, status: "shipped") { status } }`,
		map[string]any{"id": id}))
	data = mustData(t, exec(t, schema, `query($id: ID!) { order(id: $id) { tracking { trackingId history { status } } } }`,
		map[string]any{"id": id}))
	tracking := data["order"].(map[string]any)["tracking"].(map[string]any)
	assert.NotEmpty(t, tracking["trackingId"])
}

func TestUpdateProductRejectsInventory(t *testing.T) {
	schema := newSchema(t)
	pid := createProduct(t, schema, "Kettle", 9.99, 5)

	msg, ext := errorCode(t, exec(t, schema, `mutation($id: ID!) { updateProduct(id: $id, inventory: 50) { id } }`,
		map[string]any{"id": pid}))
	assert.Contains(t, msg, "adjustProductInventory")
	assert.Equal(t, "VALIDATION", ext["kind"])

	data := mustData(t, exec(t, schema, `mutation($id: ID!) { adjustProductInventory(id: $id, delta: -2) { inventory } }`,
		map[string]any{"id": pid}))
	assert.Equal(t, 3, data["adjustProductInventory"].(map[string]any)["inventory"])
}

func TestHandlerTransports(t *testing.T) {
	h := NewHandler(newSchema(t))

	post := httptest.NewRecorder()
	h.ServeHTTP(post, httptest.NewRequest(http.MethodPost, "/graphql",
		strings.NewReader(`{"query":"{ customers { totalCount } }"}`)))
	require.Equal(t, http.StatusOK, post.Code)
	assert.JSONEq(t, `{"data":{"customers":{"totalCount":0}}}`, post.Body.String())

	get := httptest.NewRecorder()
	h.ServeHTTP(get, httptest.NewRequest(http.MethodGet,
		"/graphql?query="+url.QueryEscape(`query($id: ID!) { product(id: $id) { id } }`)+
			"&variables="+url.QueryEscape(`{"id":"nope"}`), nil))
	require.Equal(t, http.StatusOK, get.Code)
	assert.JSONEq(t, `{"data":{"product":null}}`, get.Body.String())

	bad := httptest.NewRecorder()
	h.ServeHTTP(bad, httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, bad.Code)

	var body map[string][]map[string]string
	require.NoError(t, json.Unmarshal(bad.Body.Bytes(), &body))
	assert.Equal(t, "query is required", body["errors"][0]["message"])

	put := httptest.NewRecorder()
	h.ServeHTTP(put, httptest.NewRequest(http.MethodPut, "/graphql", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, put.Code)
}

type countingCustomers struct {
	customerService
	single atomic.Int32
	batch  atomic.Int32
}

func (c *countingCustomers) GetCustomer(ctx context.Context, id string) (customer.Customer, error) {
	c.single.Add(1)

	return c.customerService.GetCustomer(ctx, id)
}

func (c *countingCustomers) GetCustomers(ctx context.Context, ids []string) (map[string]customer.Customer, error) {
	c.batch.Add(1)

	return c.customerService.GetCustomers(ctx, ids)
}

type countingProducts struct {
	productService
	single atomic.Int32
	batch  atomic.Int32
}

func (c *countingProducts) GetProduct(ctx context.Context, id string) (product.Product, error) {
	c.single.Add(1)

	return c.productService.GetProduct(ctx, id)
}

func (c *countingProducts) GetProducts(ctx context.Context, ids []string) (map[string]product.Product, error) {
	c.batch.Add(1)

	return c.productService.GetProducts(ctx, ids)
}

type countingOrders struct {
	orderService
	customerPages atomic.Int32
}

func (c *countingOrders) CustomerOrders(
	ctx context.Context,
	customerID string,
	filter order.Filter,
	page pagination.Page,
) (pagination.Result[order.Order], error) {
	c.customerPages.Add(1)

	return c.orderService.CustomerOrders(ctx, customerID, filter, page)
}

func TestNestedFieldsLoadInOneBatchPerRequest(t *testing.T) {
	svc := newServices(t)
	customers := &countingCustomers{customerService: svc.customers}
	products := &countingProducts{productService: svc.products}
	svc.customers, svc.products = customers, products
	schema := schemaFor(svc, WithBatchWait(50*time.Millisecond))

	ada := createCustomer(t, schema)
	bob := mustData(t, exec(t, schema, `mutation { createCustomer(name: "Bob", email: "bob@example.com") { id } }`,
		nil))["createCustomer"].(map[string]any)["id"].(string)
	kettle := createProduct(t, schema, "Kettle", 9.99, 10)
	mug := createProduct(t, schema, "Mug", 4.5, 10)
	lamp := createProduct(t, schema, "Lamp", 20, 10)

	create := `mutation($c: ID!, $items: [OrderItemInput!]!) { createOrder(customerId: $c, items: $items) { id } }`
	for _, o := range []struct {
		customer string
		products []string
	}{
		{ada, []string{kettle, mug}},
		{bob, []string{mug, lamp}},
		{ada, []string{lamp}},
	} {
		items := make([]any, 0, len(o.products))
		for _, p := range o.products {
			items = append(items, map[string]any{"productId": p, "quantity": 1})
		}
		mustData(t, exec(t, schema, create, map[string]any{"c": o.customer, "items": items}))
	}

	customers.single.Store(0)
	customers.batch.Store(0)
	products.single.Store(0)
	products.batch.Store(0)

	data := mustData(t, exec(t, schema, `{
		orders { orders { customer { name } items { product { name } } } }
	}`, nil))

	listed := data["orders"].(map[string]any)["orders"].([]any)
	require.Len(t, listed, 3)
	for _, o := range listed {
		o := o.(map[string]any)
		assert.NotNil(t, o["customer"])
		for _, it := range o["items"].([]any) {
			assert.NotNil(t, it.(map[string]any)["product"])
		}
	}

	assert.Equal(t, int32(1), customers.batch.Load())
	assert.Equal(t, int32(1), products.batch.Load())
	assert.Zero(t, customers.single.Load())
	assert.Zero(t, products.single.Load())
}

func TestCustomerOrdersLoadedOncePerCustomerAndPage(t *testing.T) {
	svc := newServices(t)
	orders := &countingOrders{orderService: svc.orders}
	svc.orders = orders
	schema := schemaFor(svc, WithBatchWait(50*time.Millisecond))

	cid := createCustomer(t, schema)
	pid := createProduct(t, schema, "Kettle", 9.99, 5)
	mustData(t, placeOrder(t, schema, cid, pid, 1))

	data := mustData(t, exec(t, schema, `query($id: ID!) {
		a: customer(id: $id) { orders { totalCount } }
		b: customer(id: $id) { orders { totalCount } }
	}`, map[string]any{"id": cid}))

	assert.Equal(t, 1, data["a"].(map[string]any)["orders"].(map[string]any)["totalCount"])
	assert.Equal(t, 1, data["b"].(map[string]any)["orders"].(map[string]any)["totalCount"])
	assert.Equal(t, int32(1), orders.customerPages.Load())
}
