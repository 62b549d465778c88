package products

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/currency"
	"github.com/corray333/backend-labs/shop/internal/service/models/pagination"
	"github.com/corray333/backend-labs/shop/internal/service/models/product"
	"github.com/corray333/backend-labs/shop/internal/service/models/recommendation"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProducts struct {
	created product.CreateProductInput
	filter  product.Filter
	delta   int
	updates int
}

func (s *stubProducts) CreateProduct(_ context.Context, in product.CreateProductInput) (product.Product, error) {
	s.created = in

	return product.Product{ID: "p1", Name: in.Name, PriceCents: in.PriceCents, Currency: currency.CurrencyUSD}, nil
}

func (s *stubProducts) GetProduct(_ context.Context, id string) (product.Product, error) {
	return product.Product{ID: id, PriceCents: 1050, Currency: currency.CurrencyUSD}, nil
}

func (s *stubProducts) ListProducts(
	_ context.Context,
	filter product.Filter,
	page pagination.Page,
) (pagination.Result[product.Product], error) {
	s.filter = filter

	return pagination.NewResult[product.Product](nil, 0, page.Normalize()), nil
}

func (s *stubProducts) UpdateProduct(
	_ context.Context,
	id string,
	_ product.UpdateProductInput,
) (product.Product, error) {
	s.updates++

	return product.Product{ID: id}, nil
}

func (s *stubProducts) AdjustInventory(_ context.Context, id string, delta int) (product.Product, error) {
	s.delta = delta
	if delta < -5 {
		return product.Product{}, errs.ErrInsufficientInventory
	}

	return product.Product{ID: id, Inventory: 5 + delta}, nil
}

func (s *stubProducts) DeleteProduct(_ context.Context, _ string) error {
	return nil
}

type stubRecommendations struct {
	category string
}

func (s *stubRecommendations) GetProductRecommendations(
	_ context.Context,
	category string,
	_ int,
) ([]recommendation.Recommendation, error) {
	s.category = category

	return []recommendation.Recommendation{{
		Product: product.Product{ID: "p9", Category: category},
		Score:   0.9,
		Reason:  "Popular in " + category,
	}}, nil
}

func serve(t *testing.T, h *Handler, method, target, body string) (int, map[string]any) {
	t.Helper()

	r := chi.NewRouter()
	h.Register(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))

	return rec.Code, out
}

func TestCreateProductConvertsPrice(t *testing.T) {
	ps := &stubProducts{}

	code, out := serve(t, NewHandler(ps, &stubRecommendations{}), http.MethodPost, "/products",
		`{"name":"Lamp","description":"Desk lamp","price":19.99,"category":"home","inventory":4}`)

	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, int64(1999), ps.created.PriceCents)
	assert.Equal(t, 4, ps.created.Inventory)
	assert.InDelta(t, 19.99, out["data"].(map[string]any)["price"], 1e-9)
}

func TestCreateProductRequiresPrice(t *testing.T) {
	code, out := serve(t, NewHandler(&stubProducts{}, &stubRecommendations{}), http.MethodPost, "/products",
		`{"name":"Lamp"}`)

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "price is required", out["error"])
}

func TestProductPricesRejectOverflow(t *testing.T) {
	ps := &stubProducts{}
	h := NewHandler(ps, &stubRecommendations{})

	code, out := serve(t, h, http.MethodPost, "/products",
		`{"name":"Lamp","description":"Desk lamp","price":1e17,"category":"home"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "price: amount is too large", out["error"])
	assert.Zero(t, ps.created.PriceCents)

	code, _ = serve(t, h, http.MethodGet, "/products?maxPrice=2e17", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Nil(t, ps.filter.MaxPriceCents)
}

func TestUpdateProductRejectsInventory(t *testing.T) {
	ps := &stubProducts{}

	code, _ := serve(t, NewHandler(ps, &stubRecommendations{}), http.MethodPut, "/products/p1", `{"inventory":50}`)

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Zero(t, ps.updates)
}

func TestListProductsFilter(t *testing.T) {
	ps := &stubProducts{}

	code, out := serve(t, NewHandler(ps, &stubRecommendations{}), http.MethodGet,
		"/products?category=home&minPrice=5&maxPrice=20.5&search=lamp", "")

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "home", ps.filter.Category)
	assert.Equal(t, "lamp", ps.filter.Search)
	require.NotNil(t, ps.filter.MinPriceCents)
	require.NotNil(t, ps.filter.MaxPriceCents)
	assert.Equal(t, int64(500), *ps.filter.MinPriceCents)
	assert.Equal(t, int64(2050), *ps.filter.MaxPriceCents)
	assert.Equal(t, []any{}, out["data"])
}

func TestListProductsBadPrice(t *testing.T) {
	code, _ := serve(t, NewHandler(&stubProducts{}, &stubRecommendations{}), http.MethodGet,
		"/products?minPrice=cheap", "")

	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAdjustInventory(t *testing.T) {
	ps := &stubProducts{}
	h := NewHandler(ps, &stubRecommendations{})

	code, out := serve(t, h, http.MethodPost, "/products/p1/inventory", `{"delta":-2}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, -2, ps.delta)
	assert.EqualValues(t, 3, out["data"].(map[string]any)["inventory"])

	code, out = serve(t, h, http.MethodPost, "/products/p1/inventory", `{"delta":-9}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "insufficient inventory", out["error"])
}

func TestProductRecommendationsRouteIsNotAnID(t *testing.T) {
	rs := &stubRecommendations{}

	code, out := serve(t, NewHandler(&stubProducts{}, rs), http.MethodGet, "/products/recommendations?category=books", "")

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "books", rs.category)
	data := out["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, "Popular in books", data[0].(map[string]any)["reason"])
}
