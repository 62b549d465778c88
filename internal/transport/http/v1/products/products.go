package products

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/money"
	"github.com/corray333/backend-labs/shop/internal/service/models/pagination"
	"github.com/corray333/backend-labs/shop/internal/service/models/product"
	"github.com/corray333/backend-labs/shop/internal/service/models/recommendation"
	"github.com/corray333/backend-labs/shop/internal/transport/http/v1/converters"
	"github.com/corray333/backend-labs/shop/internal/transport/http/v1/request"
	"github.com/corray333/backend-labs/shop/internal/transport/http/v1/response"
	"github.com/go-chi/chi/v5"
)

type productService interface {
	CreateProduct(ctx context.Context, in product.CreateProductInput) (product.Product, error)
	GetProduct(ctx context.Context, id string) (product.Product, error)
	ListProducts(
		ctx context.Context,
		filter product.Filter,
		page pagination.Page,
	) (pagination.Result[product.Product], error)
	UpdateProduct(ctx context.Context, id string, in product.UpdateProductInput) (product.Product, error)
	AdjustInventory(ctx context.Context, id string, delta int) (product.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

type recommendationService interface {
	GetProductRecommendations(
		ctx context.Context,
		category string,
		limit int,
	) ([]recommendation.Recommendation, error)
}

// Handler serves /products.
type Handler struct {
	products        productService
	recommendations recommendationService
}

func NewHandler(products productService, recommendations recommendationService) *Handler {
	return &Handler{products: products, recommendations: recommendations}
}

// Register mounts the product routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/recommendations", h.recommend)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Put("/", h.update)
			r.Delete("/", h.delete)
			r.Post("/inventory", h.adjustInventory)
		})
	})
}

type listQuery struct {
	request.PageQuery
	Category string   `schema:"category"`
	MinPrice *float64 `schema:"minPrice"`
	MaxPrice *float64 `schema:"maxPrice"`
	Search   string   `schema:"search"`
}

func (q listQuery) filter() (product.Filter, error) {
	f := product.Filter{Category: q.Category, Search: q.Search}
	if q.MinPrice != nil {
		cents, err := money.FromFloat(*q.MinPrice)
		if err != nil {
			return product.Filter{}, errs.Validation("minPrice: %v", err)
		}
		f.MinPriceCents = &cents
	}
	if q.MaxPrice != nil {
		cents, err := money.FromFloat(*q.MaxPrice)
		if err != nil {
			return product.Filter{}, errs.Validation("maxPrice: %v", err)
		}
		f.MaxPriceCents = &cents
	}

	return f, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var q listQuery
	if err := request.Query(r, &q); err != nil {
		response.Error(w, r, err)

		return
	}
	filter, err := q.filter()
	if err != nil {
		response.Error(w, r, err)

		return
	}

	res, err := h.products.ListProducts(r.Context(), filter, q.ToPage())
	if err != nil {
		response.Error(w, r, err)

		return
	}
	response.Page(w, r, res, converters.ProductToView)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var body converters.CreateProductRequest
	if err := request.JSON(w, r, &body); err != nil {
		response.Error(w, r, err)

		return
	}
	in, err := body.ToInput()
	if err != nil {
		response.Error(w, r, err)

		return
	}

	p, err := h.products.CreateProduct(r.Context(), in)
	if err != nil {
		response.Error(w, r, err)

		return
	}
	response.Created(w, r, converters.ProductToView(p))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, err)

		return
	}
	response.OK(w, r, converters.ProductToView(p))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var body converters.UpdateProductRequest
	if err := request.JSON(w, r, &body); err != nil {
		response.Error(w, r, err)

		return
	}
	in, err := body.ToInput()
	if err != nil {
		response.Error(w, r, err)

		return
	}

	p, err := h.products.UpdateProduct(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		response.Error(w, r, err)

		return
	}
	response.OK(w, r, converters.ProductToView(p))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.products.DeleteProduct(r.Context(), id); err != nil {
		response.Error(w, r, err)

		return
	}
	response.OK(w, r, map[string]string{"id": id})
}

func (h *Handler) adjustInventory(w http.ResponseWriter, r *http.Request) {
	var body converters.AdjustInventoryRequest
	if err := request.JSON(w, r, &body); err != nil {
		response.Error(w, r, err)

		return
	}

	p, err := h.products.AdjustInventory(r.Context(), chi.URLParam(r, "id"), body.Delta)
	if err != nil {
		response.Error(w, r, err)

		return
	}
	response.OK(w, r, converters.ProductToView(p))
}

type recommendQuery struct {
	Category string `schema:"category"`
	Limit    int    `schema:"limit"`
}

func (h *Handler) recommend(w http.ResponseWriter, r *http.Request) {
	var q recommendQuery
	if err := request.Query(r, &q); err != nil {
		response.Error(w, r, err)

		return
	}

	recs, err := h.recommendations.GetProductRecommendations(r.Context(), q.Category, q.Limit)
	if err != nil {
		response.Error(w, r, err)

		return
	}
	response.OK(w, r, converters.RecommendationsToView(recs))
}
