package customers

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/shop/internal/service/models/customer"
	"github.com/corray333/backend-labs/shop/internal/service/models/order"
	"github.com/corray333/backend-labs/shop/internal/service/models/pagination"
	"github.com/corray333/backend-labs/shop/internal/service/models/recommendation"
	"github.com/corray333/backend-labs/shop/internal/transport/http/v1/converters"
	"github.com/corray333/backend-labs/shop/internal/transport/http/v1/request"
	"github.com/corray333/backend-labs/shop/internal/transport/http/v1/response"
	"github.com/go-chi/chi/v5"
)

type customerService interface {
	CreateCustomer(ctx context.Context, in customer.CreateCustomerInput) (customer.Customer, error)
	GetCustomer(ctx context.Context, id string) (customer.Customer, error)
	ListCustomers(ctx context.Context, page pagination.Page) (pagination.Result[customer.Customer], error)
	UpdateCustomer(ctx context.Context, id string, in customer.UpdateCustomerInput) (customer.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error
}

type orderService interface {
	CreateOrder(ctx context.Context, in order.CreateOrderInput) (order.Order, error)
	CustomerOrders(
		ctx context.Context,
		customerID string,
		filter order.Filter,
		page pagination.Page,
	) (pagination.Result[order.Order], error)
}

type recommendationService interface {
	GetCustomerRecommendations(
		ctx context.Context,
		customerID string,
		limit int,
	) ([]recommendation.Recommendation, error)
}

// Handler serves /customers.
type Handler struct {
	customers       customerService
	orders          orderService
	recommendations recommendationService
}

func NewHandler(customers customerService, orders orderService, recommendations recommendationService) *Handler {
	return &Handler{customers: customers, orders: orders, recommendations: recommendations}
}

// Register mounts the customer routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/customers", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Put("/", h.update)
			r.Delete("/", h.delete)
			r.Get("/recommendations", h.recommend)
			r.Get("/orders", h.listOrders)
			r.Post("/orders", h.createOrder)
		})
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var q request.PageQuery
	if err := request.Query(r, &q); err != nil {
		response.Error(w, r, err)

		return
	}

	res, err := h.customers.ListCustomers(r.Context(), q.ToPage())
	if err != nil {
		response.Error(w, r, err)

		return
	}
	response.Page(w, r, res, converters.CustomerToView)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var body converters.CreateCustomerRequest
	if err := request.JSON(w, r, &body); err != nil {
		response.Error(w, r, err)

		return
	}

	c, err := h.customers.CreateCustomer(r.Context(), body.ToInput())
	if err != nil {
		response.Error(w, r, err)

		return
	}
	response.Created(w, r, converters.CustomerToView(c))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	c, err := h.customers.GetCustomer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, err)

		return
	}
	response.OK(w, r, converters.CustomerToView(c))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var body converters.UpdateCustomerRequest
	if err := request.JSON(w, r, &body); err != nil {
		response.Error(w, r, err)

		return
	}

	c, err := h.customers.UpdateCustomer(r.Context(), chi.URLParam(r, "id"), body.ToInput())
	if err != nil {
		response.Error(w, r, err)

		return
	}
	response.OK(w, r, converters.CustomerToView(c))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.customers.DeleteCustomer(r.Context(), id); err != nil {
		response.Error(w, r, err)

		return
	}
	response.OK(w, r, map[string]string{"id": id})
}

type recommendQuery struct {
	Limit int `schema:"limit"`
}

func (h *Handler) recommend(w http.ResponseWriter, r *http.Request) {
	var q recommendQuery
	if err := request.Query(r, &q); err != nil {
		response.Error(w, r, err)

		return
	}

	recs, err := h.recommendations.GetCustomerRecommendations(r.Context(), chi.URLParam(r, "id"), q.Limit)
	if err != nil {
		response.Error(w, r, err)

		return
	}
	response.OK(w, r, converters.RecommendationsToView(recs))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	var q request.PageQuery
	if err := request.Query(r, &q); err != nil {
		response.Error(w, r, err)

		return
	}

	res, err := h.orders.CustomerOrders(r.Context(), chi.URLParam(r, "id"), order.Filter{}, q.ToPage())
	if err != nil {
		response.Error(w, r, err)

		return
	}
	response.Page(w, r, res, converters.OrderToView)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var body converters.CreateOrderRequest
	if err := request.JSON(w, r, &body); err != nil {
		response.Error(w, r, err)

		return
	}

	o, err := h.orders.CreateOrder(r.Context(), body.ToInput(chi.URLParam(r, "id")))
	if err != nil {
		response.Error(w, r, err)

		return
	}
	response.Created(w, r, converters.OrderToView(o))
}
