package orders

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/shop/internal/service/models/order"
	"github.com/corray333/backend-labs/shop/internal/service/models/pagination"
	"github.com/corray333/backend-labs/shop/internal/service/models/tracking"
	"github.com/corray333/backend-labs/shop/internal/transport/http/v1/converters"
	"github.com/corray333/backend-labs/shop/internal/transport/http/v1/request"
	"github.com/corray333/backend-labs/shop/internal/transport/http/v1/response"
	"github.com/go-chi/chi/v5"
)

type orderService interface {
	ListOrders(ctx context.Context, filter order.Filter, page pagination.Page) (pagination.Result[order.Order], error)
	GetOrderDetails(ctx context.Context, id string) (order.Details, error)
	UpdateOrder(ctx context.Context, id string, upd order.Update) (order.Order, error)
	CancelOrder(ctx context.Context, id string) (order.Order, error)
}

type trackingService interface {
	GetTracking(ctx context.Context, orderID string) (*tracking.Tracking, error)
}

// Handler serves /orders.
type Handler struct {
	orders   orderService
	tracking trackingService
}

func NewHandler(orders orderService, tracking trackingService) *Handler {
	return &Handler{orders: orders, tracking: tracking}
}

// Register mounts the order routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.list)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Put("/", h.update)
			r.Delete("/", h.cancel)
			r.Get("/tracking", h.getTracking)
		})
	})
}

type listQuery struct {
	request.PageQuery
	Status    string `schema:"status"`
	StartDate string `schema:"startDate"`
	EndDate   string `schema:"endDate"`
}

func (q listQuery) filter() (order.Filter, error) {
	return order.ParseFilter(q.Status, q.StartDate, q.EndDate)
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

	res, err := h.orders.ListOrders(r.Context(), filter, q.ToPage())
	if err != nil {
		response.Error(w, r, err)

		return
	}
	response.Page(w, r, res, converters.OrderToView)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	d, err := h.orders.GetOrderDetails(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, err)

		return
	}
	response.OK(w, r, converters.OrderDetailsToView(d))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var body converters.UpdateOrderRequest
	if err := request.JSON(w, r, &body); err != nil {
		response.Error(w, r, err)

		return
	}

	o, err := h.orders.UpdateOrder(r.Context(), chi.URLParam(r, "id"), body.ToUpdate())
	if err != nil {
		response.Error(w, r, err)

		return
	}
	response.OK(w, r, converters.OrderToView(o))
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.CancelOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, err)

		return
	}
	response.OK(w, r, converters.OrderToView(o))
}

func (h *Handler) getTracking(w http.ResponseWriter, r *http.Request) {
	t, err := h.tracking.GetTracking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, err)

		return
	}
	response.OK(w, r, converters.TrackingToView(t))
}
