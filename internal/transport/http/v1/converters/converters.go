// Package converters maps domain models to REST views and request bodies to
// service inputs. Amounts leave the service as integer cents and are shown as
// decimal numbers here.
package converters

import (
	"time"

	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/address"
	"github.com/corray333/backend-labs/shop/internal/service/models/customer"
	"github.com/corray333/backend-labs/shop/internal/service/models/money"
	"github.com/corray333/backend-labs/shop/internal/service/models/order"
	"github.com/corray333/backend-labs/shop/internal/service/models/product"
	"github.com/corray333/backend-labs/shop/internal/service/models/recommendation"
	"github.com/corray333/backend-labs/shop/internal/service/models/tracking"
)

// Customer is the REST view of a customer.
type Customer struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Email     string           `json:"email"`
	Phone     string           `json:"phone,omitempty"`
	Address   *address.Address `json:"address,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// CustomerToView converts a customer to its REST view.
func CustomerToView(c customer.Customer) Customer {
	return Customer{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// Product is the REST view of a product.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Currency    string    `json:"currency"`
	Category    string    `json:"category"`
	Inventory   int       `json:"inventory"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ProductToView converts a product to its REST view.
func ProductToView(p product.Product) Product {
	return Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       money.ToFloat(p.PriceCents),
		Currency:    p.Currency.String(),
		Category:    p.Category,
		Inventory:   p.Inventory,
		ImageURL:    p.ImageURL,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ProductSummary is the product shown inside an order line.
type ProductSummary struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	ImageURL string  `json:"imageUrl,omitempty"`
}

// CustomerSummary is the customer shown inside an order.
type CustomerSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// OrderItem is one order line.
type OrderItem struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     float64         `json:"price"`
	Product   *ProductSummary `json:"product,omitempty"`
}

// Order is the REST view of an order.
type Order struct {
	ID              string           `json:"id"`
	CustomerID      string           `json:"customerId"`
	Customer        *CustomerSummary `json:"customer,omitempty"`
	OrderDate       time.Time        `json:"orderDate"`
	Status          string           `json:"status"`
	Items           []OrderItem      `json:"items"`
	ShippingAddress *address.Address `json:"shippingAddress,omitempty"`
	TotalAmount     float64          `json:"totalAmount"`
	Currency        string           `json:"currency"`
	TrackingNumber  string           `json:"trackingNumber,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// OrderToView converts an order to its REST view.
func OrderToView(o order.Order) Order {
	items := make([]OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     money.ToFloat(it.PriceCents),
		})
	}

	return Order{
		ID:              o.ID,
		CustomerID:      o.CustomerID,
		OrderDate:       o.CreatedAt,
		Status:          o.Status.String(),
		Items:           items,
		ShippingAddress: o.ShippingAddress,
		TotalAmount:     money.ToFloat(o.TotalCents),
		Currency:        o.Currency.String(),
		TrackingNumber:  o.TrackingNumber,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

// OrderDetailsToView converts an order with its references to a REST view.
func OrderDetailsToView(d order.Details) Order {
	v := OrderToView(d.Order)
	if d.Customer != nil {
		v.Customer = &CustomerSummary{ID: d.Customer.ID, Name: d.Customer.Name, Email: d.Customer.Email}
	}
	for i := range v.Items {
		if p, ok := d.Products[v.Items[i].ProductID]; ok {
			v.Items[i].Product = &ProductSummary{
				ID:       p.ID,
				Name:     p.Name,
				Price:    money.ToFloat(p.PriceCents),
				ImageURL: p.ImageURL,
			}
		}
	}

	return v
}

// TrackingEvent is one entry of a tracking history.
type TrackingEvent struct {
	Date        time.Time `json:"date"`
	Status      string    `json:"status"`
	Location    string    `json:"location"`
	Description string    `json:"description,omitempty"`
}

// Tracking is the REST view of an order's shipment.
type Tracking struct {
	OrderID           string          `json:"orderId"`
	OrderStatus       string          `json:"orderStatus"`
	OrderDate         time.Time       `json:"orderDate"`
	TrackingNumber    string          `json:"trackingNumber"`
	Carrier           string          `json:"carrier"`
	Status            string          `json:"status"`
	EstimatedDelivery time.Time       `json:"estimatedDelivery"`
	TrackingHistory   []TrackingEvent `json:"trackingHistory"`
	LastUpdated       time.Time       `json:"lastUpdated"`
}

// TrackingToView converts tracking to its REST view. Nil stays nil.
func TrackingToView(t *tracking.Tracking) *Tracking {
	if t == nil {
		return nil
	}

	history := make([]TrackingEvent, 0, len(t.Info.History))
	for _, e := range t.Info.History {
		history = append(history, TrackingEvent{
			Date:        e.Date,
			Status:      e.Status,
			Location:    e.Location,
			Description: e.Description,
		})
	}

	return &Tracking{
		OrderID:           t.OrderID,
		OrderStatus:       t.OrderStatus.String(),
		OrderDate:         t.OrderDate,
		TrackingNumber:    t.Info.TrackingNumber,
		Carrier:           t.Info.Carrier,
		Status:            t.Info.Status,
		EstimatedDelivery: t.Info.EstimatedDelivery,
		TrackingHistory:   history,
		LastUpdated:       t.Info.LastUpdated,
	}
}

// Recommendation is a recommended product with its score.
type Recommendation struct {
	Product Product `json:"product"`
	Score   float64 `json:"score"`
	Reason  string  `json:"reason"`
}

// RecommendationsToView converts recommendations to their REST views.
func RecommendationsToView(recs []recommendation.Recommendation) []Recommendation {
	out := make([]Recommendation, 0, len(recs))
	for _, r := range recs {
		out = append(out, Recommendation{Product: ProductToView(r.Product), Score: r.Score, Reason: r.Reason})
	}

	return out
}

// CreateCustomerRequest is the body of POST /customers.
type CreateCustomerRequest struct {
	Name    string           `json:"name"`
	Email   string           `json:"email"`
	Phone   string           `json:"phone"`
	Address *address.Address `json:"address"`
}

func (r CreateCustomerRequest) ToInput() customer.CreateCustomerInput {
	return customer.CreateCustomerInput{Name: r.Name, Email: r.Email, Phone: r.Phone, Address: r.Address}
}

// UpdateCustomerRequest is the body of PUT /customers/{id}.
type UpdateCustomerRequest struct {
	Name    *string          `json:"name"`
	Email   *string          `json:"email"`
	Phone   *string          `json:"phone"`
	Address *address.Address `json:"address"`
}

func (r UpdateCustomerRequest) ToInput() customer.UpdateCustomerInput {
	return customer.UpdateCustomerInput{Name: r.Name, Email: r.Email, Phone: r.Phone, Address: r.Address}
}

func priceToCents(price float64) (int64, error) {
	cents, err := money.FromFloat(price)
	if err != nil {
		return 0, errs.Validation("price: %v", err)
	}

	return cents, nil
}

// CreateProductRequest is the body of POST /products.
type CreateProductRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       *float64 `json:"price"`
	Currency    string   `json:"currency"`
	Category    string   `json:"category"`
	Inventory   int      `json:"inventory"`
	ImageURL    string   `json:"imageUrl"`
}

func (r CreateProductRequest) ToInput() (product.CreateProductInput, error) {
	if r.Price == nil {
		return product.CreateProductInput{}, errs.Validation("price is required")
	}
	cents, err := priceToCents(*r.Price)
	if err != nil {
		return product.CreateProductInput{}, err
	}

	return product.CreateProductInput{
		Name:        r.Name,
		Description: r.Description,
		PriceCents:  cents,
		Currency:    r.Currency,
		Category:    r.Category,
		Inventory:   r.Inventory,
		ImageURL:    r.ImageURL,
	}, nil
}

// UpdateProductRequest is the body of PUT /products/{id}. Inventory is
// accepted only to reject it: stock moves through the inventory endpoint.
type UpdateProductRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Category    *string  `json:"category"`
	ImageURL    *string  `json:"imageUrl"`
	Inventory   *int     `json:"inventory"`
}

func (r UpdateProductRequest) ToInput() (product.UpdateProductInput, error) {
	if r.Inventory != nil {
		return product.UpdateProductInput{}, errs.Validation(
			"inventory cannot be set directly, use POST /api/products/{id}/inventory",
		)
	}

	in := product.UpdateProductInput{
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		ImageURL:    r.ImageURL,
	}
	if r.Price != nil {
		cents, err := priceToCents(*r.Price)
		if err != nil {
			return product.UpdateProductInput{}, err
		}
		in.PriceCents = &cents
	}

	return in, nil
}

// AdjustInventoryRequest is the body of POST /products/{id}/inventory.
type AdjustInventoryRequest struct {
	Delta int `json:"delta"`
}

// OrderItemRequest is one requested order line.
type OrderItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CreateOrderRequest is the body of POST /customers/{customerId}/orders.
type CreateOrderRequest struct {
	Items           []OrderItemRequest `json:"items"`
	ShippingAddress *address.Address   `json:"shippingAddress"`
}

func (r CreateOrderRequest) ToInput(customerID string) order.CreateOrderInput {
	items := make([]order.ItemInput, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, order.ItemInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	return order.CreateOrderInput{CustomerID: customerID, Items: items, ShippingAddress: r.ShippingAddress}
}

// UpdateOrderRequest is the body of PUT /orders/{id}.
type UpdateOrderRequest struct {
	Status          *string          `json:"status"`
	ShippingAddress *address.Address `json:"shippingAddress"`
}

func (r UpdateOrderRequest) ToUpdate() order.Update {
	return order.Update{Status: r.Status, ShippingAddress: r.ShippingAddress}
}
