package tracking

import (
	"time"

	"github.com/corray333/backend-labs/shop/internal/service/models/order"
)

// Event is one entry of a shipment's history.
type Event struct {
	Date        time.Time
	Status      string
	Location    string
	Description string
}

// Info is what the shipping provider reports for a tracking number.
type Info struct {
	TrackingNumber    string
	Carrier           string
	Status            string
	EstimatedDelivery time.Time
	History           []Event
	LastUpdated       time.Time
}

// Tracking is shipment info associated with the order it belongs to.
type Tracking struct {
	OrderID     string
	OrderStatus order.Status
	OrderDate   time.Time
	Info        Info
}
