package order

import (
	"github.com/corray333/backend-labs/shop/internal/service/models/customer"
	"github.com/corray333/backend-labs/shop/internal/service/models/product"
)

// Details is an order with the entities it references. Customer is nil and
// products are absent from the map when they no longer exist.
type Details struct {
	Order    Order
	Customer *customer.Customer
	Products map[string]product.Product
}
