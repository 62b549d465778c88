package customer

import (
	"strings"
	"time"

	"github.com/corray333/backend-labs/shop/internal/service/models/address"
)

// Customer represents a registered customer.
type Customer struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Address   *address.Address
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateCustomerInput is the input for registering a customer.
type CreateCustomerInput struct {
	Name    string           `validate:"required,max=200"`
	Email   string           `validate:"required,email,max=320"`
	Phone   string           `validate:"max=40"`
	Address *address.Address `validate:"omitempty"`
}

// UpdateCustomerInput is a partial update. Nil fields are left unchanged.
type UpdateCustomerInput struct {
	Name    *string          `validate:"omitempty,min=1,max=200"`
	Email   *string          `validate:"omitempty,email,max=320"`
	Phone   *string          `validate:"omitempty,max=40"`
	Address *address.Address `validate:"omitempty"`
}

// NormalizeEmail trims and lower-cases an email so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Apply returns c with the non-nil fields of in applied.
func (in UpdateCustomerInput) Apply(c Customer) Customer {
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		c.Email = NormalizeEmail(*in.Email)
	}
	if in.Phone != nil {
		c.Phone = *in.Phone
	}
	if in.Address != nil {
		addr := *in.Address
		c.Address = &addr
	}

	return c
}
