package customersvc

import (
	"context"
	"testing"
	"time"

	"github.com/corray333/backend-labs/shop/internal/cache"
	"github.com/corray333/backend-labs/shop/internal/dal/repositories/memory"
	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/address"
	"github.com/corray333/backend-labs/shop/internal/service/models/customer"
	"github.com/corray333/backend-labs/shop/internal/service/models/order"
	"github.com/corray333/backend-labs/shop/internal/service/models/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(store *memory.Store) *CustomerService {
	return MustNewCustomerService(
		WithCustomerRepository(memory.NewCustomerRepository(store)),
		WithCache(cache.New(time.Hour), time.Hour),
	)
}

func strPtr(s string) *string { return &s }

func TestCreateCustomerNormalizesEmail(t *testing.T) {
	svc := newService(memory.NewStore())
	ctx := context.Background()

	c, err := svc.CreateCustomer(ctx, customer.CreateCustomerInput{
		Name:    " Ada Lovelace ",
		Email:   "Ada@Example.COM",
		Address: &address.Address{City: "London"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "Ada Lovelace", c.Name)
	assert.Equal(t, "ada@example.com", c.Email)

	_, err = svc.CreateCustomer(ctx, customer.CreateCustomerInput{Name: "Other", Email: "ADA@example.com"})
	require.ErrorIs(t, err, errs.ErrDuplicateEmail)
}

func TestCreateCustomerValidation(t *testing.T) {
	svc := newService(memory.NewStore())

	_, err := svc.CreateCustomer(context.Background(), customer.CreateCustomerInput{Name: "", Email: "nope"})
	require.Error(t, err)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestUpdateCustomer(t *testing.T) {
	svc := newService(memory.NewStore())
	ctx := context.Background()

	a, err := svc.CreateCustomer(ctx, customer.CreateCustomerInput{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	_, err = svc.CreateCustomer(ctx, customer.CreateCustomerInput{Name: "Bob", Email: "bob@example.com"})
	require.NoError(t, err)

	// warm the cache so the update has something to invalidate
	_, err = svc.GetCustomer(ctx, a.ID)
	require.NoError(t, err)

	updated, err := svc.UpdateCustomer(ctx, a.ID, customer.UpdateCustomerInput{Phone: strPtr("+100")})
	require.NoError(t, err)
	assert.Equal(t, "+100", updated.Phone)
	assert.Equal(t, "Ada", updated.Name)

	got, err := svc.GetCustomer(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "+100", got.Phone)

	_, err = svc.UpdateCustomer(ctx, a.ID, customer.UpdateCustomerInput{Email: strPtr("BOB@example.com")})
	require.ErrorIs(t, err, errs.ErrDuplicateEmail)

	_, err = svc.UpdateCustomer(ctx, "missing", customer.UpdateCustomerInput{})
	require.ErrorIs(t, err, errs.ErrCustomerNotFound)
}

func TestDeleteCustomerBlockedByOrders(t *testing.T) {
	store := memory.NewStore()
	svc := newService(store)
	ctx := context.Background()

	c, err := svc.CreateCustomer(ctx, customer.CreateCustomerInput{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	require.NoError(t, memory.NewOrderRepository(store).Create(ctx, order.Order{
		ID: "o1", CustomerID: c.ID, Status: order.StatusPending,
	}))

	require.ErrorIs(t, svc.DeleteCustomer(ctx, c.ID), errs.ErrCustomerHasOrders)

	other, err := svc.CreateCustomer(ctx, customer.CreateCustomerInput{Name: "Bob", Email: "bob@example.com"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteCustomer(ctx, other.ID))

	_, err = svc.GetCustomer(ctx, other.ID)
	require.ErrorIs(t, err, errs.ErrCustomerNotFound)
}

func TestListCustomersPagination(t *testing.T) {
	svc := newService(memory.NewStore())
	ctx := context.Background()

	for _, email := range []string{"a@x.io", "b@x.io", "c@x.io", "d@x.io", "e@x.io"} {
		_, err := svc.CreateCustomer(ctx, customer.CreateCustomerInput{Name: email, Email: email})
		require.NoError(t, err)
	}

	first, err := svc.ListCustomers(ctx, pagination.Page{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, first.Items, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, 5, first.Total)

	last, err := svc.ListCustomers(ctx, pagination.Page{Page: 3, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, last.Items, 1)
	assert.False(t, last.HasMore)
}

func TestCustomerExists(t *testing.T) {
	svc := newService(memory.NewStore())
	ctx := context.Background()

	c, err := svc.CreateCustomer(ctx, customer.CreateCustomerInput{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)

	ok, err := svc.CustomerExists(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CustomerExists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetCustomersSkipsMissing(t *testing.T) {
	svc := newService(memory.NewStore())
	ctx := context.Background()

	a, err := svc.CreateCustomer(ctx, customer.CreateCustomerInput{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	b, err := svc.CreateCustomer(ctx, customer.CreateCustomerInput{Name: "Bob", Email: "bob@example.com"})
	require.NoError(t, err)

	// one cached, one read from the store
	_, err = svc.GetCustomer(ctx, a.ID)
	require.NoError(t, err)

	got, err := svc.GetCustomers(ctx, []string{a.ID, b.ID, "missing"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Ada", got[a.ID].Name)
	assert.Equal(t, "Bob", got[b.ID].Name)
}
