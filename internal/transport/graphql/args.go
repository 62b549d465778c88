package graphqltransport

import (
	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/address"
	"github.com/corray333/backend-labs/shop/internal/service/models/money"
	"github.com/corray333/backend-labs/shop/internal/service/models/order"
	"github.com/corray333/backend-labs/shop/internal/service/models/pagination"
	"github.com/corray333/backend-labs/shop/internal/service/models/product"
)

type args map[string]any

func (a args) str(name string) string {
	s, _ := a[name].(string)

	return s
}

func (a args) optStr(name string) *string {
	if s, ok := a[name].(string); ok {
		return &s
	}

	return nil
}

func (a args) num(name string) int {
	n, _ := a[name].(int)

	return n
}

func (a args) optNum(name string) *int {
	if n, ok := a[name].(int); ok {
		return &n
	}

	return nil
}

func (a args) optFloat(name string) *float64 {
	switch v := a[name].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)

		return &f
	}

	return nil
}

func (a args) object(name string) args {
	m, _ := a[name].(map[string]any)

	return m
}

func (a args) page() pagination.Page {
	p := a.object("pagination")

	return pagination.Page{Page: p.num("page"), Limit: p.num("limit")}
}

func (a args) address(name string) *address.Address {
	m, ok := a[name].(map[string]any)
	if !ok {
		return nil
	}
	in := args(m)

	return &address.Address{
		Street:  in.str("street"),
		City:    in.str("city"),
		State:   in.str("state"),
		ZipCode: in.str("zipCode"),
		Country: in.str("country"),
	}
}

func (a args) cents(name string) (*int64, error) {
	f := a.optFloat(name)
	if f == nil {
		return nil, nil
	}
	cents, err := money.FromFloat(*f)
	if err != nil {
		return nil, errs.Validation("%s: %v", name, err)
	}

	return &cents, nil
}

func (a args) items() []order.ItemInput {
	raw, _ := a["items"].([]any)
	items := make([]order.ItemInput, 0, len(raw))
	for _, v := range raw {
		m, _ := v.(map[string]any)
		it := args(m)
		items = append(items, order.ItemInput{ProductID: it.str("productId"), Quantity: it.num("quantity")})
	}

	return items
}

func (a args) productFilter() (product.Filter, error) {
	in := a.object("filter")
	f := product.Filter{Category: in.str("category"), Search: in.str("search")}

	var err error
	if f.MinPriceCents, err = in.cents("minPrice"); err != nil {
		return product.Filter{}, err
	}
	if f.MaxPriceCents, err = in.cents("maxPrice"); err != nil {
		return product.Filter{}, err
	}

	return f, nil
}

func (a args) orderFilter() (order.Filter, error) {
	in := a.object("filter")

	return order.ParseFilter(in.str("status"), in.str("startDate"), in.str("endDate"))
}
