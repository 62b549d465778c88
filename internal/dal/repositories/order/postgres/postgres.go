package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/shop/internal/dal/postgres"
	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/address"
	"github.com/corray333/backend-labs/shop/internal/service/models/currency"
	"github.com/corray333/backend-labs/shop/internal/service/models/order"
	"github.com/jackc/pgx/v5"
)

var orderColumns = []string{
	"id",
	"customer_id",
	"status",
	"shipping_address",
	"total_cents",
	"currency",
	"tracking_number",
	"created_at",
	"updated_at",
}

// OrderDal represents the order data access layer model.
type OrderDal struct {
	ID              string    `db:"id"`
	CustomerID      string    `db:"customer_id"`
	Status          string    `db:"status"`
	ShippingAddress []byte    `db:"shipping_address"`
	TotalCents      int64     `db:"total_cents"`
	Currency        string    `db:"currency"`
	TrackingNumber  string    `db:"tracking_number"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// OrderItemDal represents the order item data access layer model.
type OrderItemDal struct {
	OrderID    string `db:"order_id"`
	Position   int    `db:"position"`
	ProductID  string `db:"product_id"`
	Quantity   int    `db:"quantity"`
	PriceCents int64  `db:"price_cents"`
}

// ToModel converts OrderDal to the service layer Order model without items.
func (d *OrderDal) ToModel() (order.Order, error) {
	status, err := order.ParseStatus(d.Status)
	if err != nil {
		return order.Order{}, fmt.Errorf("order %s: %w", d.ID, err)
	}
	cur, err := currency.ParseCurrency(d.Currency)
	if err != nil {
		return order.Order{}, fmt.Errorf("order %s: %w", d.ID, err)
	}

	o := order.Order{
		ID:             d.ID,
		CustomerID:     d.CustomerID,
		Status:         status,
		TotalCents:     d.TotalCents,
		Currency:       cur,
		TrackingNumber: d.TrackingNumber,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	if len(d.ShippingAddress) > 0 {
		var addr address.Address
		if err := json.Unmarshal(d.ShippingAddress, &addr); err != nil {
			return order.Order{}, fmt.Errorf("failed to decode shipping address: %w", err)
		}
		o.ShippingAddress = &addr
	}

	return o, nil
}

func encodeAddress(addr *address.Address) ([]byte, error) {
	if addr == nil {
		return nil, nil
	}

	raw, err := json.Marshal(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to encode shipping address: %w", err)
	}

	return raw, nil
}

// OrderRepository is the Postgres order repository.
type OrderRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewOrderRepository creates a new Postgres order repository.
func NewOrderRepository(conn postgres.GenericConn) *OrderRepository {
	return &OrderRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Create inserts the order row and its line items. Callers run it inside a unit of work.
func (r *OrderRepository) Create(ctx context.Context, o order.Order) error {
	addr, err := encodeAddress(o.ShippingAddress)
	if err != nil {
		return err
	}

	query, args, err := r.sb.Insert("orders").
		Columns(orderColumns...).
		Values(
			o.ID,
			o.CustomerID,
			o.Status.String(),
			addr,
			o.TotalCents,
			o.Currency.String(),
			o.TrackingNumber,
			o.CreatedAt,
			o.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return errs.ErrCustomerNotFound
		}

		return fmt.Errorf("failed to insert order: %w", err)
	}

	if len(o.Items) == 0 {
		return nil
	}

	items := r.sb.Insert("order_items").
		Columns("order_id", "position", "product_id", "quantity", "price_cents")
	for i, it := range o.Items {
		items = items.Values(o.ID, i, it.ProductID, it.Quantity, it.PriceCents)
	}

	query, args, err = items.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert items query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert order items: %w", err)
	}

	return nil
}

// Get returns an order with its line items.
func (r *OrderRepository) Get(ctx context.Context, id string) (order.Order, error) {
	orders, err := r.queryOrders(ctx, r.sb.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"id": id}))
	if err != nil {
		return order.Order{}, err
	}
	if len(orders) == 0 {
		return order.Order{}, errs.ErrOrderNotFound
	}

	return orders[0], nil
}

func orderConditions(filter order.Filter) sq.And {
	cond := sq.And{}
	if filter.CustomerID != "" {
		cond = append(cond, sq.Eq{"customer_id": filter.CustomerID})
	}
	if filter.Status != "" {
		cond = append(cond, sq.Eq{"status": filter.Status.String()})
	}
	if filter.StartDate != nil {
		cond = append(cond, sq.GtOrEq{"created_at": *filter.StartDate})
	}
	if filter.EndDate != nil {
		cond = append(cond, sq.LtOrEq{"created_at": *filter.EndDate})
	}

	return cond
}

// List returns a filtered page of orders, newest first, and the total count.
func (r *OrderRepository) List(
	ctx context.Context,
	filter order.Filter,
	limit, offset int,
) ([]order.Order, int, error) {
	cond := orderConditions(filter)

	var total int
	countQuery, countArgs, err := r.sb.Select("COUNT(*)").From("orders").Where(cond).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}
	if err := r.conn.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	orders, err := r.queryOrders(ctx, r.sb.Select(orderColumns...).
		From("orders").
		Where(cond).
		OrderBy("created_at DESC", "id").
		Limit(uint64(limit)).
		Offset(uint64(offset)))
	if err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *OrderRepository) queryOrders(ctx context.Context, query sq.SelectBuilder) ([]order.Order, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]order.Order, 0)
	for rows.Next() {
		var d OrderDal
		if err := rows.Scan(
			&d.ID,
			&d.CustomerID,
			&d.Status,
			&d.ShippingAddress,
			&d.TotalCents,
			&d.Currency,
			&d.TrackingNumber,
			&d.CreatedAt,
			&d.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}

		o, err := d.ToModel()
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

func (r *OrderRepository) attachItems(ctx context.Context, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}

	query, args, err := r.sb.Select("order_id", "position", "product_id", "quantity", "price_cents").
		From("order_items").
		Where(sq.Eq{"order_id": ids}).
		OrderBy("order_id", "position").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build items query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	items := make(map[string][]order.Item, len(orders))
	for rows.Next() {
		var d OrderItemDal
		if err := rows.Scan(&d.OrderID, &d.Position, &d.ProductID, &d.Quantity, &d.PriceCents); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		items[d.OrderID] = append(items[d.OrderID], order.Item{
			ProductID:  d.ProductID,
			Quantity:   d.Quantity,
			PriceCents: d.PriceCents,
		})
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows iteration error: %w", err)
	}

	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}

	return nil
}

// UpdateStatus moves the order from one status to another if it is still in from.
func (r *OrderRepository) UpdateStatus(
	ctx context.Context,
	id string,
	from, to order.Status,
	at time.Time,
) (bool, error) {
	query, args, err := r.sb.Update("orders").
		Set("status", to.String()).
		Set("updated_at", at).
		Where(sq.Eq{"id": id, "status": from.String()}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update order status: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// UpdateShippingAddress replaces the address of a non-terminal order.
func (r *OrderRepository) UpdateShippingAddress(
	ctx context.Context,
	id string,
	addr address.Address,
	at time.Time,
) (bool, error) {
	raw, err := encodeAddress(&addr)
	if err != nil {
		return false, err
	}

	query, args, err := r.sb.Update("orders").
		Set("shipping_address", raw).
		Set("updated_at", at).
		Where(sq.Eq{"id": id}).
		Where(sq.NotEq{"status": []string{
			order.StatusDelivered.String(),
			order.StatusCancelled.String(),
		}}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update shipping address: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// PurchasedProductIDs returns the distinct products of a customer's non-cancelled orders.
func (r *OrderRepository) PurchasedProductIDs(ctx context.Context, customerID string) ([]string, error) {
	query, args, err := r.sb.Select("DISTINCT oi.product_id").
		From("order_items oi").
		Join("orders o ON o.id = oi.order_id").
		Where(sq.Eq{"o.customer_id": customerID}).
		Where(sq.NotEq{"o.status": order.StatusCancelled.String()}).
		OrderBy("oi.product_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchased products: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to collect purchased products: %w", err)
	}

	return ids, nil
}
