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
	"github.com/corray333/backend-labs/shop/internal/service/models/customer"
	"github.com/jackc/pgx/v5"
)

var customerColumns = []string{
	"id",
	"name",
	"email",
	"phone",
	"address",
	"created_at",
	"updated_at",
}

// CustomerDal represents the customer data access layer model.
type CustomerDal struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Phone     string    `db:"phone"`
	Address   []byte    `db:"address"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ToModel converts CustomerDal to the service layer Customer model.
func (d *CustomerDal) ToModel() (customer.Customer, error) {
	c := customer.Customer{
		ID:        d.ID,
		Name:      d.Name,
		Email:     d.Email,
		Phone:     d.Phone,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if len(d.Address) > 0 {
		var addr address.Address
		if err := json.Unmarshal(d.Address, &addr); err != nil {
			return customer.Customer{}, fmt.Errorf("failed to decode customer address: %w", err)
		}
		c.Address = &addr
	}

	return c, nil
}

// CustomerDalFromModel converts the service layer Customer model to CustomerDal.
func CustomerDalFromModel(c customer.Customer) (*CustomerDal, error) {
	d := &CustomerDal{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if c.Address != nil {
		raw, err := json.Marshal(c.Address)
		if err != nil {
			return nil, fmt.Errorf("failed to encode customer address: %w", err)
		}
		d.Address = raw
	}

	return d, nil
}

// CustomerRepository is the Postgres customer repository.
type CustomerRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewCustomerRepository creates a new Postgres customer repository.
func NewCustomerRepository(conn postgres.GenericConn) *CustomerRepository {
	return &CustomerRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func scanCustomer(row pgx.Row) (customer.Customer, error) {
	var d CustomerDal
	if err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Email,
		&d.Phone,
		&d.Address,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return customer.Customer{}, err
	}

	return d.ToModel()
}

// Create inserts a new customer.
func (r *CustomerRepository) Create(ctx context.Context, c customer.Customer) error {
	d, err := CustomerDalFromModel(c)
	if err != nil {
		return err
	}

	query, args, err := r.sb.Insert("customers").
		Columns(customerColumns...).
		Values(d.ID, d.Name, d.Email, d.Phone, d.Address, d.CreatedAt, d.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		if postgres.IsUniqueViolation(err) {
			return errs.ErrDuplicateEmail
		}

		return fmt.Errorf("failed to insert customer: %w", err)
	}

	return nil
}

// Get returns a customer by id.
func (r *CustomerRepository) Get(ctx context.Context, id string) (customer.Customer, error) {
	query, args, err := r.sb.Select(customerColumns...).
		From("customers").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return customer.Customer{}, fmt.Errorf("failed to build select query: %w", err)
	}

	c, err := scanCustomer(r.conn.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return customer.Customer{}, errs.ErrCustomerNotFound
	}
	if err != nil {
		return customer.Customer{}, fmt.Errorf("failed to get customer: %w", err)
	}

	return c, nil
}

// GetMany returns the existing customers among ids.
func (r *CustomerRepository) GetMany(ctx context.Context, ids []string) ([]customer.Customer, error) {
	if len(ids) == 0 {
		return []customer.Customer{}, nil
	}

	query, args, err := r.sb.Select(customerColumns...).
		From("customers").
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	result := make([]customer.Customer, 0, len(ids))
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		result = append(result, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// List returns a page of customers, newest first, and the total count.
func (r *CustomerRepository) List(ctx context.Context, limit, offset int) ([]customer.Customer, int, error) {
	var total int
	countQuery, countArgs, err := r.sb.Select("COUNT(*)").From("customers").ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}
	if err := r.conn.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count customers: %w", err)
	}

	query, args, err := r.sb.Select(customerColumns...).
		From("customers").
		OrderBy("created_at DESC", "id").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	result := make([]customer.Customer, 0, limit)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan customer: %w", err)
		}
		result = append(result, c)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, total, nil
}

// Update overwrites the mutable fields of a customer.
func (r *CustomerRepository) Update(ctx context.Context, c customer.Customer) error {
	d, err := CustomerDalFromModel(c)
	if err != nil {
		return err
	}

	query, args, err := r.sb.Update("customers").
		Set("name", d.Name).
		Set("email", d.Email).
		Set("phone", d.Phone).
		Set("address", d.Address).
		Set("updated_at", d.UpdatedAt).
		Where(sq.Eq{"id": d.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return errs.ErrDuplicateEmail
		}

		return fmt.Errorf("failed to update customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrCustomerNotFound
	}

	return nil
}

// Delete removes a customer unless an order references it.
func (r *CustomerRepository) Delete(ctx context.Context, id string) error {
	query, args, err := r.sb.Delete("customers").
		Where(sq.Eq{"id": id}).
		Where(sq.Expr("NOT EXISTS (SELECT 1 FROM orders WHERE customer_id = ?)", id)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return errs.ErrCustomerHasOrders
		}

		return fmt.Errorf("failed to delete customer: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	if _, err := r.Get(ctx, id); err != nil {
		return err
	}

	return errs.ErrCustomerHasOrders
}
