package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/shop/internal/dal/postgres"
	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/currency"
	"github.com/corray333/backend-labs/shop/internal/service/models/product"
	"github.com/jackc/pgx/v5"
)

var productColumns = []string{
	"id",
	"name",
	"description",
	"price_cents",
	"price_currency",
	"category",
	"inventory",
	"image_url",
	"created_at",
	"updated_at",
}

var returningProduct = "RETURNING " + strings.Join(productColumns, ", ")

// ProductDal represents the product data access layer model.
type ProductDal struct {
	ID            string    `db:"id"`
	Name          string    `db:"name"`
	Description   string    `db:"description"`
	PriceCents    int64     `db:"price_cents"`
	PriceCurrency string    `db:"price_currency"`
	Category      string    `db:"category"`
	Inventory     int       `db:"inventory"`
	ImageURL      string    `db:"image_url"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// ToModel converts ProductDal to the service layer Product model.
func (d *ProductDal) ToModel() (product.Product, error) {
	cur, err := currency.ParseCurrency(d.PriceCurrency)
	if err != nil {
		return product.Product{}, fmt.Errorf("product %s: %w", d.ID, err)
	}

	return product.Product{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		PriceCents:  d.PriceCents,
		Currency:    cur,
		Category:    d.Category,
		Inventory:   d.Inventory,
		ImageURL:    d.ImageURL,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

// ProductRepository is the Postgres product repository.
type ProductRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewProductRepository creates a new Postgres product repository.
func NewProductRepository(conn postgres.GenericConn) *ProductRepository {
	return &ProductRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func scanProduct(row pgx.Row) (product.Product, error) {
	var d ProductDal
	if err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Description,
		&d.PriceCents,
		&d.PriceCurrency,
		&d.Category,
		&d.Inventory,
		&d.ImageURL,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return product.Product{}, err
	}

	return d.ToModel()
}

func (r *ProductRepository) queryProducts(ctx context.Context, query sq.SelectBuilder) ([]product.Product, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	result := make([]product.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		result = append(result, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// Create inserts a new product.
func (r *ProductRepository) Create(ctx context.Context, p product.Product) error {
	query, args, err := r.sb.Insert("products").
		Columns(productColumns...).
		Values(
			p.ID,
			p.Name,
			p.Description,
			p.PriceCents,
			p.Currency.String(),
			p.Category,
			p.Inventory,
			p.ImageURL,
			p.CreatedAt,
			p.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}

	return nil
}

// Get returns a product by id.
func (r *ProductRepository) Get(ctx context.Context, id string) (product.Product, error) {
	query, args, err := r.sb.Select(productColumns...).
		From("products").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return product.Product{}, fmt.Errorf("failed to build select query: %w", err)
	}

	p, err := scanProduct(r.conn.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return product.Product{}, errs.ErrProductNotFound
	}
	if err != nil {
		return product.Product{}, fmt.Errorf("failed to get product: %w", err)
	}

	return p, nil
}

// GetMany returns the existing products among ids.
func (r *ProductRepository) GetMany(ctx context.Context, ids []string) ([]product.Product, error) {
	if len(ids) == 0 {
		return []product.Product{}, nil
	}

	return r.queryProducts(ctx, r.sb.Select(productColumns...).
		From("products").
		Where(sq.Eq{"id": ids}))
}

func productConditions(filter product.Filter) sq.And {
	cond := sq.And{}
	if filter.Category != "" {
		cond = append(cond, sq.Expr("LOWER(category) = LOWER(?)", filter.Category))
	}
	if filter.MinPriceCents != nil {
		cond = append(cond, sq.GtOrEq{"price_cents": *filter.MinPriceCents})
	}
	if filter.MaxPriceCents != nil {
		cond = append(cond, sq.LtOrEq{"price_cents": *filter.MaxPriceCents})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		cond = append(cond, sq.Or{
			sq.ILike{"name": pattern},
			sq.ILike{"description": pattern},
		})
	}

	return cond
}

// List returns a filtered page of products ordered by name and the total count.
func (r *ProductRepository) List(
	ctx context.Context,
	filter product.Filter,
	limit, offset int,
) ([]product.Product, int, error) {
	cond := productConditions(filter)

	var total int
	countQuery, countArgs, err := r.sb.Select("COUNT(*)").From("products").Where(cond).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}
	if err := r.conn.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	products, err := r.queryProducts(ctx, r.sb.Select(productColumns...).
		From("products").
		Where(cond).
		OrderBy("name", "id").
		Limit(uint64(limit)).
		Offset(uint64(offset)))
	if err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

// Update overwrites every column except inventory.
func (r *ProductRepository) Update(ctx context.Context, p product.Product) (product.Product, error) {
	query, args, err := r.sb.Update("products").
		Set("name", p.Name).
		Set("description", p.Description).
		Set("price_cents", p.PriceCents).
		Set("category", p.Category).
		Set("image_url", p.ImageURL).
		Set("updated_at", p.UpdatedAt).
		Where(sq.Eq{"id": p.ID}).
		Suffix(returningProduct).
		ToSql()
	if err != nil {
		return product.Product{}, fmt.Errorf("failed to build update query: %w", err)
	}

	updated, err := scanProduct(r.conn.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return product.Product{}, errs.ErrProductNotFound
	}
	if err != nil {
		return product.Product{}, fmt.Errorf("failed to update product: %w", err)
	}

	return updated, nil
}

// AdjustInventory adds delta to the stock in one conditional statement.
func (r *ProductRepository) AdjustInventory(
	ctx context.Context,
	id string,
	delta int,
) (product.Product, error) {
	query, args, err := r.sb.Update("products").
		Set("inventory", sq.Expr("inventory + ?", delta)).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": id}).
		Where(sq.Expr("inventory + ? >= 0", delta)).
		Suffix(returningProduct).
		ToSql()
	if err != nil {
		return product.Product{}, fmt.Errorf("failed to build inventory query: %w", err)
	}

	p, err := scanProduct(r.conn.QueryRow(ctx, query, args...))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return product.Product{}, fmt.Errorf("failed to adjust inventory: %w", err)
	}

	if _, err := r.Get(ctx, id); err != nil {
		return product.Product{}, err
	}

	return product.Product{}, errs.ErrInsufficientInventory
}

// Delete removes a product unless a non-cancelled order references it.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	query, args, err := r.sb.Delete("products").
		Where(sq.Eq{"id": id}).
		Where(sq.Expr(`NOT EXISTS (
			SELECT 1 FROM order_items oi
			JOIN orders o ON o.id = oi.order_id
			WHERE oi.product_id = ? AND o.status <> 'cancelled'
		)`, id)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	if _, err := r.Get(ctx, id); err != nil {
		return err
	}

	return errs.ErrProductInUse
}
