package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-checkout/internal/domain/order"
)

const (
	getCustomerByEmailSQL = `SELECT id, first_name, last_name, email
		FROM customers WHERE email = $1`

	listCustomerOrdersSQL = `SELECT id, tracking_number, total_quantity, total_price, status,
			date_created, date_updated
		FROM orders WHERE customer_id = $1 ORDER BY date_created DESC, id DESC`
)

var _ order.CustomerRepository = (*CustomerRepository)(nil)

// CustomerRepository implements order.CustomerRepository backed by PostgreSQL.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// GetByEmail returns the customer and their order summaries, newest first.
// Items and addresses are not loaded; use OrderRepository.GetByTrackingNumber
// for the full graph.
func (r *CustomerRepository) GetByEmail(ctx context.Context, email string) (*order.Customer, error) {
	cust := &order.Customer{}
	err := r.pool.QueryRow(ctx, getCustomerByEmailSQL, email).Scan(
		&cust.ID, &cust.FirstName, &cust.LastName, &cust.Email,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("getting customer %q: %w", email, err)
	}

	rows, err := r.pool.Query(ctx, listCustomerOrdersSQL, cust.ID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for customer %q: %w", email, err)
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*order.Order, error) {
		o := &order.Order{}
		err := row.Scan(&o.ID, &o.TrackingNumber, &o.TotalQuantity, &o.TotalPrice, &o.Status,
			&o.DateCreated, &o.DateUpdated)
		return o, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning orders for customer %q: %w", email, err)
	}
	for _, o := range orders {
		cust.AddOrder(o)
	}

	return cust, nil
}
