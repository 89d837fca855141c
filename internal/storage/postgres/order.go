package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-checkout/internal/domain/order"
)

const (
	upsertCustomerSQL = `INSERT INTO customers (first_name, last_name, email)
		VALUES ($1, $2, $3)
		ON CONFLICT ON CONSTRAINT customers_email_key
		DO UPDATE SET first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name
		RETURNING id`

	insertAddressSQL = `INSERT INTO addresses (street, city, state, country, zip_code)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	insertOrderSQL = `INSERT INTO orders (tracking_number, total_quantity, total_price, status,
			customer_id, shipping_address_id, billing_address_id, date_created, date_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	insertOrderItemSQL = `INSERT INTO order_items (order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	getOrderSQL = `SELECT o.id, o.tracking_number, o.total_quantity, o.total_price, o.status,
			o.date_created, o.date_updated,
			c.id, c.first_name, c.last_name, c.email,
			s.id, s.street, s.city, s.state, s.country, s.zip_code,
			b.id, b.street, b.city, b.state, b.country, b.zip_code
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		JOIN addresses s ON s.id = o.shipping_address_id
		JOIN addresses b ON b.id = o.billing_address_id
		WHERE o.tracking_number = $1`

	getOrderItemsSQL = `SELECT id, product_id, quantity, unit_price
		FROM order_items WHERE order_id = $1 ORDER BY id`

	getOrderAddressIDsSQL = `SELECT shipping_address_id, billing_address_id
		FROM orders WHERE id = $1`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`

	deleteAddressesSQL = `DELETE FROM addresses WHERE id = ANY($1::bigint[])`
)

// saveAttempts bounds the retry loop for tracking-number collisions. A
// collision on a 16-character random token is already vanishingly rare; two
// in a row mean something else is wrong.
const saveAttempts = 3

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Save persists the whole order graph in one transaction: customer (upserted
// on email), both addresses, the order row, and all items. When the insert
// hits the tracking-number unique constraint, the transaction is retried
// with a freshly generated token.
func (r *OrderRepository) Save(ctx context.Context, o *order.Order) error {
	var lastErr error
	for attempt := 0; attempt < saveAttempts; attempt++ {
		err := r.saveGraph(ctx, o)
		if err == nil {
			return nil
		}
		if !isTrackingConflict(err) {
			return err
		}

		lastErr = err
		trackingNumber, genErr := order.NewTrackingNumber()
		if genErr != nil {
			return errors.Wrap(genErr, "regenerate tracking number")
		}
		o.TrackingNumber = trackingNumber
	}
	return fmt.Errorf("saving order: tracking number still conflicting after %d attempts: %w", saveAttempts, lastErr)
}

func (r *OrderRepository) saveGraph(ctx context.Context, o *order.Order) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if o.Customer == nil {
			return errors.New("order has no customer")
		}
		if o.ShippingAddress == nil || o.BillingAddress == nil {
			return errors.New("order is missing an address")
		}

		err := tx.QueryRow(ctx, upsertCustomerSQL,
			o.Customer.FirstName, o.Customer.LastName, o.Customer.Email,
		).Scan(&o.Customer.ID)
		if err != nil {
			return fmt.Errorf("upserting customer %q: %w", o.Customer.Email, err)
		}

		if err := insertAddress(ctx, tx, o.ShippingAddress); err != nil {
			return fmt.Errorf("inserting shipping address: %w", err)
		}
		if err := insertAddress(ctx, tx, o.BillingAddress); err != nil {
			return fmt.Errorf("inserting billing address: %w", err)
		}

		// Timestamps are set here, not by a trigger, so the Go side is the
		// single source of truth for both columns.
		now := time.Now().UTC()
		o.DateCreated = now
		o.DateUpdated = now

		err = tx.QueryRow(ctx, insertOrderSQL,
			o.TrackingNumber, o.TotalQuantity, o.TotalPrice, o.Status,
			o.Customer.ID, o.ShippingAddress.ID, o.BillingAddress.ID,
			o.DateCreated, o.DateUpdated,
		).Scan(&o.ID)
		if err != nil {
			return fmt.Errorf("inserting order %q: %w", o.TrackingNumber, err)
		}

		for _, item := range o.Items {
			err := tx.QueryRow(ctx, insertOrderItemSQL,
				o.ID, item.ProductID, item.Quantity, item.UnitPrice,
			).Scan(&item.ID)
			if err != nil {
				return fmt.Errorf("inserting order item %q: %w", item.ProductID, err)
			}
		}
		return nil
	})
}

func insertAddress(ctx context.Context, tx pgx.Tx, a *order.Address) error {
	return tx.QueryRow(ctx, insertAddressSQL,
		a.Street, a.City, a.State, a.Country, a.ZipCode,
	).Scan(&a.ID)
}

// GetByTrackingNumber reloads the full order graph, re-establishing the
// bidirectional links via the aggregate helpers.
func (r *OrderRepository) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*order.Order, error) {
	o := &order.Order{
		Customer:        &order.Customer{},
		ShippingAddress: &order.Address{},
		BillingAddress:  &order.Address{},
	}
	cust := o.Customer
	s, b := o.ShippingAddress, o.BillingAddress

	err := r.pool.QueryRow(ctx, getOrderSQL, trackingNumber).Scan(
		&o.ID, &o.TrackingNumber, &o.TotalQuantity, &o.TotalPrice, &o.Status,
		&o.DateCreated, &o.DateUpdated,
		&cust.ID, &cust.FirstName, &cust.LastName, &cust.Email,
		&s.ID, &s.Street, &s.City, &s.State, &s.Country, &s.ZipCode,
		&b.ID, &b.Street, &b.City, &b.State, &b.Country, &b.ZipCode,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", trackingNumber, err)
	}

	// Rebuild both directions of the Customer↔Order link.
	o.Customer = nil
	cust.AddOrder(o)

	rows, err := r.pool.Query(ctx, getOrderItemsSQL, o.ID)
	if err != nil {
		return nil, fmt.Errorf("getting items for order %q: %w", trackingNumber, err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*order.OrderItem, error) {
		item := &order.OrderItem{}
		err := row.Scan(&item.ID, &item.ProductID, &item.Quantity, &item.UnitPrice)
		return item, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning items for order %q: %w", trackingNumber, err)
	}
	for _, item := range items {
		o.AddItem(item)
	}

	return o, nil
}

// Delete removes the order row, its items (FK cascade), and its two address
// rows in one transaction. The owning customer is left untouched.
func (r *OrderRepository) Delete(ctx context.Context, id int64) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var shippingID, billingID int64
		err := tx.QueryRow(ctx, getOrderAddressIDsSQL, id).Scan(&shippingID, &billingID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return order.ErrNotFound
			}
			return fmt.Errorf("getting addresses for order %d: %w", id, err)
		}

		if _, err := tx.Exec(ctx, deleteOrderSQL, id); err != nil {
			return fmt.Errorf("deleting order %d: %w", id, err)
		}
		if _, err := tx.Exec(ctx, deleteAddressesSQL, []int64{shippingID, billingID}); err != nil {
			return fmt.Errorf("deleting addresses for order %d: %w", id, err)
		}
		return nil
	})
}

// isTrackingConflict reports whether err is a unique violation on the
// orders.tracking_number constraint.
func isTrackingConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == "23505" &&
		pgErr.ConstraintName == "orders_tracking_number_key"
}
