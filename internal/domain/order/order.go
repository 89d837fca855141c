// Package order models the persisted order graph: a Customer owns Orders,
// an Order owns its OrderItems and two Address records. The Order is the
// aggregate root; repositories persist or delete the whole graph in one
// transaction.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Order status values. Checkout always creates orders in StatusPending;
// later transitions happen outside this service.
const (
	StatusPending   = "pending"
	StatusShipped   = "shipped"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

// Sentinel errors for repository lookups.
var (
	ErrNotFound         = errors.New("order not found")
	ErrCustomerNotFound = errors.New("customer not found")
)

// Address is a plain value record referenced by an Order as its shipping or
// billing address. Addresses have no back-reference to the order.
type Address struct {
	ID      int64
	Street  string
	City    string
	State   string
	Country string
	ZipCode string
}

// Customer owns zero or more orders. Identity is a generated surrogate key;
// email carries a uniqueness constraint in the store.
type Customer struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
	Orders    []*Order
}

// AddOrder attaches o to the customer and sets the order's back-reference.
// This is the single place the Order→Customer pointer is assigned, so the
// two sides of the relation cannot drift.
func (c *Customer) AddOrder(o *Order) {
	if o == nil {
		return
	}
	c.Orders = append(c.Orders, o)
	o.Customer = c
}

// OrderItem is a cart line item owned by exactly one order.
type OrderItem struct {
	ID        int64
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
	Order     *Order
}

// Subtotal returns UnitPrice × Quantity.
func (i *OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is the aggregate root binding items and addresses into one
// transactional unit. TrackingNumber is an opaque random token returned to
// the customer, distinct from the numeric primary key.
type Order struct {
	ID              int64
	TrackingNumber  string
	TotalQuantity   int
	TotalPrice      decimal.Decimal
	Status          string
	Customer        *Customer
	ShippingAddress *Address
	BillingAddress  *Address
	Items           []*OrderItem
	DateCreated     time.Time
	DateUpdated     time.Time
}

// AddItem attaches item to the order and sets the item's back-reference.
func (o *Order) AddItem(item *OrderItem) {
	if item == nil {
		return
	}
	o.Items = append(o.Items, item)
	item.Order = o
}

// DeriveTotals recomputes TotalQuantity and TotalPrice from the attached
// items. Client-supplied totals are never trusted; this is the only source
// of the stored values.
func (o *Order) DeriveTotals() {
	qty := 0
	price := decimal.Zero
	for _, item := range o.Items {
		qty += item.Quantity
		price = price.Add(item.Subtotal())
	}
	o.TotalQuantity = qty
	o.TotalPrice = price.Round(2)
}

// Repository defines persistence operations for the order graph.
type Repository interface {
	// Save persists the full graph (customer, addresses, order, items) in a
	// single transaction, filling in generated IDs and timestamps. A partial
	// failure leaves no rows behind.
	Save(ctx context.Context, o *Order) error

	// GetByTrackingNumber reloads the full graph for one order.
	// Returns ErrNotFound when no order carries the given token.
	GetByTrackingNumber(ctx context.Context, trackingNumber string) (*Order, error)

	// Delete removes the order, its items, and its two addresses, but never
	// the owning customer. Returns ErrNotFound for an unknown id.
	Delete(ctx context.Context, id int64) error
}

// CustomerRepository provides customer lookups. Orders returned on the
// customer are summaries: items are not loaded.
type CustomerRepository interface {
	// GetByEmail returns the customer and their orders, newest first.
	// Returns ErrCustomerNotFound when the email is unknown.
	GetByEmail(ctx context.Context, email string) (*Customer, error)
}
