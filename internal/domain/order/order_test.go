package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddItem_SetsBackReference(t *testing.T) {
	o := &Order{}
	item := &OrderItem{ProductID: "p1", Quantity: 2}

	o.AddItem(item)

	require.Len(t, o.Items, 1)
	assert.Same(t, o, item.Order)
}

func TestAddItem_NilIgnored(t *testing.T) {
	o := &Order{}
	o.AddItem(nil)
	assert.Empty(t, o.Items)
}

func TestAddOrder_SetsBackReference(t *testing.T) {
	c := &Customer{Email: "jane@example.com"}
	o := &Order{}

	c.AddOrder(o)

	require.Len(t, c.Orders, 1)
	assert.Same(t, c, o.Customer)
}

func TestAddOrder_NilIgnored(t *testing.T) {
	c := &Customer{}
	c.AddOrder(nil)
	assert.Empty(t, c.Orders)
}

func TestDeriveTotals(t *testing.T) {
	o := &Order{}
	o.AddItem(&OrderItem{ProductID: "p1", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")})
	o.AddItem(&OrderItem{ProductID: "p2", Quantity: 1, UnitPrice: decimal.RequireFromString("5.00")})

	o.DeriveTotals()

	assert.Equal(t, 3, o.TotalQuantity)
	assert.True(t, decimal.RequireFromString("25.00").Equal(o.TotalPrice))
}

func TestDeriveTotals_NoItems(t *testing.T) {
	o := &Order{TotalQuantity: 99, TotalPrice: decimal.NewFromInt(99)}

	o.DeriveTotals()

	assert.Equal(t, 0, o.TotalQuantity)
	assert.True(t, decimal.Zero.Equal(o.TotalPrice))
}

func TestSubtotal(t *testing.T) {
	item := &OrderItem{Quantity: 3, UnitPrice: decimal.RequireFromString("2.50")}
	assert.True(t, decimal.RequireFromString("7.50").Equal(item.Subtotal()))
}
