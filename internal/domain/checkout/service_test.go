package checkout

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-checkout/internal/domain/order"
)

// --- Mock implementations ---

type mockOrderRepo struct {
	lastOrder *order.Order
	saveCalls int
	saveErr   error
	getOrder  *order.Order
	getErr    error
}

func (m *mockOrderRepo) Save(_ context.Context, o *order.Order) error {
	m.saveCalls++
	m.lastOrder = o
	return m.saveErr
}

func (m *mockOrderRepo) GetByTrackingNumber(_ context.Context, _ string) (*order.Order, error) {
	return m.getOrder, m.getErr
}

func (m *mockOrderRepo) Delete(_ context.Context, _ int64) error {
	return nil
}

type mockCustomerRepo struct {
	customer *order.Customer
	err      error
}

func (m *mockCustomerRepo) GetByEmail(_ context.Context, _ string) (*order.Customer, error) {
	return m.customer, m.err
}

// --- Helpers ---

func validRequest() PurchaseRequest {
	return PurchaseRequest{
		Customer: CustomerInfo{
			FirstName: "Jane",
			LastName:  "Doe",
			Email:     "jane@example.com",
		},
		ShippingAddress: AddressInfo{
			Street:  "1 Main St",
			City:    "Springfield",
			State:   "IL",
			Country: "US",
			ZipCode: "62701",
		},
		BillingAddress: AddressInfo{
			Street:  "2 Oak Ave",
			City:    "Springfield",
			State:   "IL",
			Country: "US",
			ZipCode: "62702",
		},
		Items: []LineItem{
			{ProductID: "p1", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
			{ProductID: "p2", Quantity: 1, UnitPrice: decimal.RequireFromString("5.00")},
		},
	}
}

// --- Tests ---

func TestPlaceOrder_DerivesTotals(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := NewService(repo, &mockCustomerRepo{})

	confirmation, err := svc.PlaceOrder(context.Background(), validRequest())

	require.NoError(t, err)
	require.NotNil(t, repo.lastOrder)
	assert.Equal(t, 3, repo.lastOrder.TotalQuantity)
	assert.True(t, decimal.RequireFromString("25.00").Equal(repo.lastOrder.TotalPrice))
	assert.Equal(t, repo.lastOrder.TrackingNumber, confirmation.OrderTrackingNumber)
}

func TestPlaceOrder_TrackingNumberShape(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := NewService(repo, &mockCustomerRepo{})

	confirmation, err := svc.PlaceOrder(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Len(t, confirmation.OrderTrackingNumber, order.TrackingNumberLength)
}

func TestPlaceOrder_DistinctTrackingNumbers(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := NewService(repo, &mockCustomerRepo{})

	first, err := svc.PlaceOrder(context.Background(), validRequest())
	require.NoError(t, err)
	second, err := svc.PlaceOrder(context.Background(), validRequest())
	require.NoError(t, err)

	assert.NotEqual(t, first.OrderTrackingNumber, second.OrderTrackingNumber)
}

func TestPlaceOrder_BidirectionalGraph(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := NewService(repo, &mockCustomerRepo{})

	_, err := svc.PlaceOrder(context.Background(), validRequest())
	require.NoError(t, err)

	o := repo.lastOrder
	require.NotNil(t, o.Customer)
	require.Len(t, o.Customer.Orders, 1)
	assert.Same(t, o, o.Customer.Orders[0])

	require.Len(t, o.Items, 2)
	for _, item := range o.Items {
		assert.Same(t, o, item.Order)
	}

	require.NotNil(t, o.ShippingAddress)
	require.NotNil(t, o.BillingAddress)
	assert.Equal(t, "1 Main St", o.ShippingAddress.Street)
	assert.Equal(t, "2 Oak Ave", o.BillingAddress.Street)
}

func TestPlaceOrder_InitialStatus(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := NewService(repo, &mockCustomerRepo{})

	_, err := svc.PlaceOrder(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, repo.lastOrder.Status)
}

func TestPlaceOrder_EmptyItems(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := NewService(repo, &mockCustomerRepo{})

	req := validRequest()
	req.Items = nil

	_, err := svc.PlaceOrder(context.Background(), req)
	require.ErrorIs(t, err, ErrEmptyItems)
	assert.Zero(t, repo.saveCalls, "nothing may be persisted for an invalid submission")
}

func TestPlaceOrder_InvalidQuantity(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := NewService(repo, &mockCustomerRepo{})

	req := validRequest()
	req.Items[1].Quantity = 0

	_, err := svc.PlaceOrder(context.Background(), req)

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Equal(t, "p2", iqErr.ProductID)
	assert.Zero(t, repo.saveCalls)
}

func TestPlaceOrder_NegativeUnitPrice(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := NewService(repo, &mockCustomerRepo{})

	req := validRequest()
	req.Items[0].UnitPrice = decimal.RequireFromString("-1.00")

	_, err := svc.PlaceOrder(context.Background(), req)

	var priceErr *InvalidUnitPriceError
	require.ErrorAs(t, err, &priceErr)
	assert.Equal(t, "p1", priceErr.ProductID)
	assert.Zero(t, repo.saveCalls)
}

func TestPlaceOrder_MissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PurchaseRequest)
		field  string
	}{
		{"first name", func(r *PurchaseRequest) { r.Customer.FirstName = "" }, "customer.firstName"},
		{"email", func(r *PurchaseRequest) { r.Customer.Email = "" }, "customer.email"},
		{"shipping city", func(r *PurchaseRequest) { r.ShippingAddress.City = "" }, "shippingAddress.city"},
		{"billing zip", func(r *PurchaseRequest) { r.BillingAddress.ZipCode = "" }, "billingAddress.zipCode"},
		{"product id", func(r *PurchaseRequest) { r.Items[0].ProductID = "" }, "items.productId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockOrderRepo{}
			svc := NewService(repo, &mockCustomerRepo{})

			req := validRequest()
			tt.mutate(&req)

			_, err := svc.PlaceOrder(context.Background(), req)

			var missingErr *MissingFieldError
			require.ErrorAs(t, err, &missingErr)
			assert.Equal(t, tt.field, missingErr.Field)
			assert.Zero(t, repo.saveCalls)
		})
	}
}

func TestPlaceOrder_SaveError(t *testing.T) {
	repo := &mockOrderRepo{saveErr: errors.New("db write failed")}
	svc := NewService(repo, &mockCustomerRepo{})

	_, err := svc.PlaceOrder(context.Background(), validRequest())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "save order")
}

func TestTrackOrder_NotFound(t *testing.T) {
	repo := &mockOrderRepo{getErr: order.ErrNotFound}
	svc := NewService(repo, &mockCustomerRepo{})

	_, err := svc.TrackOrder(context.Background(), "UNKNOWN")
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestOrderHistory_NotFound(t *testing.T) {
	svc := NewService(&mockOrderRepo{}, &mockCustomerRepo{err: order.ErrCustomerNotFound})

	_, err := svc.OrderHistory(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, order.ErrCustomerNotFound)
}
