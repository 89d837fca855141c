package checkout

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront-checkout/internal/domain/order"
)

// Service encapsulates the checkout business logic.
type Service struct {
	orders    order.Repository
	customers order.CustomerRepository
}

// NewService creates a checkout Service with the required repositories.
func NewService(orders order.Repository, customers order.CustomerRepository) *Service {
	return &Service{
		orders:    orders,
		customers: customers,
	}
}

// PlaceOrder validates the submission, reconstructs the customer/order/item/
// address graph with consistent back-references, derives totals from the
// submitted items, generates a tracking token, and persists the graph in one
// transaction. On any failure nothing is committed.
func (s *Service) PlaceOrder(ctx context.Context, req PurchaseRequest) (*Confirmation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cust := &order.Customer{
		FirstName: req.Customer.FirstName,
		LastName:  req.Customer.LastName,
		Email:     req.Customer.Email,
	}

	o := &order.Order{
		Status: order.StatusPending,
		ShippingAddress: &order.Address{
			Street:  req.ShippingAddress.Street,
			City:    req.ShippingAddress.City,
			State:   req.ShippingAddress.State,
			Country: req.ShippingAddress.Country,
			ZipCode: req.ShippingAddress.ZipCode,
		},
		BillingAddress: &order.Address{
			Street:  req.BillingAddress.Street,
			City:    req.BillingAddress.City,
			State:   req.BillingAddress.State,
			Country: req.BillingAddress.Country,
			ZipCode: req.BillingAddress.ZipCode,
		},
	}

	for _, li := range req.Items {
		o.AddItem(&order.OrderItem{
			ProductID: li.ProductID,
			Quantity:  li.Quantity,
			UnitPrice: li.UnitPrice,
		})
	}
	o.DeriveTotals()
	cust.AddOrder(o)

	trackingNumber, err := order.NewTrackingNumber()
	if err != nil {
		return nil, errors.Wrap(err, "generate tracking number")
	}
	o.TrackingNumber = trackingNumber

	if err := s.orders.Save(ctx, o); err != nil {
		return nil, errors.Wrap(err, "save order")
	}

	return &Confirmation{OrderTrackingNumber: o.TrackingNumber}, nil
}

// TrackOrder returns the full order graph for a tracking token.
func (s *Service) TrackOrder(ctx context.Context, trackingNumber string) (*order.Order, error) {
	o, err := s.orders.GetByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "get order %q", trackingNumber)
	}
	return o, nil
}

// OrderHistory returns the customer and their order summaries, newest first.
func (s *Service) OrderHistory(ctx context.Context, email string) (*order.Customer, error) {
	cust, err := s.customers.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, order.ErrCustomerNotFound) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "get customer %q", email)
	}
	return cust, nil
}
