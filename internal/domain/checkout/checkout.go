// Package checkout implements the purchase flow: validate a submission,
// build the bidirectional order graph, derive totals, assign a tracking
// token, and persist everything atomically.
package checkout

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for purchase validation.
var ErrEmptyItems = errors.New("items required")

// MissingFieldError indicates a required submission field is absent.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %s", e.Field)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// InvalidUnitPriceError indicates a line item has a negative unit price.
type InvalidUnitPriceError struct {
	ProductID string
}

func (e *InvalidUnitPriceError) Error() string {
	return fmt.Sprintf("unit price must not be negative for product %s", e.ProductID)
}

// CustomerInfo holds the submitted customer fields.
type CustomerInfo struct {
	FirstName string
	LastName  string
	Email     string
}

// AddressInfo holds one submitted address.
type AddressInfo struct {
	Street  string
	City    string
	State   string
	Country string
	ZipCode string
}

// LineItem is one cart entry of the submission.
type LineItem struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// PurchaseRequest is a structured purchase submission.
type PurchaseRequest struct {
	Customer        CustomerInfo
	ShippingAddress AddressInfo
	BillingAddress  AddressInfo
	Items           []LineItem
}

// Confirmation is returned to the caller after a successful checkout.
type Confirmation struct {
	OrderTrackingNumber string
}

// Validate rejects malformed submissions before any persistence attempt.
func (r *PurchaseRequest) Validate() error {
	switch {
	case r.Customer.FirstName == "":
		return &MissingFieldError{Field: "customer.firstName"}
	case r.Customer.LastName == "":
		return &MissingFieldError{Field: "customer.lastName"}
	case r.Customer.Email == "":
		return &MissingFieldError{Field: "customer.email"}
	}

	if err := r.ShippingAddress.validate("shippingAddress"); err != nil {
		return err
	}
	if err := r.BillingAddress.validate("billingAddress"); err != nil {
		return err
	}

	if len(r.Items) == 0 {
		return ErrEmptyItems
	}
	for _, item := range r.Items {
		if item.ProductID == "" {
			return &MissingFieldError{Field: "items.productId"}
		}
		if item.Quantity <= 0 {
			return &InvalidQuantityError{ProductID: item.ProductID}
		}
		if item.UnitPrice.IsNegative() {
			return &InvalidUnitPriceError{ProductID: item.ProductID}
		}
	}
	return nil
}

func (a *AddressInfo) validate(prefix string) error {
	fields := []struct {
		name  string
		value string
	}{
		{"street", a.Street},
		{"city", a.City},
		{"state", a.State},
		{"country", a.Country},
		{"zipCode", a.ZipCode},
	}
	for _, f := range fields {
		if f.value == "" {
			return &MissingFieldError{Field: prefix + "." + f.name}
		}
	}
	return nil
}
