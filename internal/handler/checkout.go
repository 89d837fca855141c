package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront-checkout/internal/domain/checkout"
	"github.com/xenking/storefront-checkout/internal/domain/order"
)

// --- Wire DTOs ---

type customerDTO struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

type addressDTO struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	ZipCode string `json:"zipCode"`
}

type lineItemDTO struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type purchaseRequest struct {
	Customer        customerDTO   `json:"customer"`
	ShippingAddress addressDTO    `json:"shippingAddress"`
	BillingAddress  addressDTO    `json:"billingAddress"`
	Items           []lineItemDTO `json:"items"`
}

type purchaseResponse struct {
	OrderTrackingNumber string `json:"orderTrackingNumber"`
}

type orderSummaryDTO struct {
	TrackingNumber string  `json:"trackingNumber"`
	TotalQuantity  int     `json:"totalQuantity"`
	TotalPrice     float64 `json:"totalPrice"`
	Status         string  `json:"status"`
	DateCreated    string  `json:"dateCreated"`
}

type orderDTO struct {
	orderSummaryDTO
	Customer        customerDTO   `json:"customer"`
	ShippingAddress addressDTO    `json:"shippingAddress"`
	BillingAddress  addressDTO    `json:"billingAddress"`
	Items           []lineItemDTO `json:"items"`
}

type orderHistoryResponse struct {
	Customer customerDTO       `json:"customer"`
	Orders   []orderSummaryDTO `json:"orders"`
}

// PlaceOrder handles POST /api/checkout/purchase: decodes the submission,
// delegates to the checkout service, and returns the order confirmation.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed purchase submission")
		return
	}

	items := make([]checkout.LineItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = checkout.LineItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}

	confirmation, err := h.checkout.PlaceOrder(r.Context(), checkout.PurchaseRequest{
		Customer: checkout.CustomerInfo{
			FirstName: req.Customer.FirstName,
			LastName:  req.Customer.LastName,
			Email:     req.Customer.Email,
		},
		ShippingAddress: toAddressInfo(req.ShippingAddress),
		BillingAddress:  toAddressInfo(req.BillingAddress),
		Items:           items,
	})
	if err != nil {
		writeCheckoutError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, purchaseResponse{
		OrderTrackingNumber: confirmation.OrderTrackingNumber,
	})
}

// TrackOrder handles GET /api/orders/{trackingNumber}.
func (h *Handler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	trackingNumber := r.PathValue("trackingNumber")

	o, err := h.checkout.TrackOrder(r.Context(), trackingNumber)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "order not found")
			return
		}
		zctx.From(r.Context()).Error("track order", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, r, http.StatusOK, toOrderDTO(o))
}

// OrderHistory handles GET /api/orders?email=...
func (h *Handler) OrderHistory(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, r, http.StatusBadRequest, "email query parameter required")
		return
	}

	cust, err := h.checkout.OrderHistory(r.Context(), email)
	if err != nil {
		if errors.Is(err, order.ErrCustomerNotFound) {
			writeError(w, r, http.StatusNotFound, "customer not found")
			return
		}
		zctx.From(r.Context()).Error("order history", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	summaries := make([]orderSummaryDTO, len(cust.Orders))
	for i, o := range cust.Orders {
		summaries[i] = toOrderSummaryDTO(o)
	}
	writeJSON(w, r, http.StatusOK, orderHistoryResponse{
		Customer: customerDTO{
			FirstName: cust.FirstName,
			LastName:  cust.LastName,
			Email:     cust.Email,
		},
		Orders: summaries,
	})
}

// writeCheckoutError maps checkout domain errors to HTTP responses. Missing
// fields and empty carts are plain bad requests; item-level violations are
// unprocessable entities, matching how the rest of the API distinguishes
// shape errors from semantic ones.
func writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		missingErr  *checkout.MissingFieldError
		quantityErr *checkout.InvalidQuantityError
		priceErr    *checkout.InvalidUnitPriceError
	)
	switch {
	case errors.Is(err, checkout.ErrEmptyItems):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.As(err, &missingErr):
		writeError(w, r, http.StatusBadRequest, missingErr.Error())
	case errors.As(err, &quantityErr):
		writeError(w, r, http.StatusUnprocessableEntity, quantityErr.Error())
	case errors.As(err, &priceErr):
		writeError(w, r, http.StatusUnprocessableEntity, priceErr.Error())
	default:
		zctx.From(r.Context()).Error("place order", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "order was not placed")
	}
}

func toAddressInfo(a addressDTO) checkout.AddressInfo {
	return checkout.AddressInfo{
		Street:  a.Street,
		City:    a.City,
		State:   a.State,
		Country: a.Country,
		ZipCode: a.ZipCode,
	}
}

func toOrderSummaryDTO(o *order.Order) orderSummaryDTO {
	return orderSummaryDTO{
		TrackingNumber: o.TrackingNumber,
		TotalQuantity:  o.TotalQuantity,
		TotalPrice:     o.TotalPrice.InexactFloat64(),
		Status:         o.Status,
		DateCreated:    o.DateCreated.Format(time.RFC3339),
	}
}

func toOrderDTO(o *order.Order) orderDTO {
	items := make([]lineItemDTO, len(o.Items))
	for i, item := range o.Items {
		items[i] = lineItemDTO{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}

	dto := orderDTO{
		orderSummaryDTO: toOrderSummaryDTO(o),
		Items:           items,
	}
	if o.Customer != nil {
		dto.Customer = customerDTO{
			FirstName: o.Customer.FirstName,
			LastName:  o.Customer.LastName,
			Email:     o.Customer.Email,
		}
	}
	if o.ShippingAddress != nil {
		dto.ShippingAddress = toAddressDTO(o.ShippingAddress)
	}
	if o.BillingAddress != nil {
		dto.BillingAddress = toAddressDTO(o.BillingAddress)
	}
	return dto
}

func toAddressDTO(a *order.Address) addressDTO {
	return addressDTO{
		Street:  a.Street,
		City:    a.City,
		State:   a.State,
		Country: a.Country,
		ZipCode: a.ZipCode,
	}
}
