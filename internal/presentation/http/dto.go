package httppresentation

import (
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application/checkout"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/customer"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/invoice"
	domainOrder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	domainPayment "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/locale"
	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/money"
)

type createOrderRequest struct {
	Customer customer.Customer `json:"customer"`
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type checkoutRequest struct {
	Method domainPayment.MethodKind `json:"method"`
	Card   *domainPayment.Card      `json:"card,omitempty"`
}

// amountView shows a minor-unit amount three ways: raw, as a decimal in major
// units, and formatted for the configured locale.
type amountView struct {
	Minor    int64  `json:"minor"`
	Major    string `json:"major"`
	Display  string `json:"display"`
	Currency string `json:"currency"`
}

func newAmountView(minor int64, loc locale.Locale) amountView {
	return amountView{
		Minor:    minor,
		Major:    money.ToMajor(minor, loc.Currency).StringFixed(money.Scale(loc.Currency)),
		Display:  money.Format(minor, loc.Currency, loc.Tag),
		Currency: loc.CurrencyCode(),
	}
}

type productResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Category    catalog.Category `json:"category"`
	Price       amountView       `json:"price"`
	Active      bool             `json:"active"`
}

func newProductResponse(p catalog.Product, loc locale.Locale) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Price:       newAmountView(p.Price, loc),
		Active:      p.Active,
	}
}

type lineItemResponse struct {
	Product  productResponse `json:"product"`
	Quantity int             `json:"quantity"`
	Subtotal amountView      `json:"subtotal"`
}

type orderResponse struct {
	ID        string                  `json:"id"`
	Status    domainOrder.Status      `json:"status"`
	Customer  customer.Customer       `json:"customer"`
	Items     []lineItemResponse      `json:"items"`
	Total     amountView              `json:"total"`
	Payments  []domainPayment.Outcome `json:"payments"`
	Paid      bool                    `json:"paid"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
	ClosedAt  *time.Time              `json:"closed_at,omitempty"`
}

func newOrderResponse(o *domainOrder.PurchaseOrder, loc locale.Locale) orderResponse {
	items := o.Items()
	resp := orderResponse{
		ID:        o.ID,
		Status:    o.Status(),
		Customer:  o.Customer,
		Items:     make([]lineItemResponse, 0, len(items)),
		Total:     newAmountView(o.Total(), loc),
		Payments:  o.Payments(),
		Paid:      o.Paid(),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	for _, li := range items {
		resp.Items = append(resp.Items, lineItemResponse{
			Product:  newProductResponse(li.Product, loc),
			Quantity: li.Quantity,
			Subtotal: newAmountView(li.Subtotal(), loc),
		})
	}
	if at, ok := o.ClosedAt(); ok {
		resp.ClosedAt = &at
	}
	return resp
}

type invoiceResponse struct {
	ID              string                `json:"id"`
	OrderID         string                `json:"order_id"`
	Paid            bool                  `json:"paid"`
	Outcome         domainPayment.Outcome `json:"outcome"`
	BillingAddress  customer.Address      `json:"billing_address"`
	ShippingAddress customer.Address      `json:"shipping_address"`
	IssuedAt        time.Time             `json:"issued_at"`
	Order           orderResponse         `json:"order"`
}

func newInvoiceResponse(inv *invoice.Invoice, loc locale.Locale) invoiceResponse {
	return invoiceResponse{
		ID:              inv.ID(),
		OrderID:         inv.OrderID(),
		Paid:            inv.Paid(),
		Outcome:         inv.Outcome(),
		BillingAddress:  inv.BillingAddress(),
		ShippingAddress: inv.ShippingAddress(),
		IssuedAt:        inv.IssuedAt(),
		Order:           newOrderResponse(inv.Order(), loc),
	}
}

type checkoutResponse struct {
	OrderID   string                `json:"order_id"`
	Attempts  int                   `json:"attempts"`
	Outcome   domainPayment.Outcome `json:"outcome"`
	Retryable bool                  `json:"retryable"`
	InvoiceID string                `json:"invoice_id,omitempty"`
	Order     orderResponse         `json:"order"`
}

func newCheckoutResponse(res *checkout.Result, loc locale.Locale) checkoutResponse {
	resp := checkoutResponse{
		OrderID:   res.Order.ID,
		Attempts:  res.Attempts,
		Outcome:   res.Outcome,
		Retryable: res.Outcome.Retryable(),
		Order:     newOrderResponse(res.Order, loc),
	}
	if res.Invoice != nil {
		resp.InvoiceID = res.Invoice.ID()
	}
	return resp
}

type unsettledResponse struct {
	OrderID  string                  `json:"order_id"`
	Attempts []domainPayment.Outcome `json:"attempts"`
	// LastRetryable tells a dunning job whether charging again may succeed.
	LastRetryable bool `json:"last_retryable"`
}
