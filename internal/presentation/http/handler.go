package httppresentation

import (
	"context"
	"net/http"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/Zhima-Mochi/minishop-checkout/internal/application/checkout"
	appInvoice "github.com/Zhima-Mochi/minishop-checkout/internal/application/invoice"
	appOrder "github.com/Zhima-Mochi/minishop-checkout/internal/application/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	domainPayment "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/locale"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
)

// ProductLister is the read side of the catalog the API exposes.
type ProductLister interface {
	List(ctx context.Context) ([]catalog.Product, error)
}

// PaymentLedger is the read side of the payment attempt history.
type PaymentLedger interface {
	Unsettled() []string
	Attempts(orderID string) []domainPayment.Outcome
}

type Services struct {
	Orders   *appOrder.Service
	Checkout application.UseCase[checkout.Input, *checkout.Result]
	Methods  *checkout.Methods
	Invoices *appInvoice.Service
	Products ProductLister
	Ledger   PaymentLedger
}

type Handler struct {
	svc    Services
	locale locale.Locale
	log    observability.Logger

	reqCounter   observability.Counter   // http_requests_total{method,route,status}
	durHistogram observability.Histogram // http_request_duration_seconds{method,route,status}
}

func NewHandler(svc Services, loc locale.Locale, tel observability.Observability) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Handler{
		svc:          svc,
		locale:       loc,
		log:          tel.Logger().With(observability.F("component", componentHTTPHandler)),
		reqCounter:   tel.Metrics().Counter(observability.MHTTPRequests),
		durHistogram: tel.Metrics().Histogram(observability.MHTTPRequestDuration),
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	h.muxHandle(mux, "GET /health", h.handleHealth)
	h.muxHandle(mux, "GET /products", h.handleListProducts)
	h.muxHandle(mux, "POST /orders", h.handleCreateOrder)
	h.muxHandle(mux, "GET /orders/{id}", h.handleGetOrder)
	h.muxHandle(mux, "POST /orders/{id}/items", h.handleAddItem)
	h.muxHandle(mux, "DELETE /orders/{id}/items/{productID}", h.handleRemoveItem)
	h.muxHandle(mux, "POST /orders/{id}/close", h.handleCloseOrder)
	h.muxHandle(mux, "POST /orders/{id}/checkout", h.handleCheckout)
	h.muxHandle(mux, "GET /orders/{id}/invoices", h.handleOrderInvoices)
	h.muxHandle(mux, "GET /invoices/{id}", h.handleGetInvoice)
	h.muxHandle(mux, "GET /payments/unsettled", h.handleUnsettled)

	return mux
}

func (h *Handler) muxHandle(mux *http.ServeMux, pattern string, handler http.HandlerFunc) {
	mux.Handle(pattern, h.instrument(pattern, handler))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.Products.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, newProductResponse(p, h.locale))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	o, err := h.svc.Orders.Create(r.Context(), appOrder.CreateInput{Customer: req.Customer})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Location", "/orders/"+o.ID)
	writeJSON(w, http.StatusCreated, newOrderResponse(o, h.locale))
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.Orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(o, h.locale))
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	o, err := h.svc.Orders.AddItem(r.Context(), appOrder.AddItemInput{
		OrderID:   r.PathValue("id"),
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(o, h.locale))
}

func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.Orders.RemoveItem(r.Context(), appOrder.RemoveItemInput{
		OrderID:   r.PathValue("id"),
		ProductID: r.PathValue("productID"),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(o, h.locale))
}

func (h *Handler) handleCloseOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.Orders.Close(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(o, h.locale))
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	method, err := h.paymentMethod(req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	res, err := h.svc.Checkout.Execute(r.Context(), checkout.Input{
		OrderID: r.PathValue("id"),
		Method:  method,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if !res.Outcome.Succeeded() {
		fields := []observability.Field{
			observability.F("order_id", res.Order.ID),
			observability.F("failure_kind", string(res.Outcome.Kind)),
			observability.F("retryable", domainPayment.IsRetryable(res.Outcome.Err())),
		}
		if cc, ok := method.(*domainPayment.CreditCard); ok {
			fields = append(fields, observability.F("card_last4", cc.Card().Last4()))
		}
		logctx.FromOr(r.Context(), h.log).Info("checkout_payment_failed", fields...)
	}
	writeJSON(w, statusForOutcome(res.Outcome), newCheckoutResponse(res, h.locale))
}

func (h *Handler) paymentMethod(req checkoutRequest) (domainPayment.Method, error) {
	switch req.Method {
	case domainPayment.MethodCreditCard, "":
		if req.Card == nil {
			return nil, application.Validationf("card is required for %s", domainPayment.MethodCreditCard)
		}
		return h.svc.Methods.CreditCard(*req.Card), nil
	default:
		return nil, application.Validationf("payment method %q is not supported", req.Method)
	}
}

func (h *Handler) handleOrderInvoices(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")
	if _, err := h.svc.Orders.Get(r.Context(), orderID); err != nil {
		writeDomainError(w, err)
		return
	}
	list, err := h.svc.Invoices.ForOrder(r.Context(), orderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := make([]invoiceResponse, 0, len(list))
	for _, inv := range list {
		resp = append(resp, newInvoiceResponse(inv, h.locale))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.svc.Invoices.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newInvoiceResponse(inv, h.locale))
}

// handleUnsettled lists orders whose payment attempts have all failed.
func (h *Handler) handleUnsettled(w http.ResponseWriter, _ *http.Request) {
	if h.svc.Ledger == nil {
		writeJSON(w, http.StatusOK, []unsettledResponse{})
		return
	}
	ids := h.svc.Ledger.Unsettled()
	resp := make([]unsettledResponse, 0, len(ids))
	for _, id := range ids {
		attempts := h.svc.Ledger.Attempts(id)
		entry := unsettledResponse{OrderID: id, Attempts: attempts}
		if n := len(attempts); n > 0 {
			entry.LastRetryable = domainPayment.IsRetryable(attempts[n-1].Err())
		}
		resp = append(resp, entry)
	}
	writeJSON(w, http.StatusOK, resp)
}
