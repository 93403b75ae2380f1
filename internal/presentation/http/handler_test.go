package httppresentation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/Zhima-Mochi/minishop-checkout/internal/application/checkout"
	appInvoice "github.com/Zhima-Mochi/minishop-checkout/internal/application/invoice"
	appOrder "github.com/Zhima-Mochi/minishop-checkout/internal/application/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/clock"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/id"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/payment/gateway"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/locale"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return newObservedServer(t, observability.Nop())
}

func newObservedServer(t *testing.T, tel observability.Observability) *httptest.Server {
	t.Helper()
	clk := clock.NewFixed(time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC))
	ids := id.NewUUIDGenerator()

	a, err := catalog.NewProduct("a", "Widget", "", catalog.CategoryPhysical, 3500)
	require.NoError(t, err)
	b, err := catalog.NewProduct("b", "Manual", "", catalog.CategoryBook, 2900)
	require.NoError(t, err)
	products := memory.NewProductRepository(a, b)
	orders := memory.NewOrderRepository()
	invoices := memory.NewInvoiceRepository()

	loc, err := locale.Parse("en", "US", "")
	require.NoError(t, err)

	policy := checkout.DefaultRetryPolicy()
	policy.BaseDelay, policy.MaxDelay = time.Millisecond, time.Millisecond

	h := NewHandler(Services{
		Orders:   appOrder.NewService(orders, products, ids, clk, nil, tel),
		Checkout: checkout.NewService(orders, invoices, ids, clk, nil, policy, tel),
		Methods:  checkout.NewMethods(gateway.NewSimulated(), loc.CurrencyCode(), clk),
		Invoices: appInvoice.NewService(invoices, tel),
		Products: products,
	}, loc, tel)

	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.Header.Get("Content-Type") == "application/json" {
		var raw any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
		if m, ok := raw.(map[string]any); ok {
			out = m
		}
	}
	return resp, out
}

func customerJSON() map[string]any {
	addr := map[string]any{
		"address_line": "1 Main St",
		"postal_code":  "10001",
		"city":         "New York",
		"country":      "US",
		"state":        "NY",
	}
	return map[string]any{
		"first_name":       "Ada",
		"last_name":        "Lovelace",
		"email":            "ada@example.com",
		"shipping_address": addr,
		"billing_address":  addr,
	}
}

func card(number string, month, year int) map[string]any {
	return map[string]any{"holder": "Ada Lovelace", "number": number, "exp_month": month, "exp_year": year, "cvv": "123"}
}

func createOrder(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, body := do(t, srv, http.MethodPost, "/orders", map[string]any{"customer": customerJSON()})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestHandler_Health(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := do(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(headerRequestID))
}

func TestHandler_CheckoutScenario(t *testing.T) {
	srv := newTestServer(t)
	orderID := createOrder(t, srv)

	resp, _ := do(t, srv, http.MethodPost, "/orders/"+orderID+"/close", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "empty order cannot close")

	resp, _ = do(t, srv, http.MethodPost, "/orders/"+orderID+"/items", map[string]any{"product_id": "a", "quantity": 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body := do(t, srv, http.MethodPost, "/orders/"+orderID+"/items", map[string]any{"product_id": "b", "quantity": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	total := body["total"].(map[string]any)
	assert.Equal(t, float64(9900), total["minor"])
	assert.Equal(t, "99.00", total["major"])
	assert.Equal(t, "USD", total["currency"])

	resp, body = do(t, srv, http.MethodPost, "/orders/"+orderID+"/close", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "closed", body["status"])

	resp, _ = do(t, srv, http.MethodPost, "/orders/"+orderID+"/items", map[string]any{"product_id": "a", "quantity": 1})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = do(t, srv, http.MethodPost, "/orders/"+orderID+"/checkout", map[string]any{
		"method": "credit_card",
		"card":   card("4242424242424242", 12, 2028),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	outcome := body["outcome"].(map[string]any)
	assert.Equal(t, float64(9900), outcome["amount"])
	assert.Nil(t, outcome["error"])
	invoiceID, _ := body["invoice_id"].(string)
	require.NotEmpty(t, invoiceID)

	resp, body = do(t, srv, http.MethodGet, "/invoices/"+invoiceID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, orderID, body["order_id"])
	assert.Equal(t, true, body["paid"])
	assert.NotNil(t, body["billing_address"])
	assert.NotNil(t, body["shipping_address"])

	resp, _ = do(t, srv, http.MethodGet, "/orders/"+orderID+"/invoices", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodPost, "/orders/"+orderID+"/checkout", map[string]any{
		"card": card("4242424242424242", 12, 2028),
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "already paid")
}

func TestHandler_CheckoutFailures(t *testing.T) {
	srv := newTestServer(t)
	orderID := createOrder(t, srv)
	resp, _ := do(t, srv, http.MethodPost, "/orders/"+orderID+"/items", map[string]any{"product_id": "a", "quantity": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := do(t, srv, http.MethodPost, "/orders/"+orderID+"/checkout", map[string]any{
		"card": card("4242424242424242", 1, 2020),
	})
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, "card_invalid", body["outcome"].(map[string]any)["failure_kind"])
	assert.Equal(t, "open", body["order"].(map[string]any)["status"])

	resp, body = do(t, srv, http.MethodPost, "/orders/"+orderID+"/checkout", map[string]any{
		"card": card(gateway.UnavailableCard, 12, 2028),
	})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, true, body["retryable"])
	assert.Equal(t, float64(3), body["attempts"])

	resp, _ = do(t, srv, http.MethodPost, "/orders/"+orderID+"/checkout", map[string]any{"method": "wire"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_CheckoutFailureLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	srv := newObservedServer(t, infraobs.New(nil, zaplogger.Wrap(zap.New(core)), nil, nil))
	orderID := createOrder(t, srv)
	resp, _ := do(t, srv, http.MethodPost, "/orders/"+orderID+"/items", map[string]any{"product_id": "a", "quantity": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, number := range []string{gateway.DeclineCard, gateway.UnavailableCard} {
		resp, _ = do(t, srv, http.MethodPost, "/orders/"+orderID+"/checkout", map[string]any{
			"card": card(number, 12, 2028),
		})
		require.NotEqual(t, http.StatusOK, resp.StatusCode)
	}

	failed := logs.FilterMessage("checkout_payment_failed").All()
	require.Len(t, failed, 2)
	declined, unavailable := failed[0].ContextMap(), failed[1].ContextMap()
	assert.Equal(t, "declined", declined["failure_kind"])
	assert.Equal(t, false, declined["retryable"])
	assert.Equal(t, gateway.DeclineCard[len(gateway.DeclineCard)-4:], declined["card_last4"])
	assert.Equal(t, "gateway_unavailable", unavailable["failure_kind"])
	assert.Equal(t, true, unavailable["retryable"])
	assert.Equal(t, gateway.UnavailableCard[len(gateway.UnavailableCard)-4:], unavailable["card_last4"])
}

func TestHandler_Errors(t *testing.T) {
	srv := newTestServer(t)
	orderID := createOrder(t, srv)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown order", http.MethodGet, "/orders/nope", nil, http.StatusNotFound},
		{"unknown invoice", http.MethodGet, "/invoices/nope", nil, http.StatusNotFound},
		{"unknown product", http.MethodPost, "/orders/" + orderID + "/items", map[string]any{"product_id": "zzz", "quantity": 1}, http.StatusNotFound},
		{"quantity overflow", http.MethodPost, "/orders/" + orderID + "/items", map[string]any{"product_id": "a", "quantity": int64(math.MaxInt64 / 1000)}, http.StatusBadRequest},
		{"zero quantity", http.MethodPost, "/orders/" + orderID + "/items", map[string]any{"product_id": "a", "quantity": 0}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/orders/" + orderID + "/items", map[string]any{"sku": "a"}, http.StatusBadRequest},
		{"invalid customer", http.MethodPost, "/orders", map[string]any{"customer": map[string]any{"first_name": "Ada"}}, http.StatusBadRequest},
		{"wrong method", http.MethodPut, "/orders/" + orderID, nil, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := do(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestHandler_ProductsAndRemove(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/products", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	var products []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&products))
	resp.Body.Close()
	require.Len(t, products, 2)
	assert.Equal(t, "Manual", products[0]["name"])

	orderID := createOrder(t, srv)
	_, _ = do(t, srv, http.MethodPost, "/orders/"+orderID+"/items", map[string]any{"product_id": "a", "quantity": 1})
	resp, body := do(t, srv, http.MethodDelete, "/orders/"+orderID+"/items/a", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["items"])
}

func TestHandler_CheckoutStoreFailure(t *testing.T) {
	loc, err := locale.Parse("en", "US", "")
	require.NoError(t, err)
	clk := clock.NewFixed(time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC))

	var got checkout.Input
	stub := application.UseCaseFunc[checkout.Input, *checkout.Result](
		func(_ context.Context, in checkout.Input) (*checkout.Result, error) {
			got = in
			return nil, fmt.Errorf("%w: disk full", checkout.ErrRepository)
		})
	h := NewHandler(Services{
		Checkout: stub,
		Methods:  checkout.NewMethods(gateway.NewSimulated(), loc.CurrencyCode(), clk),
	}, loc, observability.Nop())
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)

	resp, _ := do(t, srv, http.MethodPost, "/orders/o-1/checkout", map[string]any{
		"method": "credit_card",
		"card":   card("4111111111111111", 12, 2030),
	})

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "o-1", got.OrderID)
	require.NotNil(t, got.Method)
	assert.Equal(t, payment.MethodCreditCard, got.Method.Kind())
}

func TestHandler_RejectsOversizedBody(t *testing.T) {
	loc, err := locale.Parse("en", "US", "")
	require.NoError(t, err)
	router := NewHandler(Services{}, loc, observability.Nop()).Router()

	body := `{"customer":{"first_name":"` + strings.Repeat("x", maxBodyBytes) + `"}}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

type ledgerStub map[string][]payment.Outcome

func (l ledgerStub) Unsettled() []string {
	ids := make([]string, 0, len(l))
	for id := range l {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (l ledgerStub) Attempts(orderID string) []payment.Outcome { return l[orderID] }

func TestHandler_UnsettledPayments(t *testing.T) {
	loc, err := locale.Parse("en", "US", "")
	require.NoError(t, err)
	at := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	ledger := ledgerStub{
		"o-1": {payment.Failed(payment.MethodCreditCard, payment.FailureDeclined, "insufficient funds", "USD", at)},
		"o-2": {
			payment.Failed(payment.MethodCreditCard, payment.FailureDeclined, "", "USD", at),
			payment.Failed(payment.MethodCreditCard, payment.FailureTimeout, "", "USD", at.Add(time.Second)),
		},
	}

	cases := []struct {
		name   string
		ledger PaymentLedger
		want   []unsettledResponse
	}{
		{name: "no ledger wired", want: []unsettledResponse{}},
		{
			name:   "failed orders with last attempt retryability",
			ledger: ledger,
			want: []unsettledResponse{
				{OrderID: "o-1", Attempts: ledger["o-1"], LastRetryable: false},
				{OrderID: "o-2", Attempts: ledger["o-2"], LastRetryable: true},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := NewHandler(Services{Ledger: tc.ledger}, loc, observability.Nop()).Router()
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payments/unsettled", nil))

			require.Equal(t, http.StatusOK, rec.Code)
			var got []unsettledResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			require.Len(t, got, len(tc.want))
			for i, w := range tc.want {
				assert.Equal(t, w.OrderID, got[i].OrderID)
				assert.Equal(t, w.LastRetryable, got[i].LastRetryable)
				require.Len(t, got[i].Attempts, len(w.Attempts))
				for j := range w.Attempts {
					assert.Equal(t, w.Attempts[j].Kind, got[i].Attempts[j].Kind)
					assert.True(t, w.Attempts[j].AttemptedAt.Equal(got[i].Attempts[j].AttemptedAt))
				}
			}
		})
	}
}
