package httppresentation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/locale"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInstrument_RequestIDMetricsAndAccessLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	reg := prometheus.NewRegistry()
	counters, histograms := prometrics.Standard(prometrics.New(reg, "", ""))
	tel := infraobs.New(nil, zaplogger.Wrap(zap.New(core)), counters, histograms)

	p, err := catalog.NewProduct("a", "Widget", "", catalog.CategoryPhysical, 3500)
	require.NoError(t, err)
	loc, err := locale.Parse("en", "US", "")
	require.NoError(t, err)
	h := NewHandler(Services{Products: memory.NewProductRepository(p)}, loc, tel)
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/products", nil)
	require.NoError(t, err)
	req.Header.Set(headerRequestID, "req-42")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "req-42", resp.Header.Get(headerRequestID))

	access := logs.FilterMessage("http_access").All()
	require.Len(t, access, 1)
	fields := access[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "/products", fields["route"])
	assert.EqualValues(t, http.StatusOK, fields["status"])

	families, err := reg.Gather()
	require.NoError(t, err)
	var seen float64
	for _, f := range families {
		if f.GetName() != "http_requests_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["route"] == "/products" && labels["method"] == http.MethodGet && labels["status"] == "200" {
				seen += m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, seen)
}

func TestRouteTemplate(t *testing.T) {
	assert.Equal(t, "/orders/{id}/close", routeTemplate("POST /orders/{id}/close"))
	assert.Equal(t, "/health", routeTemplate("/health"))
}

func TestRequestID_RejectsOversizedHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set(headerRequestID, strings.Repeat("x", maxRequestIDLen+1))
	assert.NotEqual(t, r.Header.Get(headerRequestID), requestID(r))
}
