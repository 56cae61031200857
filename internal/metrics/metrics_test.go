package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAreExposed(t *testing.T) {
	m := New()
	m.QuotesPriced.Inc()
	m.SalesRecorded.WithLabelValues("wompi").Inc()
	m.CommissionsCOP.Add(9500)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.QuotesPriced))
	assert.Equal(t, 9500.0, testutil.ToFloat64(m.CommissionsCOP))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `exequial_sales_recorded_total{method="wompi"} 1`))
	assert.Contains(t, body, "exequial_quotes_priced_total 1")
}

func TestInstrumentHandlerCountsByStatus(t *testing.T) {
	m := New()
	h := m.InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("post", "418")))
}
