package main

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/exequial/internal/config"
	"github.com/Simplici0/exequial/internal/metrics"
	"github.com/Simplici0/exequial/internal/store"
	"github.com/Simplici0/exequial/internal/wompi"
)

func createQuote(t *testing.T, ts *testServer, token string) store.Quote {
	t.Helper()
	rec := ts.do(http.MethodPost, "/api/cotizaciones", token, quotationBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var q store.Quote
	decode(t, rec, &q)
	return q
}

func startPayment(t *testing.T, ts *testServer, token, quoteID string) wompi.Transaction {
	t.Helper()
	rec := ts.do(http.MethodPost, "/api/pagos/wompi", token, map[string]string{"cotizacion_id": quoteID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp paymentResponse
	decode(t, rec, &resp)
	assert.Equal(t, "pub_test_123", resp.PublicKey)
	return resp.Transaction
}

func TestWompiPaymentFlow(t *testing.T) {
	ts := newTestServer(t)
	reseller := ts.login(testResellerEmail)
	q := createQuote(t, ts, reseller)

	tx := startPayment(t, ts, reseller, q.ID)
	assert.Equal(t, wompi.StatusPending, tx.Status)
	assert.Equal(t, q.ID, tx.Reference)
	assert.Equal(t, int64(3600000), tx.AmountInCents)

	rec := ts.do(http.MethodPost, "/api/pagos/wompi/"+tx.ID+"/simular", reseller, map[string]string{"estado": wompi.StatusApproved})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp webhookResponse
	decode(t, rec, &resp)
	assert.Equal(t, metrics.OutcomeRecorded, resp.Outcome)

	rec = ts.do(http.MethodGet, "/api/cotizaciones/"+q.ID, reseller, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var paid store.Quote
	decode(t, rec, &paid)
	assert.Equal(t, store.QuotePaid, paid.Status)

	var commissions []store.Commission
	rec = ts.do(http.MethodGet, "/api/comisiones", reseller, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &commissions)
	require.Len(t, commissions, 1)
	assert.Equal(t, int64(9500), commissions[0].Amount)

	rec = ts.do(http.MethodPost, "/api/pagos/wompi", reseller, map[string]string{"cotizacion_id": q.ID})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestWompiWebhookReplayIsIdempotent(t *testing.T) {
	ts := newTestServer(t)
	reseller := ts.login(testResellerEmail)
	admin := ts.login(testAdminEmail)
	q := createQuote(t, ts, reseller)
	tx := startPayment(t, ts, reseller, q.ID)

	ev, err := ts.srv.gateway.Resolve(tx.ID, wompi.StatusApproved)
	require.NoError(t, err)

	outcomes := []string{metrics.OutcomeRecorded, metrics.OutcomeDuplicate}
	for _, want := range outcomes {
		rec := ts.do(http.MethodPost, "/webhooks/wompi", "", ev)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp webhookResponse
		decode(t, rec, &resp)
		assert.Equal(t, want, resp.Outcome)
	}

	var sales []store.Sale
	rec := ts.do(http.MethodGet, "/api/ventas", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &sales)
	require.Len(t, sales, 1)
	assert.Equal(t, tx.ID, sales[0].Reference)
	assert.Equal(t, store.MethodWompi, sales[0].Method)
}

func TestWompiWebhookRejectsForgedEvent(t *testing.T) {
	ts := newTestServer(t)
	reseller := ts.login(testResellerEmail)
	q := createQuote(t, ts, reseller)
	tx := startPayment(t, ts, reseller, q.ID)

	tx.Status = wompi.StatusApproved
	forged, err := wompi.NewEvent(tx, "wrong-secret", time.Now())
	require.NoError(t, err)

	rec := ts.do(http.MethodPost, "/webhooks/wompi", "", forged)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodPost, "/webhooks/wompi", "", "not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodGet, "/api/cotizaciones/"+q.ID, reseller, nil)
	var still store.Quote
	decode(t, rec, &still)
	assert.Equal(t, store.QuotePending, still.Status)
}

func TestDeclinedPaymentKeepsQuotePending(t *testing.T) {
	ts := newTestServer(t)
	reseller := ts.login(testResellerEmail)
	q := createQuote(t, ts, reseller)
	tx := startPayment(t, ts, reseller, q.ID)

	rec := ts.do(http.MethodPost, "/api/pagos/wompi/"+tx.ID+"/simular", reseller, map[string]string{"estado": wompi.StatusDeclined})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp webhookResponse
	decode(t, rec, &resp)
	assert.Equal(t, metrics.OutcomeDeclined, resp.Outcome)

	rec = ts.do(http.MethodPost, "/api/pagos/wompi/"+tx.ID+"/simular", reseller, map[string]string{"estado": wompi.StatusApproved})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodPost, "/api/pagos/wompi/WOMPI-missing/simular", reseller, map[string]string{"estado": wompi.StatusApproved})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodGet, "/api/cotizaciones/"+q.ID, reseller, nil)
	var still store.Quote
	decode(t, rec, &still)
	assert.Equal(t, store.QuotePending, still.Status)
}

func TestPaymentStatus(t *testing.T) {
	ts := newTestServer(t)
	reseller := ts.login(testResellerEmail)
	admin := ts.login(testAdminEmail)
	q := createQuote(t, ts, reseller)
	tx := startPayment(t, ts, reseller, q.ID)

	rec := ts.do(http.MethodGet, "/api/pagos/wompi/"+tx.ID, reseller, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var pending paymentStatusResponse
	decode(t, rec, &pending)
	assert.Equal(t, wompi.StatusPending, pending.Transaction.Status)
	assert.Nil(t, pending.Sale)

	rec = ts.do(http.MethodPost, "/api/pagos/wompi/"+tx.ID+"/simular", reseller, map[string]string{"estado": wompi.StatusApproved})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/pagos/wompi/"+tx.ID, reseller, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var approved paymentStatusResponse
	decode(t, rec, &approved)
	assert.Equal(t, wompi.StatusApproved, approved.Transaction.Status)
	require.NotNil(t, approved.Sale)
	assert.Equal(t, q.ID, approved.Sale.QuoteID)
	assert.Equal(t, int64(36000), approved.Sale.Amount)

	other := createReseller(t, ts, admin, "otra@example.com")
	rec = ts.do(http.MethodGet, "/api/pagos/wompi/"+tx.ID, other, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodGet, "/api/pagos/wompi/WOMPI-missing", reseller, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWompiWebhookRejectsUnknownTransaction(t *testing.T) {
	ts := newTestServer(t)
	reseller := ts.login(testResellerEmail)
	q := createQuote(t, ts, reseller)

	forged, err := wompi.NewEvent(wompi.Transaction{
		ID:            "WOMPI-never-created",
		Status:        wompi.StatusApproved,
		Reference:     q.ID,
		AmountInCents: 3600000,
	}, testEventsSecret, time.Now())
	require.NoError(t, err)

	rec := ts.do(http.MethodPost, "/webhooks/wompi", "", forged)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/cotizaciones/"+q.ID, reseller, nil)
	var still store.Quote
	decode(t, rec, &still)
	assert.Equal(t, store.QuotePending, still.Status)
}

func TestWompiWebhookWithoutSecretOutsideDevelopment(t *testing.T) {
	ts := newTestServerWith(t, func(cfg *config.Config) {
		cfg.Env = "production"
		cfg.Wompi.EventsSecret = ""
	})
	reseller := ts.login(testResellerEmail)
	q := createQuote(t, ts, reseller)
	tx := startPayment(t, ts, reseller, q.ID)

	rec := ts.do(http.MethodPost, "/api/pagos/wompi/"+tx.ID+"/simular", reseller, map[string]string{"estado": wompi.StatusApproved})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	ev, err := ts.srv.gateway.Resolve(tx.ID, wompi.StatusApproved)
	require.NoError(t, err)
	rec = ts.do(http.MethodPost, "/webhooks/wompi", "", ev)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/cotizaciones/"+q.ID, reseller, nil)
	var still store.Quote
	decode(t, rec, &still)
	assert.Equal(t, store.QuotePending, still.Status)
}

func TestResellerSeesOnlyOwnSales(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.login(testAdminEmail)
	first := ts.login(testResellerEmail)
	second := createReseller(t, ts, admin, "otra@example.com")

	for _, token := range []string{first, second} {
		q := createQuote(t, ts, token)
		tx := startPayment(t, ts, token, q.ID)
		rec := ts.do(http.MethodPost, "/api/pagos/wompi/"+tx.ID+"/simular", token, map[string]string{"estado": wompi.StatusApproved})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	var all []store.Sale
	rec := ts.do(http.MethodGet, "/api/ventas", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &all)
	assert.Len(t, all, 2)

	var own []store.Sale
	rec = ts.do(http.MethodGet, "/api/ventas?tendero_id="+all[0].ResellerID+"&tendero_id="+all[1].ResellerID, second, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &own)
	require.Len(t, own, 1)

	var secondQuotes []store.Quote
	rec = ts.do(http.MethodGet, "/api/cotizaciones", second, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &secondQuotes)
	require.Len(t, secondQuotes, 1)
	assert.Equal(t, secondQuotes[0].ID, own[0].QuoteID)
}
