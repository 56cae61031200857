package main

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/exequial/internal/config"
	"github.com/Simplici0/exequial/internal/db"
	"github.com/Simplici0/exequial/internal/migrations"
	"github.com/Simplici0/exequial/internal/seed"
)

const (
	testPassword        = "secreto123"
	testAdminEmail      = "admin@exequial.co"
	testCallCenterEmail = "callcenter@exequial.dev"
	testResellerEmail   = "tendero@exequial.dev"
	testEventsSecret    = "test_events_secret"
)

type testServer struct {
	t       *testing.T
	srv     *server
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, nil)
}

// newTestServerWith lets a test adjust the configuration before the server
// is built.
func newTestServerWith(t *testing.T, configure func(*config.Config)) *testServer {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "server-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, migrations.Up(database))

	_, err = seed.Run(database, seed.Config{AdminEmail: testAdminEmail, AdminPassword: testPassword, Demo: true})
	require.NoError(t, err)

	cfg := config.Config{
		Env:           "development",
		Timezone:      "UTC",
		SessionSecret: "test-session-secret",
		SessionTTL:    time.Hour,
		Wompi:         config.WompiConfig{EventsSecret: testEventsSecret, PublicKey: "pub_test_123"},
	}
	if configure != nil {
		configure(&cfg)
	}
	srv := newServer(cfg, database, slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv.now = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }

	return &testServer{t: t, srv: srv, handler: srv.routes()}
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) login(email string) string {
	ts.t.Helper()

	rec := ts.do(http.MethodPost, "/login", "", map[string]string{"email": email, "password": testPassword})
	require.Equal(ts.t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	decode(ts.t, rec, &resp)
	require.NotEmpty(ts.t, resp.Token)
	return resp.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func quotationBody() map[string]any {
	return map[string]any{
		"titular": map[string]any{
			"nombre":           "Ana Pérez",
			"cedula":           "1020304050",
			"telefono":         "3001234567",
			"fecha_nacimiento": "1984-05-02",
			"email":            "ana@example.com",
		},
		"beneficiarios": []map[string]any{{
			"nombre":           "Rosa Gómez",
			"cedula":           "41000111",
			"telefono":         "3109998877",
			"fecha_nacimiento": "1949-01-10",
			"parentesco":       "madre",
		}},
		"mascotas": []map[string]any{{"nombre": "Toby", "raza": "criollo", "edad": 3}},
	}
}

// createReseller opens a reseller account as admin and returns its session token.
func createReseller(t *testing.T, ts *testServer, adminToken, email string) string {
	t.Helper()
	rec := ts.do(http.MethodPost, "/api/tenderos", adminToken, map[string]string{
		"nombre":    "Tienda " + email,
		"email":     email,
		"telefono":  "3005556677",
		"direccion": "Cl. 10 # 5-20",
		"password":  testPassword,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return ts.login(email)
}
