package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginSetsSessionCookie(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/login", "", map[string]string{"email": testAdminEmail, "password": testPassword})
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookies[0])
	me := httptest.NewRecorder()
	ts.handler.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), `"rol":"admin"`)
	assert.NotContains(t, me.Body.String(), "password")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/login", "", map[string]string{"email": testAdminEmail, "password": "incorrecta"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Credenciales inválidas")

	rec = ts.do(http.MethodPost, "/login", "", map[string]string{"email": "no-es-correo"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = ts.do(http.MethodPost, "/login", "", "{")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutClearsCookie(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/logout", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestAPIRequiresSession(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/cotizaciones", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":true`)

	rec = ts.do(http.MethodGet, "/api/cotizaciones", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminRoutesForbiddenToResellers(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(testResellerEmail)

	for _, path := range []string{"/api/tenderos", "/api/estadisticas"} {
		rec := ts.do(http.MethodGet, path, token, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
	}
	rec := ts.do(http.MethodPatch, "/api/tenderos/any", token, map[string]string{"nombre": "X"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	for _, path := range []string{"/api/comisiones", "/api/ventas"} {
		rec := ts.do(http.MethodGet, path, token, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestDeactivatedResellerCannotLogIn(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.login(testAdminEmail)

	rec := ts.do(http.MethodPost, "/api/tenderos", admin, map[string]string{
		"nombre":    "Tienda Nueva",
		"email":     "nueva@example.com",
		"telefono":  "3005556677",
		"direccion": "Cl. 10 # 5-20",
		"password":  testPassword,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		ID string `json:"id"`
	}
	decode(t, rec, &created)

	resellerToken := ts.login("nueva@example.com")

	rec = ts.do(http.MethodPost, "/api/tenderos/"+created.ID+"/desactivar", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"activo":false`)

	rec = ts.do(http.MethodPost, "/login", "", map[string]string{"email": "nueva@example.com", "password": testPassword})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodGet, "/api/me", resellerToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodPost, "/api/tenderos", admin, map[string]string{
		"nombre": "Duplicada", "email": "nueva@example.com", "telefono": "1", "password": testPassword,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodPost, "/api/tenderos", admin, map[string]string{
		"nombre": "Corta", "email": "corta@example.com", "telefono": "1", "password": "123",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"password"`))
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "exequial_http_requests_total")
}
