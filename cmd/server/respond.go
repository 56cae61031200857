package main

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/Simplici0/exequial/internal/auth"
	"github.com/Simplici0/exequial/internal/pricing"
	"github.com/Simplici0/exequial/internal/sales"
	"github.com/Simplici0/exequial/internal/store"
	"github.com/Simplici0/exequial/internal/validation"
	"github.com/Simplici0/exequial/internal/wompi"
)

const maxBodyBytes = 1 << 20

// httpError is an error with a fixed status and user-facing message.
type httpError struct {
	status  int
	message string
}

func (e *httpError) Error() string { return e.message }

var (
	errUnauthenticated = &httpError{http.StatusUnauthorized, "Debes iniciar sesión"}
	errForbidden       = &httpError{http.StatusForbidden, "No tienes permisos para esta acción"}
)

func badRequest(message string) error {
	return &httpError{http.StatusBadRequest, message}
}

type errorResponse struct {
	Error   bool              `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		herr *httpError
		verr *pricing.ValidationError
	)
	switch {
	case errors.As(err, &herr):
		writeJSON(w, herr.status, errorResponse{Error: true, Message: herr.message})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: true, Message: "Datos inválidos", Fields: verr.Fields})
	case errors.Is(err, store.ErrNotFound), errors.Is(err, wompi.ErrTransactionNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: true, Message: "Recurso no encontrado"})
	case errors.Is(err, sales.ErrAlreadyPaid):
		writeJSON(w, http.StatusConflict, errorResponse{Error: true, Message: "La cotización ya fue pagada"})
	case errors.Is(err, store.ErrConflict), errors.Is(err, wompi.ErrNotPending):
		writeJSON(w, http.StatusConflict, errorResponse{Error: true, Message: "El recurso ya existe o cambió de estado"})
	case errors.Is(err, store.ErrInvalidStatus), errors.Is(err, wompi.ErrInvalidStatus):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: true, Message: "Estado inválido"})
	case errors.Is(err, sales.ErrUnverifiedTransaction):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: true, Message: "La transacción no coincide con la pasarela de pagos"})
	case errors.Is(err, sales.ErrAmountMismatch):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: true, Message: "El valor pagado no coincide con la cotización"})
	case errors.Is(err, auth.ErrWeakPassword):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: true, Message: "Datos inválidos",
			Fields: map[string]string{"password": "debe tener al menos 6 caracteres"}})
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: true, Message: "Credenciales inválidas. Intenta de nuevo."})
	case errors.Is(err, auth.ErrInactiveUser):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: true, Message: "Usuario inactivo"})
	case errors.Is(err, auth.ErrInvalidToken):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: true, Message: "Sesión inválida o expirada"})
	case errors.Is(err, wompi.ErrInvalidSignature):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: true, Message: "Firma inválida"})
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: true, Message: "Error interno del servidor"})
	}
}

// trimmed returns p with surrounding spaces removed, keeping nil as nil.
func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}

// decodeJSON reads the request body into dst and validates it.
func decodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return badRequest("No se pudo leer la solicitud")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return badRequest("JSON inválido")
	}
	return validation.Struct(dst)
}
