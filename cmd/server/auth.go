package main

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/Simplici0/exequial/internal/auth"
	"github.com/Simplici0/exequial/internal/pricing"
	"github.com/Simplici0/exequial/internal/store"
)

const sessionCookieName = "exequial_session"

type claimsKey struct{}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string     `json:"token"`
	User  store.User `json:"usuario"`
}

type profileUpdateRequest struct {
	Nombre         *string `json:"nombre" validate:"omitnil,min=1"`
	Telefono       *string `json:"telefono" validate:"omitnil,min=1"`
	PasswordActual string  `json:"password_actual"`
	PasswordNueva  string  `json:"password_nueva" validate:"omitempty,min=6"`
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	u, err := s.auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	token, err := s.tokens.Issue(u)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.setSessionCookie(w, token)
	s.logger.Info("login", "user_id", u.ID, "role", u.Role)
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: u})
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.store.GetUserByID(r.Context(), sessionClaims(r.Context()).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// handleProfileUpdate lets any user change their own name, phone and
// password. A new password requires the current one.
func (s *server) handleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	var req profileUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	u, err := s.store.GetUserByID(ctx, sessionClaims(ctx).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	in := store.UserUpdate{Name: trimmed(req.Nombre), Phone: trimmed(req.Telefono)}
	if req.PasswordNueva != "" {
		if !auth.CheckPassword(u.PasswordHash, req.PasswordActual) {
			verr := &pricing.ValidationError{}
			verr.Add("password_actual", "es incorrecta")
			s.writeError(w, r, verr)
			return
		}
		hash, err := auth.HashPassword(req.PasswordNueva)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		in.PasswordHash = &hash
	}

	updated, err := s.store.UpdateUser(ctx, u.ID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("profile updated", "user_id", u.ID, "password_changed", in.PasswordHash != nil)
	writeJSON(w, http.StatusOK, updated)
}

// authenticate accepts a session cookie or an Authorization bearer token.
func (s *server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := sessionToken(r)
		if raw == "" {
			s.writeError(w, r, errUnauthenticated)
			return
		}

		claims, err := s.tokens.Parse(raw)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		u, err := s.store.GetUserByID(r.Context(), claims.UserID)
		if err != nil || !u.Active {
			s.writeError(w, r, auth.ErrInvalidToken)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

func (s *server) requireRole(roles ...store.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !slices.Contains(roles, sessionClaims(r.Context()).Role) {
				s.writeError(w, r, errForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func sessionClaims(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey{}).(*auth.Claims)
	if claims == nil {
		return &auth.Claims{}
	}
	return claims
}

func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// resellerScope returns the reseller id the current session is restricted to,
// or "" for staff roles that see everything.
func (s *server) resellerScope(ctx context.Context) (string, error) {
	claims := sessionClaims(ctx)
	if claims.Role != store.RoleReseller {
		return "", nil
	}
	r, err := s.store.GetResellerByUserID(ctx, claims.UserID)
	if err != nil {
		return "", err
	}
	return r.ID, nil
}

func (s *server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   !s.cfg.IsDev(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
