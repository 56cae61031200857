package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/exequial/internal/auth"
	"github.com/Simplici0/exequial/internal/store"
)

type resellerRequest struct {
	Nombre    string `json:"nombre" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Telefono  string `json:"telefono" validate:"required"`
	Direccion string `json:"direccion"`
	Password  string `json:"password" validate:"required,min=6"`
}

type resellerUpdateRequest struct {
	Nombre    *string `json:"nombre" validate:"omitnil,min=1"`
	Email     *string `json:"email" validate:"omitnil,email"`
	Telefono  *string `json:"telefono" validate:"omitnil,min=1"`
	Direccion *string `json:"direccion"`
}

func (s *server) handleResellerCreate(w http.ResponseWriter, r *http.Request) {
	var req resellerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	reseller, err := s.store.CreateReseller(r.Context(), store.NewReseller{
		Name:         req.Nombre,
		Email:        req.Email,
		Phone:        req.Telefono,
		Address:      req.Direccion,
		PasswordHash: hash,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info("reseller created", "reseller_id", reseller.ID, "user_id", reseller.UserID)
	writeJSON(w, http.StatusCreated, reseller)
}

func (s *server) handleResellersList(w http.ResponseWriter, r *http.Request) {
	resellers, err := s.store.ListResellers(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resellers)
}

func (s *server) handleResellerUpdate(w http.ResponseWriter, r *http.Request) {
	var req resellerUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	reseller, err := s.store.UpdateReseller(r.Context(), chi.URLParam(r, "id"), store.ResellerUpdate{
		Name:    trimmed(req.Nombre),
		Email:   trimmed(req.Email),
		Phone:   trimmed(req.Telefono),
		Address: trimmed(req.Direccion),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info("reseller updated", "reseller_id", reseller.ID)
	writeJSON(w, http.StatusOK, reseller)
}

func (s *server) handleResellerDeactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reseller, err := s.store.GetReseller(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.SetUserActive(ctx, reseller.UserID, false); err != nil {
		s.writeError(w, r, err)
		return
	}

	reseller.Active = false
	s.logger.Info("reseller deactivated", "reseller_id", reseller.ID)
	writeJSON(w, http.StatusOK, reseller)
}
