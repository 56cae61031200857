package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/exequial/internal/store"
)

type clientRequest struct {
	Nombre    string `json:"nombre" validate:"required"`
	Cedula    string `json:"cedula" validate:"required,numeric"`
	Telefono  string `json:"telefono" validate:"required"`
	Email     string `json:"email" validate:"omitempty,email"`
	TenderoID string `json:"tendero_id"`
}

func (s *server) handleClientCreate(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	resellerID, err := s.resellerScope(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if resellerID == "" && req.TenderoID != "" {
		if _, err := s.store.GetReseller(ctx, req.TenderoID); err != nil {
			s.writeError(w, r, err)
			return
		}
		resellerID = req.TenderoID
	}

	c := store.Client{
		Name:       req.Nombre,
		IDNumber:   req.Cedula,
		Phone:      req.Telefono,
		Email:      req.Email,
		ResellerID: resellerID,
	}
	if err := s.store.CreateClient(ctx, &c); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *server) handleClientsList(w http.ResponseWriter, r *http.Request) {
	resellerID, err := s.resellerScope(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	clients, err := s.store.ListClients(r.Context(), resellerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, clients)
}

func (s *server) handleClientByCedula(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.GetClientByCedula(r.Context(), chi.URLParam(r, "cedula"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.checkClientScope(r, c); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// clientVisible loads a client, hiding other resellers' clients from a reseller.
func (s *server) clientVisible(r *http.Request, id string) (store.Client, error) {
	c, err := s.store.GetClient(r.Context(), id)
	if err != nil {
		return store.Client{}, err
	}
	if err := s.checkClientScope(r, c); err != nil {
		return store.Client{}, err
	}
	return c, nil
}

// checkClientScope rejects clients owned by another reseller. Unassigned
// clients are visible to everyone.
func (s *server) checkClientScope(r *http.Request, c store.Client) error {
	resellerID, err := s.resellerScope(r.Context())
	if err != nil {
		return err
	}
	if resellerID != "" && c.ResellerID != "" && c.ResellerID != resellerID {
		return errForbidden
	}
	return nil
}
