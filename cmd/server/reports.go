package main

import "net/http"

func (s *server) handleSalesList(w http.ResponseWriter, r *http.Request) {
	resellerID, err := s.resellerScope(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if resellerID == "" {
		resellerID = r.URL.Query().Get("tendero_id")
	}

	sales, err := s.store.ListSales(r.Context(), resellerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sales)
}

func (s *server) handleCommissionsList(w http.ResponseWriter, r *http.Request) {
	resellerID, err := s.resellerScope(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if resellerID == "" {
		resellerID = r.URL.Query().Get("tendero_id")
	}

	commissions, err := s.store.ListCommissions(r.Context(), resellerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, commissions)
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
