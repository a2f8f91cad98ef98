package api

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"
)

// createDesignRequest is the body for adding a catalog entry
type createDesignRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
}

// createDesignHandler adds a design to the caller's catalog
func (s *Server) createDesignHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actorFromRequest(r)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	var req createDesignRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	design, err := s.catalog.CreateDesign(r.Context(), actor, req.Name, req.Description, req.Price)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusCreated, ApiResponse{
		Success: true,
		Data:    design,
	})
}

// getDesignsHandler lists the caller's catalog
func (s *Server) getDesignsHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actorFromRequest(r)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	designs, err := s.catalog.GetDesignsForTailor(r.Context(), actor)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    designs,
	})
}

// registerWalletRequest is the body for registering a ledger wallet
type registerWalletRequest struct {
	Address    string `json:"address"`
	SigningKey string `json:"signing_key"`
}

// registerWalletHandler stores or replaces the caller's ledger wallet. The
// response carries the wallet record, which never serializes the signing key.
func (s *Server) registerWalletHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actorFromRequest(r)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	var req registerWalletRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	wallet, err := s.catalog.RegisterWallet(r.Context(), actor, req.Address, req.SigningKey)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    wallet,
	})
}
