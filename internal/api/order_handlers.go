package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/tailorline/settlement-api/pkg/errors"
)

// createOrderRequest is the body for placing an order
type createOrderRequest struct {
	DesignID string `json:"design_id"`
	AsaID    *int64 `json:"asa_id,omitempty"`
}

// createOrderHandler places an order for a design and provisions its escrow
// account on the ledger
func (s *Server) createOrderHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actorFromRequest(r)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	var req createOrderRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if req.DesignID == "" {
		s.respondWithError(w, http.StatusBadRequest, "design_id is required")
		return
	}

	order, err := s.orderService.CreateOrder(r.Context(), actor, req.DesignID, req.AsaID)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusCreated, ApiResponse{
		Success: true,
		Data:    order,
	})
}

// getOrdersHandler lists the caller's side of the order book
func (s *Server) getOrdersHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actorFromRequest(r)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	orders, err := s.orderService.GetOrdersForActor(r.Context(), actor, limit, offset)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    orders,
	})
}

// getOrderByIDHandler returns an order by ID, visible only to its parties
func (s *Server) getOrderByIDHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actorFromRequest(r)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	orderID := mux.Vars(r)["id"]
	order, err := s.orderService.GetOrder(r.Context(), actor, orderID)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    order,
	})
}

// confirmPaymentHandler acknowledges the initial payment on an order
func (s *Server) confirmPaymentHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actorFromRequest(r)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	orderID := mux.Vars(r)["id"]
	order, err := s.orderService.ConfirmPayment(r.Context(), actor, orderID)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    order,
	})
}

// profileResponse pairs the caller's wallet with its live ledger balance
type profileResponse struct {
	ActorID string `json:"actor_id"`
	Role    string `json:"role"`
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

// profileHandler returns the caller's wallet address and ledger balance
func (s *Server) profileHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actorFromRequest(r)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	wallet, err := s.wallets.GetByActorID(r.Context(), actor.ID)

	if err != nil {
		s.respondWithAppError(w, errors.NewNotFoundError("no wallet registered for actor"))
		return
	}

	balance, err := s.balances.AccountBalance(r.Context(), wallet.Address)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data: profileResponse{
			ActorID: actor.ID,
			Role:    string(actor.Role),
			Address: wallet.Address,
			Balance: balance,
		},
	})
}

// queryInt parses an integer query parameter with a fallback
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)

	if raw == "" {
		return fallback
	}

	value, err := strconv.Atoi(raw)

	if err != nil || value < 0 {
		return fallback
	}

	return value
}
