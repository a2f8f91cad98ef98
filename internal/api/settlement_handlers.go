package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tailorline/settlement-api/internal/settlement"
)

// releaseFundsHandler moves the escrowed amount to the tailor. Only the
// ordering customer may call this.
func (s *Server) releaseFundsHandler(w http.ResponseWriter, r *http.Request) {
	s.settleHandler(w, r, settlement.ActionRelease)
}

// refundFundsHandler returns the escrowed amount to the customer. Only the
// tailor owning the design may call this.
func (s *Server) refundFundsHandler(w http.ResponseWriter, r *http.Request) {
	s.settleHandler(w, r, settlement.ActionRefund)
}

// settlementResponse is the body returned by a successful release or refund
type settlementResponse struct {
	Order          interface{} `json:"order"`
	TransactionID  string      `json:"transaction_id"`
	ConfirmedRound uint64      `json:"confirmed_round"`
}

func (s *Server) settleHandler(w http.ResponseWriter, r *http.Request, action settlement.Action) {
	actor, err := s.actorFromRequest(r)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	orderID := mux.Vars(r)["id"]
	result, err := s.settlements.Settle(r.Context(), orderID, actor, action)

	if err != nil {
		s.logger.Warn("Settlement rejected",
			"orderID", orderID,
			"action", action,
			"actorID", actor.ID,
			"error", err)
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data: settlementResponse{
			Order:          result.Order,
			TransactionID:  result.TransactionID,
			ConfirmedRound: result.ConfirmedRound,
		},
	})
}
