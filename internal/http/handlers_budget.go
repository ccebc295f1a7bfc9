package http

import (
	"net/http"

	"financeflow/internal/core"
	"financeflow/internal/log"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	budgets := s.store.ListBudgets(userID)
	log.FromContext(r.Context()).DebugContext(r.Context(), "Listed budgets",
		log.FieldUserID, userID, log.FieldOperation, log.OpList, "count", len(budgets))
	writeJSON(w, http.StatusOK, budgets)
}

// handleSetBudget upserts the budget of the request category.
func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var in core.BudgetInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid budget: "+err.Error())
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid budget: "+err.Error())
		return
	}

	userID := userIDFrom(r.Context())
	b := s.store.UpsertBudget(userID, in)

	log.FromContext(r.Context()).InfoContext(r.Context(), "Budget set",
		log.FieldUserID, userID,
		log.FieldCategory, string(b.Category),
		log.FieldAmount, b.Amount.String())
	writeJSON(w, http.StatusOK, b)
}
