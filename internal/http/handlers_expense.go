package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"financeflow/internal/core"
	"financeflow/internal/log"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	expenses := s.store.ListExpenses(userID)
	log.FromContext(r.Context()).DebugContext(r.Context(), "Listed expenses",
		log.FieldUserID, userID, log.FieldOperation, log.OpList, "count", len(expenses))
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var in core.ExpenseInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid expense: "+err.Error())
		return
	}
	in.Description = sanitizeInput(in.Description)
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid expense: "+err.Error())
		return
	}

	userID := userIDFrom(r.Context())
	e := s.store.CreateExpense(userID, in)

	log.FromContext(r.Context()).InfoContext(r.Context(), "Expense created",
		log.NewFields().
			WithExpense(e.ID, userID, string(e.Category), e.Amount.String()).
			WithOperation(log.OpCreate).
			ToSlice()...)

	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var patch core.ExpensePatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid expense: "+err.Error())
		return
	}
	if patch.Description != nil {
		desc := sanitizeInput(*patch.Description)
		patch.Description = &desc
	}
	if err := patch.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid expense: "+err.Error())
		return
	}

	userID := userIDFrom(r.Context())
	e, err := s.store.UpdateExpense(userID, chi.URLParam(r, "id"), patch)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "Expense not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Expense updated",
		log.FieldExpenseID, e.ID, log.FieldUserID, userID, log.FieldOperation, log.OpUpdate)
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteExpense(userID, id); errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "Expense not found")
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Expense deleted",
		log.FieldExpenseID, id, log.FieldUserID, userID, log.FieldOperation, log.OpDelete)
	w.WriteHeader(http.StatusNoContent)
}
