package http

import (
	"errors"
	"net/http"
	"strconv"

	"saralfin/internal/core"
	"saralfin/internal/history"
)

type transactionList struct {
	Query        history.Query      `json:"query"`
	Count        int                `json:"count"`
	Transactions []core.Transaction `json:"transactions"`
	// StaleCategories lists ids saved under a category no longer offered.
	StaleCategories []int64 `json:"staleCategories,omitempty"`
	ExportURL       string  `json:"exportUrl"`
}

type budgetBody struct {
	Budget core.Amount `json:"budget"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := history.ParseQuery(r.URL.Query())
	txs := history.FilterAndSort(s.svc.Store().Transactions(), q)
	if txs == nil {
		txs = []core.Transaction{}
	}
	var stale []int64
	for _, t := range txs {
		if !core.IsKnownCategory(t.Type, t.Category) {
			stale = append(stale, t.ID)
		}
	}
	NewJSONResponse().Data(transactionList{
		Query:           q,
		Count:           len(txs),
		Transactions:    txs,
		StaleCategories: stale,
		ExportURL:       "/export/transactions.csv?" + q.Values().Encode(),
	}).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	draft, err := ParseDraft(NewRequestBodyParser(r), s.today())
	if err != nil {
		writeInputError(w, r, err)
		return
	}

	t, err := s.svc.CreateTransaction(r.Context(), draft)
	if err != nil {
		if isValidationError(err) {
			UnprocessableEntityError(err.Error()).Write(w)
			return
		}
		logFor(r).ErrorContext(r.Context(), "Create transaction failed", "error", err)
		InternalServerError("could not save transaction").Write(w)
		return
	}

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+strconv.FormatInt(t.ID, 10)).
		Data(t).
		Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		BadRequestError("invalid transaction id").Write(w)
		return
	}
	t, ok := s.svc.Store().Find(id)
	if !ok {
		NotFoundError("transaction not found").Write(w)
		return
	}
	NewJSONResponse().Data(t).Write(w)
}

// handleDeleteTransaction answers 204 whether or not the id existed.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		BadRequestError("invalid transaction id").Write(w)
		return
	}

	if _, err := s.svc.DeleteTransaction(r.Context(), id); err != nil {
		logFor(r).ErrorContext(r.Context(), "Delete transaction failed", "id", id, "error", err)
		InternalServerError("could not delete transaction").Write(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(budgetBody{Budget: s.svc.Store().Budget()}).Write(w)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	amount, err := ParseBudget(NewRequestBodyParser(r))
	if err != nil {
		writeInputError(w, r, err)
		return
	}

	if err := s.svc.SetBudget(r.Context(), amount); err != nil {
		if isValidationError(err) {
			UnprocessableEntityError(err.Error()).Write(w)
			return
		}
		logFor(r).ErrorContext(r.Context(), "Set budget failed", "error", err)
		InternalServerError("could not save budget").Write(w)
		return
	}
	NewJSONResponse().Data(budgetBody{Budget: amount}).Write(w)
}

// writeInputError maps request parsing failures: validation problems are 422,
// anything else about the body is 400.
func writeInputError(w http.ResponseWriter, r *http.Request, err error) {
	if isValidationError(err) {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	if !errors.Is(err, errMalformedBody) {
		logFor(r).WarnContext(r.Context(), "Unreadable request body", "error", err)
	}
	BadRequestError(err.Error()).Write(w)
}
