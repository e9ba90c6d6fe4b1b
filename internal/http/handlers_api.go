package http

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	"finance/internal/core"
	"finance/internal/log"
	"finance/internal/store"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.svc.ListTransactions(r.Context())
	if err != nil {
		s.storeFailure(w, r, "List transactions failed", err, log.OpList)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.svc.GetTransaction(r.Context(), r.PathValue("id"))
	if err != nil {
		s.storeFailure(w, r, "Get transaction failed", err, log.OpRead)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	in, err := decodeTransaction(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tx, err := s.create(r.Context(), in)
	if err != nil {
		s.storeFailure(w, r, "Create transaction failed", err, log.OpCreate)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

// handleUpdateTransaction replaces every editable field of the record.
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	in, err := decodeTransaction(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tx, err := s.update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		s.storeFailure(w, r, "Update transaction failed", err, log.OpUpdate)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.delete(r.Context(), r.PathValue("id")); err != nil {
		s.storeFailure(w, r, "Delete transaction failed", err, log.OpDelete)
		return
	}
	writeJSON(w, http.StatusOK, errorResponse{Message: "transaction deleted"})
}

// handleSummary serves the derived totals, breakdown and daily series.
// order=chronological builds the daily series oldest day first.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	var chronological bool
	switch order := r.URL.Query().Get("order"); order {
	case "":
	case "chronological":
		chronological = true
	default:
		writeError(w, http.StatusBadRequest, "order must be empty or \"chronological\"")
		return
	}
	summary, err := s.svc.Summary(r.Context(), chronological)
	if err != nil {
		s.storeFailure(w, r, "Summary failed", err, log.OpSummary)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) create(ctx context.Context, in core.Transaction) (core.Transaction, error) {
	tx, err := s.svc.CreateTransaction(ctx, in)
	if err != nil {
		return core.Transaction{}, err
	}
	atomic.AddInt64(&s.metrics.created, 1)
	s.events.LogTransactionWritten(ctx, log.OpCreate, tx.ID, tx.Type.String(), float64(tx.Amount))
	return tx, nil
}

func (s *Server) update(ctx context.Context, id string, in core.Transaction) (core.Transaction, error) {
	tx, err := s.svc.UpdateTransaction(ctx, id, in)
	if err != nil {
		return core.Transaction{}, err
	}
	atomic.AddInt64(&s.metrics.updated, 1)
	s.events.LogTransactionWritten(ctx, log.OpUpdate, tx.ID, tx.Type.String(), float64(tx.Amount))
	return tx, nil
}

func (s *Server) delete(ctx context.Context, id string) error {
	if err := s.svc.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	atomic.AddInt64(&s.metrics.deleted, 1)
	s.events.LogTransactionWritten(ctx, log.OpDelete, id, "", 0)
	return nil
}

// storeFailure maps ErrNotFound to 404 and everything else to 500.
func (s *Server) storeFailure(w http.ResponseWriter, r *http.Request, msg string, err error, op string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	s.events.LogError(r.Context(), msg, err, log.ComponentStorage, op,
		log.NewFields().WithRequestID(getRequestID(r)))
	writeError(w, http.StatusInternalServerError, "internal server error")
}
