package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cleared-dev/tally/internal/category"
	"github.com/cleared-dev/tally/internal/importer"
	"github.com/cleared-dev/tally/internal/importlog"
	"github.com/cleared-dev/tally/internal/ledger"
	"github.com/cleared-dev/tally/internal/logger"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/review"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type importRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Path) == "" {
		s.writeError(w, http.StatusBadRequest, "request body must be {\"path\": \"...\"}")
		return
	}

	cands, err := s.parser.ParseFile(r.Context(), req.Path)
	if err != nil {
		if importer.IsCanceled(err) {
			logger.FromContext(r.Context()).Debug().Str("path", req.Path).Msg("import canceled")
			return
		}
		s.session.Reset()
		s.logImport(importlog.Entry{
			Source: filepath.Base(req.Path),
			Status: importlog.StatusFailed,
			Detail: importer.Message(err),
		})
		s.writeJSON(w, importStatus(err), map[string]string{
			"error": importer.Message(err),
			"kind":  importer.KindOf(err).String(),
		})
		return
	}

	s.session.Load(cands)
	s.mu.Lock()
	s.source = filepath.Base(req.Path)
	s.mu.Unlock()

	s.writeSession(w, http.StatusCreated)
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	s.writeSession(w, http.StatusOK)
}

func (s *Server) handleResetSession(w http.ResponseWriter, _ *http.Request) {
	s.session.Reset()
	s.writeSession(w, http.StatusOK)
}

func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("category")
	if filter != "" && filter != review.FilterAll {
		if _, ok := category.Lookup(filter); !ok {
			s.writeError(w, http.StatusBadRequest, "unknown category "+strconv.Quote(filter))
			return
		}
	}
	s.writeJSON(w, http.StatusOK, toCandidateResponses(s.session.Candidates(filter)))
}

type filterRequest struct {
	Category string `json:"category"`
}

func (s *Server) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.session.SetFilter(req.Category); err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	s.writeSession(w, http.StatusOK)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Toggle(chi.URLParam(r, "id")); err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	s.writeSession(w, http.StatusOK)
}

func (s *Server) handleSelectAll(w http.ResponseWriter, r *http.Request) {
	if err := s.session.SelectAll(); err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	s.writeSession(w, http.StatusOK)
}

func (s *Server) handleDeselectAll(w http.ResponseWriter, r *http.Request) {
	if err := s.session.DeselectAll(); err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	s.writeSession(w, http.StatusOK)
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	res, err := s.session.CommitWithSummary(r.Context(), s.ledger)
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	n, sum := res.Committed, res.Summary

	if n > 0 {
		s.mu.Lock()
		source := s.source
		s.mu.Unlock()
		s.logImport(importlog.Entry{
			Source:    source,
			Bank:      sum.DetectedBank,
			Parsed:    sum.Total,
			Committed: n,
			Status:    importlog.StatusCommitted,
		})
	}

	s.writeJSON(w, http.StatusOK, map[string]int{"committed": n})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	txs := s.ledger.All()

	if month := r.URL.Query().Get("month"); month != "" {
		start, err := time.Parse("2006-01", month)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
			return
		}
		txs = filterRange(txs, start, start.AddDate(0, 1, 0))
	}
	if label := r.URL.Query().Get("category"); label != "" {
		c, ok := category.Lookup(label)
		if !ok {
			s.writeError(w, http.StatusBadRequest, "unknown category "+strconv.Quote(label))
			return
		}
		txs = filterCategory(txs, c)
	}

	s.writeJSON(w, http.StatusOK, toTransactionResponses(txs))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	err := s.ledger.Delete(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "transaction not found")
	case err != nil:
		logger.FromContext(r.Context()).Error().Err(err).Msg("deleting transaction")
		s.writeError(w, http.StatusInternalServerError, "could not delete transaction")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleLedgerSummary(w http.ResponseWriter, r *http.Request) {
	months := 6
	if v := r.URL.Query().Get("months"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 120 {
			s.writeError(w, http.StatusBadRequest, "months must be between 1 and 120")
			return
		}
		months = n
	}

	now := s.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	resp := ledgerSummaryResponse{
		Month:   toTotalsResponse(s.ledger.Totals(monthStart, monthEnd)),
		AllTime: toTotalsResponse(s.ledger.Totals(time.Time{}, time.Time{})),
	}
	for _, ct := range s.ledger.CategoryBreakdown(monthStart, monthEnd, true) {
		resp.Categories = append(resp.Categories, categoryTotalResponse{
			Category: string(ct.Category),
			Total:    ct.Total.StringFixed(2),
			Count:    ct.Count,
		})
	}
	for _, m := range s.ledger.MonthlySeries(months, now) {
		resp.Series = append(resp.Series, monthResponse{
			Month:    m.Month.Format("2006-01"),
			Income:   m.Income.StringFixed(2),
			Expenses: m.Expenses.StringFixed(2),
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// Helper methods

func (s *Server) writeSession(w http.ResponseWriter, status int) {
	resp := toSessionResponse(s.session.Summary(), s.session.Breakdown(breakdownLimit))
	s.writeJSON(w, status, map[string]any{
		"session":    resp,
		"candidates": toCandidateResponses(s.session.Candidates(review.FilterAll)),
	})
}

func (s *Server) writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, review.ErrUnknownCategory):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, review.ErrCandidateNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, review.ErrAlreadyCommitted), errors.Is(err, review.ErrCommitInProgress):
		s.writeError(w, http.StatusConflict, err.Error())
	default:
		logger.FromContext(r.Context()).Error().Err(err).Msg("session operation failed")
		s.writeError(w, http.StatusInternalServerError, "could not save transactions")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) logImport(e importlog.Entry) {
	if s.dataDir == "" {
		return
	}
	e.Timestamp = s.now()
	if err := importlog.Append(s.dataDir, []importlog.Entry{e}); err != nil {
		s.log.Warn().Err(err).Msg("failed to write import log")
	}
}

func importStatus(err error) int {
	switch importer.KindOf(err) {
	case importer.KindUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case importer.KindAccessDenied:
		return http.StatusForbidden
	case importer.KindNetworkUnavailable:
		return http.StatusServiceUnavailable
	case importer.KindServerError:
		return http.StatusBadGateway
	case importer.KindEmptyResult:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func filterRange(txs []model.Transaction, from, to time.Time) []model.Transaction {
	out := make([]model.Transaction, 0, len(txs))
	for _, tx := range txs {
		if !tx.Date.Before(from) && tx.Date.Before(to) {
			out = append(out, tx)
		}
	}
	return out
}

func filterCategory(txs []model.Transaction, c model.Category) []model.Transaction {
	out := make([]model.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Category == c {
			out = append(out, tx)
		}
	}
	return out
}
