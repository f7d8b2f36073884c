package http

import (
	"net/http"

	"bukukas/internal/core"

	"github.com/go-chi/chi/v5"
)

// handleSaveEntry captures one employee's work for one day. The body uses
// the stored record shape; any snapshot fields sent by the client are
// ignored and recomputed.
func (s *Server) handleSaveEntry(w http.ResponseWriter, r *http.Request) {
	var entry core.DailyEntry
	if err := DecodeJSON(r, &entry, false); err != nil {
		DecodeError(err).Write(w)
		return
	}
	entry.Snapshot = nil
	entry.EmployeeID = sanitizeInput(entry.EmployeeID)
	line, err := s.svc.SaveEntry(r.Context(), entry)
	if err != nil {
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Body(line).Write(w)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	date, err := PathDate(r, "date")
	if err != nil {
		ServiceError(err).Write(w)
		return
	}
	if err := s.svc.DeleteEntry(r.Context(), date, chi.URLParam(r, "employeeID")); err != nil {
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleDailyRecap(w http.ResponseWriter, r *http.Request) {
	date, err := PathDate(r, "date")
	if err != nil {
		ServiceError(err).Write(w)
		return
	}
	recap, err := s.svc.DailyRecap(r.Context(), date)
	if err != nil {
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Body(recap).Write(w)
}

func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request) {
	date, err := PathDate(r, "date")
	if err != nil {
		ServiceError(err).Write(w)
		return
	}
	payroll, err := s.svc.RecomputeSnapshots(r.Context(), date)
	if err != nil {
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Body(payroll).Write(w)
}
