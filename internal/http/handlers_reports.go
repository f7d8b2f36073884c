package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"bukukas/internal/amqp"
	"bukukas/internal/storage"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type exportRequest struct {
	Kind   amqp.ExportKind `json:"kind"`
	Period string          `json:"period"`
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	month, err := PathMonth(r, "month")
	if err != nil {
		ServiceError(err).Write(w)
		return
	}
	rep, err := s.svc.MonthlyReport(r.Context(), month)
	if err != nil {
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Body(rep).Write(w)
}

func (s *Server) handleMonthXLSX(w http.ResponseWriter, r *http.Request) {
	month, err := PathMonth(r, "month")
	if err != nil {
		ServiceError(err).Write(w)
		return
	}
	data, err := s.svc.WriteMonthXLSX(r.Context(), month)
	if err != nil {
		ServiceError(err).Write(w)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", attachment(fmt.Sprintf("bukukas-%s.xlsx", month)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleMonthCSV writes one monthly table, picked by the "table" query
// parameter (default "ringkasan").
func (s *Server) handleMonthCSV(w http.ResponseWriter, r *http.Request) {
	month, err := PathMonth(r, "month")
	if err != nil {
		ServiceError(err).Write(w)
		return
	}
	table := strings.TrimSpace(r.URL.Query().Get("table"))
	if table == "" {
		table = "ringkasan"
	}
	var buf bytes.Buffer
	if err := s.svc.WriteMonthCSV(r.Context(), &buf, month, table); err != nil {
		ServiceError(err).Write(w)
		return
	}
	writeCSV(w, fmt.Sprintf("bukukas-%s-%s.csv", month, strings.ToLower(table)), buf.Bytes())
}

func (s *Server) handleDayCSV(w http.ResponseWriter, r *http.Request) {
	date, err := PathDate(r, "date")
	if err != nil {
		ServiceError(err).Write(w)
		return
	}
	var buf bytes.Buffer
	if err := s.svc.WriteDayCSV(r.Context(), &buf, date); err != nil {
		ServiceError(err).Write(w)
		return
	}
	writeCSV(w, fmt.Sprintf("bukukas-%s.csv", date), buf.Bytes())
}

// handleRequestExport queues a spreadsheet export for the worker.
func (s *Server) handleRequestExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := DecodeJSON(r, &req, true); err != nil {
		DecodeError(err).Write(w)
		return
	}
	if req.Kind == "" {
		req.Kind = amqp.ExportMonthly
	}
	if req.Kind != amqp.ExportMonthly && req.Kind != amqp.ExportDaily {
		ErrorResponse(http.StatusUnprocessableEntity, fmt.Sprintf("unknown export kind %q", req.Kind)).Write(w)
		return
	}
	msg, err := s.svc.RequestExport(r.Context(), req.Kind, sanitizeInput(req.Period))
	if err != nil {
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusAccepted).Body(msg).Write(w)
}

func (s *Server) handleExportHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.svc.ExportHistory(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		ServiceError(err).Write(w)
		return
	}
	if history == nil {
		history = []storage.ExportRecord{}
	}
	NewJSONResponse().Body(history).Write(w)
}

func writeCSV(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func attachment(filename string) string {
	return fmt.Sprintf("attachment; filename=%q", filename)
}
