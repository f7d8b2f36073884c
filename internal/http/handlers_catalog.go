package http

import (
	"io"
	"net/http"

	"bukukas/internal/core"

	"github.com/go-chi/chi/v5"
)

type serviceRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Price     Amount `json:"price"`
	Bonusable bool   `json:"bonusable"`
}

type employeeRequest struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Role core.Role `json:"role"`
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.svc.Document(r.Context())
	if err != nil {
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Body(doc).Write(w)
}

// handlePutDocument imports a whole document, e.g. a backup.
func (s *Server) handlePutDocument(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		BadRequestError("cannot read body").Write(w)
		return
	}
	if len(body) > maxBodyBytes {
		ErrorResponse(http.StatusRequestEntityTooLarge, "request body too large").Write(w)
		return
	}
	doc, err := core.DecodeDocument(body)
	if err != nil {
		ServiceError(err).Write(w)
		return
	}
	saved, err := s.svc.ReplaceDocument(r.Context(), doc)
	if err != nil {
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Body(saved).Write(w)
}

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	doc, err := s.svc.Document(r.Context())
	if err != nil {
		ServiceError(err).Write(w)
		return
	}
	out := doc.Services
	if out == nil {
		out = []core.Service{}
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleUpsertService(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if err := DecodeJSON(r, &req, true); err != nil {
		DecodeError(err).Write(w)
		return
	}
	svc, err := s.svc.UpsertService(r.Context(), core.Service{
		ID:        sanitizeInput(req.ID),
		Name:      sanitizeInput(req.Name),
		Price:     req.Price.Decimal,
		Bonusable: req.Bonusable,
	})
	if err != nil {
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Body(svc).Write(w)
}

func (s *Server) handleDeleteService(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteService(r.Context(), chi.URLParam(r, "id")); err != nil {
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	doc, err := s.svc.Document(r.Context())
	if err != nil {
		ServiceError(err).Write(w)
		return
	}
	out := doc.Employees
	if out == nil {
		out = []core.Employee{}
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleUpsertEmployee(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if err := DecodeJSON(r, &req, true); err != nil {
		DecodeError(err).Write(w)
		return
	}
	emp, err := s.svc.UpsertEmployee(r.Context(), core.Employee{
		ID:   sanitizeInput(req.ID),
		Name: sanitizeInput(req.Name),
		Role: req.Role,
	})
	if err != nil {
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Body(emp).Write(w)
}

func (s *Server) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteEmployee(r.Context(), chi.URLParam(r, "id")); err != nil {
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
