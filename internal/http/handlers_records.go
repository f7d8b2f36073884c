package http

import (
	"net/http"

	"bukukas/internal/core"
	"bukukas/internal/override"

	"github.com/go-chi/chi/v5"
)

type transactionRequest struct {
	Date        core.Date            `json:"date"`
	Type        core.TransactionType `json:"type"`
	Description string               `json:"description"`
	Amount      Amount               `json:"amount"`
}

type productSaleRequest struct {
	Date  core.Date `json:"date"`
	Total Amount    `json:"total"`
}

type overrideRequest struct {
	TotalRevenue    *Amount `json:"totalRevenue"`
	TotalExpenses   *Amount `json:"totalExpenses"`
	TotalSalaryPaid *Amount `json:"totalSalaryPaid"`
	OwnerSavings    *Amount `json:"ownerSavings"`
	ProductRevenue  *Amount `json:"productRevenue"`
}

func (o overrideRequest) patch() override.Patch {
	return override.Patch{
		TotalRevenue:    o.TotalRevenue.Ptr(),
		TotalExpenses:   o.TotalExpenses.Ptr(),
		TotalSalaryPaid: o.TotalSalaryPaid.Ptr(),
		OwnerSavings:    o.OwnerSavings.Ptr(),
		ProductRevenue:  o.ProductRevenue.Ptr(),
	}
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := DecodeJSON(r, &req, true); err != nil {
		DecodeError(err).Write(w)
		return
	}
	tx, err := s.svc.AddTransaction(r.Context(), core.Transaction{
		Date:        req.Date,
		Type:        req.Type,
		Description: sanitizeInput(req.Description),
		Amount:      req.Amount.Decimal,
	})
	if err != nil {
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(tx).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteTransaction(r.Context(), chi.URLParam(r, "id")); err != nil {
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleAddProductSale(w http.ResponseWriter, r *http.Request) {
	var req productSaleRequest
	if err := DecodeJSON(r, &req, true); err != nil {
		DecodeError(err).Write(w)
		return
	}
	sale, err := s.svc.AddProductSale(r.Context(), core.ProductSale{Date: req.Date, Total: req.Total.Decimal})
	if err != nil {
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(sale).Write(w)
}

func (s *Server) handleDeleteProductSale(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteProductSale(r.Context(), chi.URLParam(r, "id")); err != nil {
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleListOverrides(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Overrides(r.Context())
	if err != nil {
		ServiceError(err).Write(w)
		return
	}
	if items == nil {
		items = []core.Override{}
	}
	NewJSONResponse().Body(items).Write(w)
}

// handleSetOverride merges the sent fields into the override dated {date}.
// Fields left out keep their stored value.
func (s *Server) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	date, err := PathDate(r, "date")
	if err != nil {
		ServiceError(err).Write(w)
		return
	}
	var req overrideRequest
	if err := DecodeJSON(r, &req, true); err != nil {
		DecodeError(err).Write(w)
		return
	}
	p := req.patch()
	if p.IsEmpty() {
		BadRequestError("no override field set").Write(w)
		return
	}
	o, err := s.svc.SetOverride(r.Context(), date, p)
	if err != nil {
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Body(o).Write(w)
}

func (s *Server) handleClearOverride(w http.ResponseWriter, r *http.Request) {
	date, err := PathDate(r, "date")
	if err != nil {
		ServiceError(err).Write(w)
		return
	}
	if err := s.svc.ClearOverride(r.Context(), date); err != nil {
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
