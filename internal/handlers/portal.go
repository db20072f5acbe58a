package handlers

import (
	"net/http"

	"github.com/diewo77/go-crm/gate"
	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/policy"
	"github.com/diewo77/go-crm/internal/services"
)

// PortalHandler serves client users. Drafts are never shown to them.
type PortalHandler struct {
	invoices *services.InvoiceService
	payments *services.PaymentService
	authz    Authorizer
}

func NewPortalHandler(invoices *services.InvoiceService, payments *services.PaymentService, authz Authorizer) *PortalHandler {
	return &PortalHandler{invoices: invoices, payments: payments, authz: authz}
}

func (h *PortalHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	page, size := httpx.Page(r, 20)
	invoices, total, err := h.invoices.List(r.Context(), id.CompanyID, services.InvoiceFilter{
		ClientID:      id.ClientID,
		ExcludeDrafts: true,
		Status:        r.URL.Query().Get("status"),
		Page:          page,
		PerPage:       size,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	items := make([]invoiceView, len(invoices))
	for i := range invoices {
		items[i] = newInvoiceView(&invoices[i], nil)
	}
	httpx.JSON(w, http.StatusOK, httpx.Paged[invoiceView]{Items: items, Total: total, Page: page, PerPage: size})
}

func (h *PortalHandler) load(w http.ResponseWriter, r *http.Request, action gate.Action) (*models.Invoice, bool) {
	invoiceID, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}
	inv, err := h.invoices.Get(r.Context(), identity(r).CompanyID, invoiceID)
	if err == nil && inv.Status == models.InvoiceStatusDraft {
		err = services.ErrNotFound
	}
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	if h.authz != nil && h.authz.Authorize(r.Context(), action, policy.ResourcePortal, inv) != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return nil, false
	}
	return inv, true
}

func (h *PortalHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.load(w, r, gate.ActionView)
	if !ok {
		return
	}
	payments, err := h.payments.List(r.Context(), inv.CompanyID, inv.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newInvoiceView(inv, payments))
}

// Pay records a completed card payment on one of the client's invoices.
func (h *PortalHandler) Pay(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.load(w, r, gate.ActionPay)
	if !ok {
		return
	}
	var in services.PaymentInput
	if !decode(w, r, &in) {
		return
	}
	id := identity(r)
	res, err := h.payments.PortalPay(r.Context(), id.CompanyID, id.ClientID, id.UserID, inv.ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, res)
}
