package handlers

import (
	"net/http"
	"strconv"

	"github.com/diewo77/go-crm/gate"
	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/policy"
	"github.com/diewo77/go-crm/internal/services"
)

type InvoiceHandler struct {
	invoices *services.InvoiceService
	payments *services.PaymentService
	authz    Authorizer
}

func NewInvoiceHandler(invoices *services.InvoiceService, payments *services.PaymentService, authz Authorizer) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, payments: payments, authz: authz}
}

// invoiceView adds computed totals to an invoice.
type invoiceView struct {
	*models.Invoice
	Subtotal   float64 `json:"subtotal"`
	VATTotal   float64 `json:"vat_total"`
	Total      float64 `json:"total"`
	AmountPaid float64 `json:"amount_paid,omitempty"`
	AmountDue  float64 `json:"amount_due,omitempty"`
}

func newInvoiceView(inv *models.Invoice, payments []models.Payment) invoiceView {
	v := invoiceView{Invoice: inv, Subtotal: inv.Subtotal(), VATTotal: inv.VATTotal(), Total: inv.Total()}
	if payments != nil {
		v.AmountPaid = models.AmountPaid(payments)
		v.AmountDue = models.Round2(v.Total - v.AmountPaid)
		if v.AmountDue < 0 {
			v.AmountDue = 0
		}
	}
	return v
}

func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	page, size := httpx.Page(r, 20)
	f := services.InvoiceFilter{Status: r.URL.Query().Get("status"), Page: page, PerPage: size}
	if cid, err := strconv.ParseUint(r.URL.Query().Get("client_id"), 10, 64); err == nil {
		f.ClientID = uint(cid)
	}
	invoices, total, err := h.invoices.List(r.Context(), identity(r).CompanyID, f)
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

func (h *InvoiceHandler) load(w http.ResponseWriter, r *http.Request, action gate.Action) (*models.Invoice, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}
	inv, err := h.invoices.Get(r.Context(), identity(r).CompanyID, id)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	if !authorize(w, r, h.authz, action, policy.ResourceInvoice, inv) {
		return nil, false
	}
	return inv, true
}

func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
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

func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.InvoiceInput
	if !decode(w, r, &in) {
		return
	}
	id := identity(r)
	inv, err := h.invoices.Create(r.Context(), id.CompanyID, id.UserID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, newInvoiceView(inv, nil))
}

func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	cur, ok := h.load(w, r, gate.ActionUpdate)
	if !ok {
		return
	}
	var in services.InvoiceInput
	if !decode(w, r, &in) {
		return
	}
	inv, err := h.invoices.Update(r.Context(), cur.CompanyID, cur.ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newInvoiceView(inv, nil))
}

func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	cur, ok := h.load(w, r, gate.ActionDelete)
	if !ok {
		return
	}
	if err := h.invoices.Delete(r.Context(), cur.CompanyID, cur.ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *InvoiceHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	cur, ok := h.load(w, r, gate.ActionUpdate)
	if !ok {
		return
	}
	var in services.ItemInput
	if !decode(w, r, &in) {
		return
	}
	inv, err := h.invoices.AddItem(r.Context(), cur.CompanyID, cur.ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, newInvoiceView(inv, nil))
}

func (h *InvoiceHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cur, ok := h.load(w, r, gate.ActionUpdate)
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "item_id")
	if !ok {
		return
	}
	inv, err := h.invoices.RemoveItem(r.Context(), cur.CompanyID, cur.ID, itemID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newInvoiceView(inv, nil))
}

// Finalize answers 409 with the missing documents when enforcement is on.
func (h *InvoiceHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	cur, ok := h.load(w, r, gate.ActionFinalize)
	if !ok {
		return
	}
	inv, err := h.invoices.Finalize(r.Context(), cur.CompanyID, cur.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newInvoiceView(inv, nil))
}

func (h *InvoiceHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	cur, ok := h.load(w, r, gate.ActionCancel)
	if !ok {
		return
	}
	inv, err := h.invoices.Cancel(r.Context(), cur.CompanyID, cur.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newInvoiceView(inv, nil))
}

type requirementsResponse struct {
	*services.RequirementsReport
	Complete bool `json:"complete"`
}

func (h *InvoiceHandler) Requirements(w http.ResponseWriter, r *http.Request) {
	cur, ok := h.load(w, r, gate.ActionView)
	if !ok {
		return
	}
	report, err := h.invoices.Requirements(r.Context(), cur.CompanyID, cur.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, requirementsResponse{RequirementsReport: report, Complete: report.Complete()})
}

func (h *InvoiceHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	cur, ok := h.load(w, r, gate.ActionView)
	if !ok {
		return
	}
	payments, err := h.payments.List(r.Context(), cur.CompanyID, cur.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	httpx.JSON(w, http.StatusOK, payments)
}

func (h *InvoiceHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	cur, ok := h.load(w, r, gate.ActionView)
	if !ok {
		return
	}
	var in services.PaymentInput
	if !decode(w, r, &in) {
		return
	}
	res, err := h.payments.Record(r.Context(), cur.CompanyID, identity(r).UserID, cur.ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, res)
}
