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

type DocumentHandler struct {
	docs  *services.DocumentService
	authz Authorizer
}

func NewDocumentHandler(docs *services.DocumentService, authz Authorizer) *DocumentHandler {
	return &DocumentHandler{docs: docs, authz: authz}
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	page, size := httpx.Page(r, 20)
	f := services.DocumentFilter{Page: page, PerPage: size}
	if id, err := strconv.ParseUint(r.URL.Query().Get("invoice_id"), 10, 64); err == nil {
		f.InvoiceID = uint(id)
	}
	docs, total, err := h.docs.ListDocuments(r.Context(), identity(r).CompanyID, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if docs == nil {
		docs = []models.GeneratedDocument{}
	}
	httpx.JSON(w, http.StatusOK, httpx.Paged[models.GeneratedDocument]{Items: docs, Total: total, Page: page, PerPage: size})
}

// Get serves the rendered document as HTML.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.docs.GetDocument(r.Context(), identity(r).CompanyID, r.PathValue("token"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !authorize(w, r, h.authz, gate.ActionView, policy.ResourceDocument, doc) {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc.HTML))
}
