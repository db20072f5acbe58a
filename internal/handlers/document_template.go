package handlers

import (
	"net/http"

	"github.com/diewo77/go-crm/gate"
	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/policy"
	"github.com/diewo77/go-crm/internal/services"
	"github.com/diewo77/go-crm/internal/variables"
)

type DocumentTemplateHandler struct {
	docs  *services.DocumentService
	authz Authorizer
}

func NewDocumentTemplateHandler(docs *services.DocumentService, authz Authorizer) *DocumentTemplateHandler {
	return &DocumentTemplateHandler{docs: docs, authz: authz}
}

type analyzeRequest struct {
	Content   string               `json:"content"`
	Variables []variables.Variable `json:"variables"`
}

type mergeRequest struct {
	TemplateIDs []uint `json:"template_ids"`
}

// generatedView exposes the rendered HTML that the model hides.
type generatedView struct {
	*models.GeneratedDocument
	HTML string `json:"html"`
}

func (h *DocumentTemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	templates, err := h.docs.ListTemplates(r.Context(), identity(r).CompanyID, services.TemplateFilter{
		DocumentType: r.URL.Query().Get("document_type"),
		Active:       boolParam(r, "active"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if templates == nil {
		templates = []models.DocumentTemplate{}
	}
	httpx.JSON(w, http.StatusOK, templates)
}

func (h *DocumentTemplateHandler) load(w http.ResponseWriter, r *http.Request, action gate.Action) (*models.DocumentTemplate, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}
	tpl, err := h.docs.GetTemplate(r.Context(), identity(r).CompanyID, id)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	if !authorize(w, r, h.authz, action, policy.ResourceDocumentTemplate, tpl) {
		return nil, false
	}
	return tpl, true
}

func (h *DocumentTemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	tpl, ok := h.load(w, r, gate.ActionView)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, tpl)
}

func (h *DocumentTemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.TemplateInput
	if !decode(w, r, &in) {
		return
	}
	id := identity(r)
	tpl, err := h.docs.CreateTemplate(r.Context(), id.CompanyID, id.UserID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, tpl)
}

func (h *DocumentTemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	cur, ok := h.load(w, r, gate.ActionUpdate)
	if !ok {
		return
	}
	var in services.TemplateInput
	if !decode(w, r, &in) {
		return
	}
	tpl, err := h.docs.UpdateTemplate(r.Context(), cur.CompanyID, cur.ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tpl)
}

func (h *DocumentTemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	cur, ok := h.load(w, r, gate.ActionDelete)
	if !ok {
		return
	}
	if err := h.docs.DeleteTemplate(r.Context(), cur.CompanyID, cur.ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Variables returns the cached analysis of a stored template.
func (h *DocumentTemplateHandler) Variables(w http.ResponseWriter, r *http.Request) {
	cur, ok := h.load(w, r, gate.ActionAnalyze)
	if !ok {
		return
	}
	analysis, err := h.docs.Analyze(r.Context(), cur.CompanyID, cur.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, analysis)
}

// Analyze detects the variables of markup that is not stored.
func (h *DocumentTemplateHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var in analyzeRequest
	if !decode(w, r, &in) {
		return
	}
	analysis, err := h.docs.AnalyzeMarkup(in.Content, in.Variables)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, analysis)
}

func (h *DocumentTemplateHandler) Merge(w http.ResponseWriter, r *http.Request) {
	var in mergeRequest
	if !decode(w, r, &in) {
		return
	}
	analysis, err := h.docs.Merge(r.Context(), identity(r).CompanyID, in.TemplateIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, analysis)
}

func (h *DocumentTemplateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	cur, ok := h.load(w, r, gate.ActionGenerate)
	if !ok {
		return
	}
	var in services.GenerateInput
	if !decode(w, r, &in) {
		return
	}
	doc, err := h.docs.Generate(r.Context(), cur.CompanyID, identity(r).UserID, cur.ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, generatedView{GeneratedDocument: doc, HTML: doc.HTML})
}
