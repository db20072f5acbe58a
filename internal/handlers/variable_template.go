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

type VariableTemplateHandler struct {
	svc   *services.VariableTemplateService
	authz Authorizer
}

func NewVariableTemplateHandler(svc *services.VariableTemplateService, authz Authorizer) *VariableTemplateHandler {
	return &VariableTemplateHandler{svc: svc, authz: authz}
}

type linkRequest struct {
	DocumentTemplateIDs []uint `json:"document_template_ids"`
}

// List filters by ?category=, ?active= and ?document_template_id=.
func (h *VariableTemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	f := services.VariableTemplateFilter{
		Category: r.URL.Query().Get("category"),
		Active:   boolParam(r, "active"),
	}
	if id, err := strconv.ParseUint(r.URL.Query().Get("document_template_id"), 10, 64); err == nil {
		f.DocumentTemplateID = uint(id)
	}
	sets, err := h.svc.List(r.Context(), identity(r).CompanyID, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if sets == nil {
		sets = []models.VariableTemplate{}
	}
	httpx.JSON(w, http.StatusOK, sets)
}

func (h *VariableTemplateHandler) load(w http.ResponseWriter, r *http.Request, action gate.Action) (*models.VariableTemplate, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}
	vt, err := h.svc.Get(r.Context(), identity(r).CompanyID, id)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	if !authorize(w, r, h.authz, action, policy.ResourceVariableTemplate, vt) {
		return nil, false
	}
	return vt, true
}

func (h *VariableTemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	vt, ok := h.load(w, r, gate.ActionView)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, vt)
}

func (h *VariableTemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.VariableTemplateInput
	if !decode(w, r, &in) {
		return
	}
	id := identity(r)
	vt, err := h.svc.Create(r.Context(), id.CompanyID, id.UserID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, vt)
}

func (h *VariableTemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	cur, ok := h.load(w, r, gate.ActionUpdate)
	if !ok {
		return
	}
	var in services.VariableTemplateInput
	if !decode(w, r, &in) {
		return
	}
	vt, err := h.svc.Update(r.Context(), cur.CompanyID, cur.ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, vt)
}

func (h *VariableTemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	cur, ok := h.load(w, r, gate.ActionDelete)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), cur.CompanyID, cur.ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *VariableTemplateHandler) Link(w http.ResponseWriter, r *http.Request) {
	cur, ok := h.load(w, r, gate.ActionUpdate)
	if !ok {
		return
	}
	var in linkRequest
	if !decode(w, r, &in) {
		return
	}
	vt, err := h.svc.Link(r.Context(), cur.CompanyID, cur.ID, in.DocumentTemplateIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, vt)
}
