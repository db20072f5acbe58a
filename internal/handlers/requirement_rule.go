package handlers

import (
	"net/http"

	"github.com/diewo77/go-crm/gate"
	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/policy"
	"github.com/diewo77/go-crm/internal/requirements"
	"github.com/diewo77/go-crm/internal/services"
)

type RequirementRuleHandler struct {
	svc   *services.RuleService
	authz Authorizer
}

func NewRequirementRuleHandler(svc *services.RuleService, authz Authorizer) *RequirementRuleHandler {
	return &RequirementRuleHandler{svc: svc, authz: authz}
}

// ruleView renders a stored rule in the evaluator's JSON shape.
func ruleView(m *models.DocumentRequirementRule) requirements.Rule {
	return m.Rule()
}

func (h *RequirementRuleHandler) List(w http.ResponseWriter, r *http.Request) {
	active := boolParam(r, "active")
	stored, err := h.svc.List(r.Context(), identity(r).CompanyID, active != nil && *active)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]requirements.Rule, len(stored))
	for i := range stored {
		out[i] = ruleView(&stored[i])
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *RequirementRuleHandler) load(w http.ResponseWriter, r *http.Request, action gate.Action) (*models.DocumentRequirementRule, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}
	rule, err := h.svc.Get(r.Context(), identity(r).CompanyID, id)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	if !authorize(w, r, h.authz, action, policy.ResourceRequirementRule, rule) {
		return nil, false
	}
	return rule, true
}

func (h *RequirementRuleHandler) Get(w http.ResponseWriter, r *http.Request) {
	rule, ok := h.load(w, r, gate.ActionView)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, ruleView(rule))
}

func (h *RequirementRuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.RuleInput
	if !decode(w, r, &in) {
		return
	}
	rule, err := h.svc.Create(r.Context(), identity(r).CompanyID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ruleView(rule))
}

func (h *RequirementRuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	cur, ok := h.load(w, r, gate.ActionUpdate)
	if !ok {
		return
	}
	var in services.RuleInput
	if !decode(w, r, &in) {
		return
	}
	rule, err := h.svc.Update(r.Context(), cur.CompanyID, cur.ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ruleView(rule))
}

func (h *RequirementRuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

// Evaluate runs the company's active rules against a posted order context.
func (h *RequirementRuleHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var order requirements.OrderContext
	if !decode(w, r, &order) {
		return
	}
	res, err := h.svc.Evaluate(r.Context(), identity(r).CompanyID, order)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}
