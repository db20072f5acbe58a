// Package handlers exposes the CRM over a JSON API.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/gate"
	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/i18n"
	"github.com/diewo77/go-crm/internal/services"
	"github.com/rs/zerolog"
)

// Authorizer is satisfied by policy.AuthGate.
type Authorizer interface {
	Authorize(ctx context.Context, action gate.Action, resourceType string, resource any) error
}

// writeError maps service errors to status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *services.ValidationError
	var missing *services.MissingDocumentsError
	switch {
	case errors.As(err, &verr):
		lang := i18n.FromContext(r.Context())
		httpx.JSONViolations(w, verr.Violations, i18n.Translate(lang, verr.Violations))
	case errors.As(err, &missing):
		httpx.JSONError(w, http.StatusConflict, "required_documents_missing", missing.Documents)
	case errors.Is(err, services.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	case errors.Is(err, services.ErrInvoiceNotEditable):
		httpx.JSONError(w, http.StatusConflict, "invoice_not_editable", nil)
	case errors.Is(err, services.ErrInvalidTransition):
		httpx.JSONError(w, http.StatusConflict, "invalid_transition", nil)
	case errors.Is(err, services.ErrInvoiceNotPayable):
		httpx.JSONError(w, http.StatusConflict, "invoice_not_payable", nil)
	case errors.Is(err, services.ErrInvalidPaymentState):
		httpx.JSONError(w, http.StatusConflict, "invalid_payment_state", nil)
	case errors.Is(err, services.ErrEmailTaken):
		httpx.JSONError(w, http.StatusConflict, "email_taken", nil)
	case errors.Is(err, services.ErrInvalidCredentials):
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
	case errors.Is(err, services.ErrTemplateInactive):
		httpx.JSONError(w, http.StatusConflict, "template_inactive", nil)
	case errors.Is(err, gate.ErrUnauthorized):
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

// decode reads the body into dst and answers 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(w, r, dst); err != nil {
		if errors.Is(err, httpx.ErrEmptyBody) {
			httpx.JSONError(w, http.StatusBadRequest, "empty_body", nil)
		} else {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		}
		return false
	}
	return true
}

// pathID reads a numeric path value and answers 400 when it is not one.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	id, ok := httpx.PathID(r, name)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
	}
	return id, ok
}

func identity(r *http.Request) auth.Identity {
	id, _ := auth.IdentityFromContext(r.Context())
	return id
}

// authorize runs the tenant check on a loaded resource.
func authorize(w http.ResponseWriter, r *http.Request, authz Authorizer, action gate.Action, resourceType string, resource any) bool {
	if authz == nil {
		return true
	}
	if err := authz.Authorize(r.Context(), action, resourceType, resource); err != nil {
		writeError(w, r, err)
		return false
	}
	return true
}

// boolParam parses ?name=true|false; anything else means unset.
func boolParam(r *http.Request, name string) *bool {
	switch r.URL.Query().Get(name) {
	case "true", "1":
		v := true
		return &v
	case "false", "0":
		v := false
		return &v
	}
	return nil
}
