package policy

import (
	"context"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/gate"
	"github.com/diewo77/go-crm/internal/models"
)

// Resource types, as used in permissions.
const (
	ResourceCompany          = "company"
	ResourceClient           = "client"
	ResourceProduct          = "product"
	ResourceInvoice          = "invoice"
	ResourcePayment          = "payment"
	ResourceDocumentTemplate = "document_template"
	ResourceVariableTemplate = "variable_template"
	ResourceRequirementRule  = "requirement_rule"
	ResourceDocument         = "document"
	ResourceCatalog          = "catalog"
	ResourcePortal           = "portal"
	ResourceUser             = "user"
	ResourceProfile          = "profile"
)

// TenantResources are the resource types guarded by TenantPolicy.
var TenantResources = []string{
	ResourceCompany, ResourceClient, ResourceProduct, ResourceInvoice, ResourcePayment,
	ResourceDocumentTemplate, ResourceVariableTemplate, ResourceRequirementRule,
	ResourceDocument, ResourcePortal, ResourceUser,
}

// TenantPolicy admits a caller to a resource of their own company. Portal
// users must also be the resource's client.
type TenantPolicy struct{}

func NewTenantPolicy() *TenantPolicy {
	return &TenantPolicy{}
}

func (p *TenantPolicy) Can(ctx context.Context, userID uint, _ gate.Action, resource any) bool {
	if resource == nil {
		return true
	}
	t, ok := resource.(models.Tenant)
	if !ok {
		return false
	}
	id, ok := auth.IdentityFromContext(ctx)
	if !ok || id.UserID != userID || id.CompanyID == 0 {
		return false
	}
	if t.GetCompanyID() != id.CompanyID {
		return false
	}
	if !id.IsClient() {
		return true
	}
	scoped, ok := resource.(models.ClientScoped)
	return ok && scoped.GetClientID() == id.ClientID
}

// RegisterTenantPolicies guards every tenant resource with one TenantPolicy.
func (ag *AuthGate) RegisterTenantPolicies() {
	tp := NewTenantPolicy()
	for _, r := range TenantResources {
		ag.RegisterPolicy(r, tp)
	}
}
