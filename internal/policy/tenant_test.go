package policy_test

import (
	"context"
	"testing"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/gate"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/policy"
)

type unscoped struct{}

func staffCtx(userID, companyID uint) context.Context {
	return auth.WithIdentity(context.Background(), auth.Identity{UserID: userID, CompanyID: companyID})
}

func TestTenantPolicy_NilResource(t *testing.T) {
	p := policy.NewTenantPolicy()
	if !p.Can(staffCtx(1, 1), 1, gate.ActionList, nil) {
		t.Error("expected list without resource to be allowed")
	}
}

func TestTenantPolicy_SameCompany(t *testing.T) {
	p := policy.NewTenantPolicy()
	inv := &models.Invoice{CompanyID: 7, ClientID: 3}
	if !p.Can(staffCtx(1, 7), 1, gate.ActionView, inv) {
		t.Error("expected staff of the same company to be allowed")
	}
}

func TestTenantPolicy_OtherCompanyDenied(t *testing.T) {
	p := policy.NewTenantPolicy()
	inv := &models.Invoice{CompanyID: 7}
	if p.Can(staffCtx(1, 8), 1, gate.ActionView, inv) {
		t.Error("expected cross-tenant access to be denied")
	}
}

func TestTenantPolicy_NoIdentityDenied(t *testing.T) {
	p := policy.NewTenantPolicy()
	if p.Can(context.Background(), 1, gate.ActionView, &models.Product{CompanyID: 1}) {
		t.Error("expected access without identity to be denied")
	}
	if p.Can(staffCtx(2, 1), 1, gate.ActionView, &models.Product{CompanyID: 1}) {
		t.Error("expected identity for another user to be denied")
	}
}

func TestTenantPolicy_NonTenantDenied(t *testing.T) {
	p := policy.NewTenantPolicy()
	if p.Can(staffCtx(1, 1), 1, gate.ActionView, &unscoped{}) {
		t.Error("expected resource without company to be denied")
	}
}

func TestTenantPolicy_PortalUser(t *testing.T) {
	p := policy.NewTenantPolicy()
	ctx := auth.WithIdentity(context.Background(), auth.Identity{UserID: 5, CompanyID: 7, ClientID: 3})

	if !p.Can(ctx, 5, gate.ActionView, &models.Invoice{CompanyID: 7, ClientID: 3}) {
		t.Error("expected client to see own invoice")
	}
	if p.Can(ctx, 5, gate.ActionView, &models.Invoice{CompanyID: 7, ClientID: 4}) {
		t.Error("expected client to be denied another client's invoice")
	}
	if p.Can(ctx, 5, gate.ActionView, &models.Product{CompanyID: 7}) {
		t.Error("expected client to be denied non client-scoped resources")
	}
}
