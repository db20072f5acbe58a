package policy_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/gate"
	"github.com/diewo77/go-crm/internal/db"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/policy"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.Seed(conn); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return conn
}

func createUser(t *testing.T, conn *gorm.DB, company *models.Company, profile string) *models.User {
	t.Helper()
	pid, err := db.ProfileID(conn, profile)
	if err != nil {
		t.Fatal(err)
	}
	u := &models.User{
		Email:     fmt.Sprintf("%s-%d@example.com", profile, time.Now().UnixNano()),
		Password:  "x",
		CompanyID: company.ID,
		ProfileID: &pid,
	}
	if err := conn.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestAuthGate_ProfileAndTenant(t *testing.T) {
	conn := setupDB(t)
	acme := &models.Company{Name: "Acme", Currency: "SAR"}
	other := &models.Company{Name: "Other", Currency: "SAR"}
	conn.Create(acme)
	conn.Create(other)

	ag := policy.NewAuthGate(conn, time.Minute)
	ag.RegisterTenantPolicies()

	viewer := createUser(t, conn, acme, db.ProfileViewer)
	ctx := auth.WithIdentity(context.Background(), auth.Identity{UserID: viewer.ID, CompanyID: acme.ID})

	if !ag.Can(ctx, gate.ActionView, policy.ResourceInvoice, &models.Invoice{CompanyID: acme.ID}) {
		t.Error("viewer should view own company invoices")
	}
	if ag.Can(ctx, gate.ActionView, policy.ResourceInvoice, &models.Invoice{CompanyID: other.ID}) {
		t.Error("viewer must not view another company's invoices")
	}
	err := ag.Authorize(ctx, gate.ActionCreate, policy.ResourceInvoice, nil)
	if !errors.Is(err, gate.ErrUnauthorized) {
		t.Errorf("viewer create: want ErrUnauthorized, got %v", err)
	}
	if ag.IsAdmin(ctx) {
		t.Error("viewer is not admin")
	}

	admin := createUser(t, conn, acme, db.ProfileAdmin)
	adminCtx := auth.WithIdentity(context.Background(), auth.Identity{UserID: admin.ID, CompanyID: acme.ID})
	if !ag.IsAdmin(adminCtx) {
		t.Error("admin should hold *:*")
	}
	if ag.Can(adminCtx, gate.ActionView, policy.ResourceInvoice, &models.Invoice{CompanyID: other.ID}) {
		t.Error("tenant isolation applies to admins too")
	}
}

func TestAuthGate_RequirePermission(t *testing.T) {
	conn := setupDB(t)
	acme := &models.Company{Name: "Acme", Currency: "SAR"}
	conn.Create(acme)
	ag := policy.NewAuthGate(conn, time.Minute)
	viewer := createUser(t, conn, acme, db.ProfileViewer)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name   string
		id     *auth.Identity
		action gate.Action
		want   int
	}{
		{"anonymous", nil, gate.ActionList, http.StatusUnauthorized},
		{"allowed", &auth.Identity{UserID: viewer.ID, CompanyID: acme.ID}, gate.ActionList, http.StatusNoContent},
		{"forbidden", &auth.Identity{UserID: viewer.ID, CompanyID: acme.ID}, gate.ActionDelete, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/clients", nil)
			if tt.id != nil {
				req = req.WithContext(auth.WithIdentity(req.Context(), *tt.id))
			}
			rr := httptest.NewRecorder()
			ag.RequirePermission(policy.ResourceClient, tt.action)(ok).ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestAuthGate_InvalidateUser(t *testing.T) {
	conn := setupDB(t)
	acme := &models.Company{Name: "Acme", Currency: "SAR"}
	conn.Create(acme)
	ag := policy.NewAuthGate(conn, time.Hour)
	u := createUser(t, conn, acme, db.ProfileViewer)
	ctx := auth.WithIdentity(context.Background(), auth.Identity{UserID: u.ID, CompanyID: acme.ID})

	if ag.CanProfile(ctx, gate.ActionCreate, policy.ResourceClient) {
		t.Fatal("viewer cannot create")
	}
	ownerID, _ := db.ProfileID(conn, db.ProfileOwner)
	conn.Model(u).Update("profile_id", ownerID)

	if ag.CanProfile(ctx, gate.ActionCreate, policy.ResourceClient) {
		t.Fatal("cached profile should still apply")
	}
	ag.InvalidateUser(u.ID)
	if !ag.CanProfile(ctx, gate.ActionCreate, policy.ResourceClient) {
		t.Error("owner profile should apply after invalidation")
	}
}

func TestIdentityResolver(t *testing.T) {
	conn := setupDB(t)
	acme := &models.Company{Name: "Acme", Currency: "SAR"}
	conn.Create(acme)
	client := &models.Client{CompanyID: acme.ID, Name: "Jane", Type: models.ClientTypeIndividual}
	conn.Create(client)
	u := createUser(t, conn, acme, db.ProfileClient)
	conn.Model(u).Update("client_id", client.ID)

	resolve := policy.IdentityResolver(conn)
	id, ok, err := resolve(context.Background(), u.ID)
	if err != nil || !ok {
		t.Fatalf("resolve: ok=%v err=%v", ok, err)
	}
	if id.CompanyID != acme.ID || id.ClientID != client.ID || !id.IsClient() {
		t.Errorf("unexpected identity %+v", id)
	}

	_, ok, err = resolve(context.Background(), 9999)
	if err != nil || ok {
		t.Errorf("missing user: ok=%v err=%v", ok, err)
	}
}
