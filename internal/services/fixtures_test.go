package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/go-crm/internal/db"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var fixedNow = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	require.NoError(t, db.Seed(conn))
	return conn
}

type fixture struct {
	db        *gorm.DB
	ctx       context.Context
	owner     *models.User
	company   uint
	client    *models.Client
	formation *models.Product
	consult   *models.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := newTestDB(t)
	ctx := context.Background()
	owner, err := NewAuthService(conn, "SAR").Signup(ctx, SignupInput{
		Email:       "owner@acme.test",
		Password:    "secret123",
		Name:        "Owner",
		CompanyName: "Acme Trading",
	})
	require.NoError(t, err)
	require.NoError(t, conn.Model(&models.Company{}).Where("id = ?", owner.CompanyID).
		Updates(map[string]any{"vat_number": "300000000000003", "city": "Riyadh"}).Error)

	client := &models.Client{CompanyID: owner.CompanyID, Name: "Jane Doe", Email: "jane@example.com", Type: models.ClientTypeBusiness, CompanyName: "Doe LLC"}
	require.NoError(t, conn.Create(client).Error)
	formation := &models.Product{CompanyID: owner.CompanyID, Code: "business-formation", Name: "Business formation", Kind: models.ProductKindService, UnitPrice: 5000, VATRate: 0.15, IsActive: true}
	consult := &models.Product{CompanyID: owner.CompanyID, Code: "consulting", Name: "Consulting day", Kind: models.ProductKindService, UnitPrice: 2000, VATRate: 0.15, IsActive: true}
	require.NoError(t, conn.Create(formation).Error)
	require.NoError(t, conn.Create(consult).Error)

	return &fixture{db: conn, ctx: ctx, owner: owner, company: owner.CompanyID, client: client, formation: formation, consult: consult}
}

func (f *fixture) invoices(enforce bool) *InvoiceService {
	s := NewInvoiceService(f.db, enforce)
	s.now = func() time.Time { return fixedNow }
	return s
}

func (f *fixture) payments() *PaymentService {
	s := NewPaymentService(f.db)
	s.now = func() time.Time { return fixedNow }
	return s
}

func (f *fixture) draft(t *testing.T, items ...ItemInput) *models.Invoice {
	t.Helper()
	issue := fixedNow
	inv, err := f.invoices(false).Create(f.ctx, f.company, f.owner.ID, InvoiceInput{ClientID: f.client.ID, IssueDate: &issue, Items: items})
	require.NoError(t, err)
	return inv
}

func (f *fixture) finalized(t *testing.T, items ...ItemInput) *models.Invoice {
	t.Helper()
	inv, err := f.invoices(false).Finalize(f.ctx, f.company, f.draft(t, items...).ID)
	require.NoError(t, err)
	return inv
}

func productLine(p *models.Product, qty float64) ItemInput {
	return ItemInput{ProductID: &p.ID, Quantity: qty}
}

func ptr[T any](v T) *T { return &v }
