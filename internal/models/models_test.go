package models

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestInvoiceTotals(t *testing.T) {
	inv := &Invoice{Items: []InvoiceItem{
		{Quantity: 2, UnitPrice: 100, VATRate: 0.15},
		{Quantity: 1, UnitPrice: 33.34, VATRate: 0.15},
		{Quantity: 3, UnitPrice: 10, VATRate: 0},
	}}
	if got := inv.Subtotal(); got != 263.34 {
		t.Errorf("Subtotal() = %v, want 263.34", got)
	}
	if got := inv.VATTotal(); got != 35 {
		t.Errorf("VATTotal() = %v, want 35", got)
	}
	if got := inv.Total(); got != 298.34 {
		t.Errorf("Total() = %v, want 298.34", got)
	}
}

func payment(amount float64, status PaymentStatus) Payment {
	return Payment{Amount: amount, Status: status}
}

func TestReconcileInvoiceStatus(t *testing.T) {
	due := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	before := due.Add(-24 * time.Hour)
	after := due.Add(24 * time.Hour)
	base := func(status InvoiceStatus) *Invoice {
		return &Invoice{Status: status, DueDate: due, Items: []InvoiceItem{{Quantity: 1, UnitPrice: 1000, VATRate: 0.15}}}
	}

	tests := []struct {
		name     string
		status   InvoiceStatus
		payments []Payment
		now      time.Time
		want     InvoiceStatus
	}{
		{"draft untouched", InvoiceStatusDraft, []Payment{payment(1150, PaymentStatusCompleted)}, before, InvoiceStatusDraft},
		{"cancelled untouched", InvoiceStatusCancelled, nil, after, InvoiceStatusCancelled},
		{"nothing paid", InvoiceStatusFinal, nil, before, InvoiceStatusFinal},
		{"nothing paid overdue", InvoiceStatusFinal, nil, after, InvoiceStatusOverdue},
		{"partial", InvoiceStatusFinal, []Payment{payment(500, PaymentStatusCompleted)}, after, InvoiceStatusPartiallyPaid},
		{"full in two parts", InvoiceStatusPartiallyPaid, []Payment{payment(1000, PaymentStatusCompleted), payment(150, PaymentStatusCompleted)}, after, InvoiceStatusPaid},
		{"within tolerance", InvoiceStatusFinal, []Payment{payment(1149.996, PaymentStatusCompleted)}, before, InvoiceStatusPaid},
		{"pending ignored", InvoiceStatusFinal, []Payment{payment(1150, PaymentStatusPending)}, before, InvoiceStatusFinal},
		{"refund reopens", InvoiceStatusPaid, []Payment{payment(1150, PaymentStatusRefunded)}, after, InvoiceStatusOverdue},
		{"failed ignored", InvoiceStatusOverdue, []Payment{payment(1150, PaymentStatusFailed)}, before, InvoiceStatusFinal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := base(tt.status)
			if got := ReconcileInvoiceStatus(inv, tt.payments, tt.now); got != tt.want {
				t.Errorf("ReconcileInvoiceStatus() = %s, want %s", got, tt.want)
			}
			if inv.Status != tt.status {
				t.Errorf("input invoice was modified")
			}
		})
	}
}

func TestApplyReconciliation_PaidDate(t *testing.T) {
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	inv := &Invoice{Status: InvoiceStatusFinal, DueDate: now.AddDate(0, 1, 0), Items: []InvoiceItem{{Quantity: 1, UnitPrice: 100}}}

	if !ApplyReconciliation(inv, []Payment{payment(100, PaymentStatusCompleted)}, now) {
		t.Fatal("expected a change")
	}
	if inv.Status != InvoiceStatusPaid || inv.PaidDate == nil || !inv.PaidDate.Equal(now) {
		t.Fatalf("unexpected state %s %v", inv.Status, inv.PaidDate)
	}

	later := now.Add(time.Hour)
	if ApplyReconciliation(inv, []Payment{payment(100, PaymentStatusCompleted)}, later) {
		t.Error("reapplying should not change anything")
	}
	if !inv.PaidDate.Equal(now) {
		t.Error("paid date should keep the first payment time")
	}

	if !ApplyReconciliation(inv, []Payment{payment(100, PaymentStatusRefunded)}, later) {
		t.Fatal("expected a change after refund")
	}
	if inv.Status != InvoiceStatusFinal || inv.PaidDate != nil {
		t.Fatalf("refund should clear paid date, got %s %v", inv.Status, inv.PaidDate)
	}
}

func TestNextInvoiceNumber(t *testing.T) {
	db := newTestDB(t)
	n, err := NextInvoiceNumber(db, 1, 2026)
	if err != nil || n != "INV-2026-0001" {
		t.Fatalf("first number = %q, %v", n, err)
	}

	mk := func(company uint, number string) {
		inv := Invoice{CompanyID: company, ClientID: 1, Number: &number, Currency: "SAR", Status: InvoiceStatusFinal}
		if err := db.Create(&inv).Error; err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	mk(1, "INV-2026-0001")
	mk(1, "INV-2026-0002")
	mk(1, "INV-2025-0009")
	mk(2, "INV-2026-0007")

	n, _ = NextInvoiceNumber(db, 1, 2026)
	if n != "INV-2026-0003" {
		t.Errorf("next = %q, want INV-2026-0003", n)
	}

	var inv Invoice
	db.Where("number = ?", "INV-2026-0002").First(&inv)
	db.Delete(&inv)
	n, _ = NextInvoiceNumber(db, 1, 2026)
	if n != "INV-2026-0003" {
		t.Errorf("soft-deleted numbers must stay reserved, got %q", n)
	}

	n, _ = NextInvoiceNumber(db, 2, 2026)
	if n != "INV-2026-0008" {
		t.Errorf("company 2 next = %q", n)
	}
}

func TestNextInvoiceNumber_PastNineThousandNineHundredNinetyNine(t *testing.T) {
	db := newTestDB(t)
	for _, number := range []string{"INV-2026-9998", "INV-2026-9999"} {
		number := number
		inv := Invoice{CompanyID: 1, ClientID: 1, Number: &number, Currency: "SAR", Status: InvoiceStatusFinal}
		if err := db.Create(&inv).Error; err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	n, err := NextInvoiceNumber(db, 1, 2026)
	if err != nil || n != "INV-2026-10000" {
		t.Fatalf("next = %q, %v; want INV-2026-10000", n, err)
	}

	inv := Invoice{CompanyID: 1, ClientID: 1, Number: &n, Currency: "SAR", Status: InvoiceStatusFinal}
	if err := db.Create(&inv).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	n, err = NextInvoiceNumber(db, 1, 2026)
	if err != nil || n != "INV-2026-10001" {
		t.Fatalf("next = %q, %v; want INV-2026-10001", n, err)
	}
}

func TestDraftsShareNullNumber(t *testing.T) {
	db := newTestDB(t)
	for i := 0; i < 2; i++ {
		inv := Invoice{CompanyID: 1, ClientID: 1, Currency: "SAR", Status: InvoiceStatusDraft}
		if err := db.Create(&inv).Error; err != nil {
			t.Fatalf("draft %d: %v", i, err)
		}
	}
}

func TestRuleRoundTrip(t *testing.T) {
	db := newTestDB(t)
	stored := RuleFromDefinition(5, rulesFixture())
	if err := db.Create(&stored).Error; err != nil {
		t.Fatalf("create rule: %v", err)
	}
	var loaded DocumentRequirementRule
	if err := db.First(&loaded, stored.ID).Error; err != nil {
		t.Fatalf("load rule: %v", err)
	}
	r := loaded.Rule()
	if r.ID != stored.ID || len(r.Conditions) != 1 || len(r.RequiredDocuments) != 1 {
		t.Fatalf("unexpected rule %+v", r)
	}
	if err := r.Conditions[0].Validate(); err != nil {
		t.Errorf("condition did not survive storage: %v", err)
	}
	if !r.IsActive || r.Priority != 50 {
		t.Errorf("flags lost: %+v", r)
	}
}

func TestClientDisplayName(t *testing.T) {
	c := Client{Name: "Sara", CompanyName: "Acme", Type: ClientTypeBusiness}
	if c.DisplayName() != "Acme" {
		t.Errorf("business client should show company name")
	}
	c.Type = ClientTypeIndividual
	if c.DisplayName() != "Sara" {
		t.Errorf("individual client should show own name")
	}
	c = Client{Address: "King Fahd Rd", City: "Riyadh", Country: "SA"}
	if got := c.FullAddress(); got != "King Fahd Rd\nRiyadh\nSA" {
		t.Errorf("FullAddress() = %q", got)
	}
}
