package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "draft"
	InvoiceStatusFinal         InvoiceStatus = "final"
	InvoiceStatusPartiallyPaid InvoiceStatus = "partially_paid"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusOverdue       InvoiceStatus = "overdue"
	InvoiceStatusCancelled     InvoiceStatus = "cancelled"
)

// PaymentTolerance absorbs rounding when comparing paid amounts to totals.
const PaymentTolerance = 0.005

// Invoice is the order: the thing payments settle and rules inspect.
type Invoice struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CompanyID   uint `gorm:"not null;index;uniqueIndex:idx_invoice_company_number" json:"company_id"`
	CreatedByID uint `gorm:"index" json:"created_by_id"`

	// Number is assigned on finalization; drafts have none.
	Number    *string `gorm:"size:50;uniqueIndex:idx_invoice_company_number" json:"number"`
	Reference string  `gorm:"size:100" json:"reference,omitempty"`

	ClientID uint    `gorm:"index;not null" json:"client_id"`
	Client   *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	IssueDate time.Time  `gorm:"not null" json:"issue_date"`
	DueDate   time.Time  `gorm:"not null" json:"due_date"`
	PaidDate  *time.Time `json:"paid_date,omitempty"`

	Currency string        `gorm:"size:3;not null" json:"currency"`
	Status   InvoiceStatus `gorm:"size:20;not null;index" json:"status"`

	Notes        string `gorm:"type:text" json:"notes,omitempty"`
	PaymentTerms string `gorm:"size:500" json:"payment_terms,omitempty"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`
}

func (i *Invoice) GetCompanyID() uint { return i.CompanyID }
func (i *Invoice) GetClientID() uint  { return i.ClientID }

// NumberString returns the invoice number or "" for drafts.
func (i *Invoice) NumberString() string {
	if i.Number == nil {
		return ""
	}
	return *i.Number
}

func (i *Invoice) CanEdit() bool { return i.Status == InvoiceStatusDraft }

// IsOpen reports whether the invoice can still receive payments.
func (i *Invoice) IsOpen() bool {
	switch i.Status {
	case InvoiceStatusFinal, InvoiceStatusPartiallyPaid, InvoiceStatusOverdue:
		return true
	}
	return false
}

func (i *Invoice) Subtotal() float64 {
	var total float64
	for _, item := range i.Items {
		total += item.Subtotal()
	}
	return Round2(total)
}

func (i *Invoice) VATTotal() float64 {
	var total float64
	for _, item := range i.Items {
		total += item.VAT()
	}
	return Round2(total)
}

// Total is VAT inclusive.
func (i *Invoice) Total() float64 {
	return Round2(i.Subtotal() + i.VATTotal())
}

type InvoiceItem struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	InvoiceID uint `gorm:"index;not null" json:"invoice_id"`

	// ProductID is nil for free-form lines.
	ProductID *uint    `gorm:"index" json:"product_id,omitempty"`
	Product   *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`

	Description string  `gorm:"size:500;not null" json:"description"`
	Quantity    float64 `gorm:"type:decimal(12,3);not null" json:"quantity"`
	UnitPrice   float64 `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Unit        string  `gorm:"size:50" json:"unit"`
	VATRate     float64 `gorm:"type:decimal(5,4);not null" json:"vat_rate"`
	Position    int     `gorm:"not null" json:"position"`
}

func (item *InvoiceItem) Subtotal() float64 {
	return item.Quantity * item.UnitPrice
}

func (item *InvoiceItem) VAT() float64 {
	return item.Subtotal() * item.VATRate
}

// NextInvoiceNumber returns the next INV-YYYY-NNNN number for a company.
// Soft-deleted invoices keep their numbers reserved. Numbers past 9999 grow
// wider, so they are ordered by length first.
func NextInvoiceNumber(db *gorm.DB, companyID uint, year int) (string, error) {
	prefix := fmt.Sprintf("INV-%d-", year)
	var last []string
	err := db.Unscoped().Model(&Invoice{}).
		Where("company_id = ? AND number LIKE ?", companyID, prefix+"%").
		Order("LENGTH(number) DESC, number DESC").
		Limit(1).
		Pluck("number", &last).Error
	if err != nil {
		return "", err
	}
	seq := 0
	if len(last) > 0 {
		seq, err = strconv.Atoi(strings.TrimPrefix(last[0], prefix))
		if err != nil {
			return "", fmt.Errorf("unexpected invoice number %q: %w", last[0], err)
		}
	}
	return fmt.Sprintf("%s%04d", prefix, seq+1), nil
}

// AmountPaid sums completed payments. Refunded payments no longer count.
func AmountPaid(payments []Payment) float64 {
	var paid float64
	for _, p := range payments {
		if p.Status == PaymentStatusCompleted {
			paid += p.Amount
		}
	}
	return Round2(paid)
}

// ReconcileInvoiceStatus derives the status of a non-draft, non-cancelled
// invoice from its payments. It is pure and does not touch inv.
func ReconcileInvoiceStatus(inv *Invoice, payments []Payment, now time.Time) InvoiceStatus {
	switch inv.Status {
	case InvoiceStatusDraft, InvoiceStatusCancelled:
		return inv.Status
	}
	paid := AmountPaid(payments)
	total := inv.Total()
	switch {
	case paid > 0 && paid+PaymentTolerance >= total:
		return InvoiceStatusPaid
	case paid > PaymentTolerance:
		return InvoiceStatusPartiallyPaid
	case total <= PaymentTolerance:
		return InvoiceStatusPaid
	case now.After(inv.DueDate):
		return InvoiceStatusOverdue
	}
	return InvoiceStatusFinal
}

// ApplyReconciliation sets the reconciled status on inv and keeps PaidDate in
// step. It reports whether anything changed.
func ApplyReconciliation(inv *Invoice, payments []Payment, now time.Time) bool {
	next := ReconcileInvoiceStatus(inv, payments, now)
	changed := next != inv.Status
	inv.Status = next
	if next == InvoiceStatusPaid {
		if inv.PaidDate == nil {
			t := now
			inv.PaidDate = &t
			changed = true
		}
	} else if inv.PaidDate != nil {
		inv.PaidDate = nil
		changed = true
	}
	return changed
}
