package models

import (
	"time"

	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

const (
	PaymentMethodCash         = "cash"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodCard         = "card"
	PaymentMethodOther        = "other"
)

var PaymentMethods = []string{PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCard, PaymentMethodOther}

type Payment struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CompanyID uint `gorm:"index;not null" json:"company_id"`
	InvoiceID uint `gorm:"index;not null" json:"invoice_id"`

	// Reference is the public PAY- identifier.
	Reference string        `gorm:"size:32;uniqueIndex;not null" json:"reference"`
	Amount    float64       `gorm:"type:decimal(12,2);not null" json:"amount"`
	Method    string        `gorm:"size:30;not null" json:"method"`
	Status    PaymentStatus `gorm:"size:20;not null;index" json:"status"`
	PaidAt    *time.Time    `json:"paid_at,omitempty"`
	Note      string        `gorm:"size:500" json:"note,omitempty"`

	RecordedByID uint `gorm:"index" json:"recorded_by_id"`
	ViaPortal    bool `gorm:"not null" json:"via_portal"`
	// AllowOverpay lets a pending payment settle beyond the amount due.
	AllowOverpay bool `gorm:"not null;default:false" json:"allow_overpay"`
}

func (p *Payment) GetCompanyID() uint { return p.CompanyID }
