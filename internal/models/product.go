package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	ProductKindProduct = "product"
	ProductKindService = "service"
)

// Product is a catalog item. Code is the item id seen by requirement rules.
type Product struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CompanyID uint `gorm:"not null;uniqueIndex:idx_product_company_code" json:"company_id"`

	Code        string  `gorm:"size:50;not null;uniqueIndex:idx_product_company_code" json:"code"`
	Name        string  `gorm:"size:255;not null" json:"name"`
	Description string  `gorm:"type:text" json:"description,omitempty"`
	Kind        string  `gorm:"size:20;not null" json:"kind"`
	UnitPrice   float64 `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Unit        string  `gorm:"size:50" json:"unit"`

	// VATRate is a fraction: 0.15 is 15%.
	VATRate float64 `gorm:"type:decimal(5,4);not null" json:"vat_rate"`

	Category string `gorm:"size:100" json:"category,omitempty"`
	IsActive bool   `gorm:"not null" json:"is_active"`
}

func (p *Product) GetCompanyID() uint { return p.CompanyID }

func (p *Product) PriceWithVAT() float64 {
	return p.UnitPrice * (1 + p.VATRate)
}

func (p *Product) VATRatePercent() float64 {
	return p.VATRate * 100
}
