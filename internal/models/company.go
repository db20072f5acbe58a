package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Company is the tenant. Every business entity belongs to exactly one.
type Company struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name    string `gorm:"size:255;not null" json:"name"`
	Email   string `gorm:"size:255" json:"email,omitempty"`
	Phone   string `gorm:"size:50" json:"phone,omitempty"`
	Website string `gorm:"size:255" json:"website,omitempty"`

	Address    string `gorm:"size:500" json:"address,omitempty"`
	City       string `gorm:"size:100" json:"city,omitempty"`
	PostalCode string `gorm:"size:20" json:"postal_code,omitempty"`
	Country    string `gorm:"size:100" json:"country,omitempty"`

	// VATNumber is the 15-digit tax registration used on e-invoices.
	VATNumber string `gorm:"size:20" json:"vat_number,omitempty"`
	CRNumber  string `gorm:"size:50" json:"cr_number,omitempty"`

	Currency string `gorm:"size:3;not null" json:"currency"`
	LogoURL  string `gorm:"size:500" json:"logo_url,omitempty"`
}

func (c *Company) GetCompanyID() uint { return c.ID }

// FullAddress joins the address lines that are set.
func (c *Company) FullAddress() string {
	return joinAddress(c.Address, c.PostalCode, c.City, c.Country)
}

func joinAddress(street, postal, city, country string) string {
	var lines []string
	if street != "" {
		lines = append(lines, street)
	}
	if locality := strings.TrimSpace(postal + " " + city); locality != "" {
		lines = append(lines, locality)
	}
	if country != "" {
		lines = append(lines, country)
	}
	return strings.Join(lines, "\n")
}
