package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	ClientTypeIndividual = "individual"
	ClientTypeBusiness   = "business"
)

// Client is a customer of a company.
type Client struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CompanyID uint `gorm:"index;not null" json:"company_id"`

	Name        string `gorm:"size:255;not null" json:"name"`
	Email       string `gorm:"size:255" json:"email,omitempty"`
	Phone       string `gorm:"size:50" json:"phone,omitempty"`
	CompanyName string `gorm:"size:255" json:"company_name,omitempty"`
	Type        string `gorm:"size:20;not null" json:"type"`

	Address    string `gorm:"size:500" json:"address,omitempty"`
	City       string `gorm:"size:100" json:"city,omitempty"`
	PostalCode string `gorm:"size:20" json:"postal_code,omitempty"`
	Country    string `gorm:"size:100" json:"country,omitempty"`

	VATNumber string `gorm:"size:20" json:"vat_number,omitempty"`
	CRNumber  string `gorm:"size:50" json:"cr_number,omitempty"`
}

func (c *Client) GetCompanyID() uint { return c.CompanyID }
func (c *Client) GetClientID() uint  { return c.ID }

func (c *Client) FullAddress() string {
	return joinAddress(c.Address, c.PostalCode, c.City, c.Country)
}

// DisplayName prefers the business name for business clients.
func (c *Client) DisplayName() string {
	if c.Type == ClientTypeBusiness && c.CompanyName != "" {
		return c.CompanyName
	}
	return c.Name
}
