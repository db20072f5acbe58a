package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a staff member of a company, or a portal user when ClientID is set.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Email    string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name     string `gorm:"size:255" json:"name,omitempty"`
	Password string `gorm:"size:255;not null" json:"-"`

	CompanyID uint     `gorm:"index;not null" json:"company_id"`
	Company   *Company `gorm:"foreignKey:CompanyID" json:"-"`

	ClientID *uint   `gorm:"index" json:"client_id,omitempty"`
	Client   *Client `gorm:"foreignKey:ClientID" json:"-"`

	// A nil profile means no permissions at all.
	ProfileID *uint    `gorm:"index" json:"profile_id,omitempty"`
	Profile   *Profile `gorm:"foreignKey:ProfileID" json:"profile,omitempty"`
}

func (u *User) GetCompanyID() uint { return u.CompanyID }

// IsPortalUser reports whether u logs in on behalf of a client.
func (u *User) IsPortalUser() bool { return u.ClientID != nil && *u.ClientID != 0 }
