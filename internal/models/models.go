// Package models holds the GORM entities of the CRM.
package models

import "math"

// Tenant is implemented by every company-scoped entity.
type Tenant interface {
	GetCompanyID() uint
}

// ClientScoped is implemented by entities a portal user may reach.
type ClientScoped interface {
	GetClientID() uint
}

// All lists the entities handled by AutoMigrate, parents first.
func All() []any {
	return []any{
		&Permission{},
		&Profile{},
		&Company{},
		&Client{},
		&User{},
		&Product{},
		&Invoice{},
		&InvoiceItem{},
		&Payment{},
		&DocumentTemplate{},
		&VariableTemplate{},
		&DocumentRequirementRule{},
		&GeneratedDocument{},
	}
}

// Round2 rounds a money amount to cents.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
