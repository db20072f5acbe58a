package models

import (
	"time"

	"github.com/diewo77/go-crm/internal/requirements"
	"github.com/diewo77/go-crm/internal/variables"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DocumentTypeInvoice   = "invoice"
	DocumentTypeQuote     = "quote"
	DocumentTypeContract  = "contract"
	DocumentTypeAgreement = "agreement"
	DocumentTypeOther     = "other"
)

var DocumentTypes = []string{DocumentTypeInvoice, DocumentTypeQuote, DocumentTypeContract, DocumentTypeAgreement, DocumentTypeOther}

// DocumentTemplate is branded Handlebars markup. Slug is what requirement
// rules refer to.
type DocumentTemplate struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CompanyID   uint `gorm:"not null;uniqueIndex:idx_doc_template_company_slug" json:"company_id"`
	CreatedByID uint `json:"created_by_id"`

	Name         string `gorm:"size:255;not null" json:"name"`
	Slug         string `gorm:"size:100;not null;uniqueIndex:idx_doc_template_company_slug" json:"slug"`
	DocumentType string `gorm:"size:30;not null" json:"document_type"`
	Content      string `gorm:"type:text;not null" json:"content"`
	IsDefault    bool   `gorm:"not null" json:"is_default"`
	IsActive     bool   `gorm:"not null" json:"is_active"`

	VariableTemplates []VariableTemplate `gorm:"many2many:document_template_variable_templates;" json:"variable_templates,omitempty"`
}

func (d *DocumentTemplate) GetCompanyID() uint { return d.CompanyID }

// VariableTemplate is a reusable, named set of variables. Deleting it never
// touches linked document templates and vice versa.
type VariableTemplate struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CompanyID   uint `gorm:"index;not null" json:"company_id"`
	CreatedByID uint `json:"created_by_id"`

	Name        string                                  `gorm:"size:255;not null" json:"name"`
	Description string                                  `gorm:"size:1000" json:"description,omitempty"`
	Category    string                                  `gorm:"size:100;index" json:"category,omitempty"`
	IsActive    bool                                    `gorm:"not null" json:"is_active"`
	Variables   datatypes.JSONSlice[variables.Variable] `json:"variables"`

	DocumentTemplates []DocumentTemplate `gorm:"many2many:document_template_variable_templates;" json:"document_templates,omitempty"`
}

func (v *VariableTemplate) GetCompanyID() uint { return v.CompanyID }

// DocumentTemplateIDs lists the ids of loaded document template links.
func (v *VariableTemplate) DocumentTemplateIDs() []uint {
	ids := make([]uint, len(v.DocumentTemplates))
	for i, d := range v.DocumentTemplates {
		ids[i] = d.ID
	}
	return ids
}

// DocumentRequirementRule is the stored form of requirements.Rule.
type DocumentRequirementRule struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CompanyID uint `gorm:"index;not null" json:"company_id"`

	Name              string                                             `gorm:"size:255;not null" json:"name"`
	Description       string                                             `gorm:"size:1000" json:"description,omitempty"`
	TriggerType       string                                             `gorm:"size:30;not null" json:"trigger_type"`
	Conditions        datatypes.JSONSlice[requirements.Condition]        `json:"trigger_conditions"`
	RequiredDocuments datatypes.JSONSlice[requirements.RequiredDocument] `json:"required_documents"`
	Expression        string                                             `gorm:"type:text" json:"expression,omitempty"`
	IsMandatory       bool                                               `gorm:"not null" json:"is_mandatory"`
	Priority          int                                                `gorm:"not null;index" json:"priority"`
	IsActive          bool                                               `gorm:"not null" json:"is_active"`
}

func (r *DocumentRequirementRule) GetCompanyID() uint { return r.CompanyID }

// Rule converts to the evaluator's form.
func (r *DocumentRequirementRule) Rule() requirements.Rule {
	return requirements.Rule{
		ID:                r.ID,
		Name:              r.Name,
		Description:       r.Description,
		TriggerType:       requirements.TriggerType(r.TriggerType),
		Conditions:        []requirements.Condition(r.Conditions),
		RequiredDocuments: []requirements.RequiredDocument(r.RequiredDocuments),
		IsMandatory:       r.IsMandatory,
		Priority:          r.Priority,
		IsActive:          r.IsActive,
		Expression:        r.Expression,
	}
}

// RuleFromDefinition builds a stored rule for a company.
func RuleFromDefinition(companyID uint, def requirements.Rule) DocumentRequirementRule {
	return DocumentRequirementRule{
		CompanyID:         companyID,
		Name:              def.Name,
		Description:       def.Description,
		TriggerType:       string(def.TriggerType),
		Conditions:        datatypes.JSONSlice[requirements.Condition](def.Conditions),
		RequiredDocuments: datatypes.JSONSlice[requirements.RequiredDocument](def.RequiredDocuments),
		Expression:        def.Expression,
		IsMandatory:       def.IsMandatory,
		Priority:          def.Priority,
		IsActive:          def.IsActive,
	}
}

// GeneratedDocument is a rendered template with the data used to render it.
type GeneratedDocument struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CompanyID          uint  `gorm:"index;not null" json:"company_id"`
	DocumentTemplateID uint  `gorm:"index;not null" json:"document_template_id"`
	InvoiceID          *uint `gorm:"index" json:"invoice_id,omitempty"`
	GeneratedByID      uint  `json:"generated_by_id"`

	// TemplateSlug is copied so requirement checks survive template renames.
	TemplateSlug string            `gorm:"size:100;index" json:"template_slug"`
	Token        string            `gorm:"size:32;uniqueIndex;not null" json:"token"`
	HTML         string            `gorm:"type:text;not null" json:"-"`
	Data         datatypes.JSONMap `json:"data"`
}

func (g *GeneratedDocument) GetCompanyID() uint { return g.CompanyID }
