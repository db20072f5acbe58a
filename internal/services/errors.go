// Package services holds the CRM's business operations. Every operation is
// scoped to a company; records of other companies are reported as not found.
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/go-crm/validation"
	"gorm.io/gorm"
)

var (
	ErrNotFound                 = errors.New("not found")
	ErrInvoiceNotEditable       = errors.New("invoice is not editable")
	ErrInvalidTransition        = errors.New("invalid status transition")
	ErrInvoiceNotPayable        = errors.New("invoice does not accept payments")
	ErrInvalidPaymentState      = errors.New("invalid payment state")
	ErrRequiredDocumentsMissing = errors.New("required documents missing")
	ErrEmailTaken               = errors.New("email already registered")
	ErrInvalidCredentials       = errors.New("invalid credentials")
	ErrTemplateInactive         = errors.New("document template is inactive")
)

// ValidationError carries field violations from a service to its handler.
type ValidationError = validation.Error

// MissingDocumentsError lists the mandatory documents blocking an operation.
type MissingDocumentsError struct {
	Documents []RequirementStatus
}

func (e *MissingDocumentsError) Error() string {
	slugs := make([]string, len(e.Documents))
	for i, d := range e.Documents {
		slugs[i] = d.TemplateID
	}
	return fmt.Sprintf("%s: %s", ErrRequiredDocumentsMissing, strings.Join(slugs, ", "))
}

func (e *MissingDocumentsError) Unwrap() error { return ErrRequiredDocumentsMissing }

func violation(field, code string) error {
	return (validation.Violations{field: code}).Err()
}

// notFound maps gorm's missing-record error to ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

// isUniqueViolation recognises unique constraint errors from postgres and sqlite.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
