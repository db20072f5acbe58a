package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/requirements"
	"gorm.io/gorm"
)

// Resources and their actions. Every pair plus "resource:*" is seeded.
var resourceActions = map[string][]string{
	"company":           {"view", "update"},
	"client":            {"list", "view", "create", "update", "delete"},
	"product":           {"list", "view", "create", "update", "delete"},
	"invoice":           {"list", "view", "create", "update", "delete", "finalize", "cancel"},
	"payment":           {"list", "view", "create", "refund", "update"},
	"document_template": {"list", "view", "create", "update", "delete", "analyze", "generate"},
	"variable_template": {"list", "view", "create", "update", "delete"},
	"requirement_rule":  {"list", "view", "create", "update", "delete", "evaluate"},
	"document":          {"list", "view"},
	"catalog":           {"view"},
	"portal":            {"list", "view", "pay"},
	"user":              {"list", "view", "update"},
	"profile":           {"list", "view", "create", "update", "delete"},
}

const (
	ProfileAdmin      = "admin"
	ProfileOwner      = "owner"
	ProfileAccountant = "accountant"
	ProfileViewer     = "viewer"
	ProfileClient     = "client"
)

type profileSeed struct {
	Name        string
	Description string
	Permissions []string
}

var profileSeeds = []profileSeed{
	{ProfileAdmin, "Full system access", []string{"*:*"}},
	{ProfileOwner, "Runs a company: everything inside the tenant", []string{
		"company:*", "client:*", "product:*", "invoice:*", "payment:*",
		"document_template:*", "variable_template:*", "requirement_rule:*",
		"document:*", "catalog:*", "user:list", "user:view",
	}},
	{ProfileAccountant, "Invoices, payments and document generation", []string{
		"invoice:*", "payment:*", "client:*", "document:*",
		"product:list", "product:view", "company:view", "catalog:view",
		"document_template:list", "document_template:view", "document_template:generate",
		"requirement_rule:list", "requirement_rule:view", "requirement_rule:evaluate",
	}},
	{ProfileViewer, "Read-only access", []string{"*:list", "*:view"}},
	{ProfileClient, "Client portal", []string{"portal:*"}},
}

// SeedPermissions creates every known permission, idempotently.
func SeedPermissions(db *gorm.DB) error {
	codes := [][2]string{{"*", "*"}, {"*", "list"}, {"*", "view"}}
	for res, actions := range resourceActions {
		codes = append(codes, [2]string{res, "*"})
		for _, a := range actions {
			codes = append(codes, [2]string{res, a})
		}
	}
	for _, c := range codes {
		perm := models.Permission{ResourceType: c[0], Action: c[1], Description: c[0] + ":" + c[1]}
		if err := db.Where("resource_type = ? AND action = ?", c[0], c[1]).FirstOrCreate(&perm).Error; err != nil {
			return fmt.Errorf("seed permission %s:%s: %w", c[0], c[1], err)
		}
	}
	return nil
}

// SeedProfiles creates the system profiles and syncs their permissions.
func SeedProfiles(db *gorm.DB) error {
	if err := SeedPermissions(db); err != nil {
		return err
	}
	for _, p := range profileSeeds {
		var profile models.Profile
		err := db.Where("name = ?", p.Name).First(&profile).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			profile = models.Profile{Name: p.Name, Description: p.Description, IsSystem: true}
			err = db.Create(&profile).Error
		}
		if err != nil {
			return fmt.Errorf("seed profile %s: %w", p.Name, err)
		}

		perms := make([]models.Permission, 0, len(p.Permissions))
		for _, code := range p.Permissions {
			res, act, _ := strings.Cut(code, ":")
			var perm models.Permission
			if err := db.Where("resource_type = ? AND action = ?", res, act).First(&perm).Error; err != nil {
				return fmt.Errorf("profile %s: permission %s: %w", p.Name, code, err)
			}
			perms = append(perms, perm)
		}
		if err := db.Model(&profile).Association("Permissions").Replace(perms); err != nil {
			return err
		}
	}
	return nil
}

// Seed installs all reference data.
func Seed(db *gorm.DB) error {
	return SeedProfiles(db)
}

// ProfileID returns the id of a seeded profile.
func ProfileID(db *gorm.DB, name string) (uint, error) {
	var p models.Profile
	if err := db.Where("name = ?", name).First(&p).Error; err != nil {
		return 0, fmt.Errorf("profile %s: %w", name, err)
	}
	return p.ID, nil
}

// SeedDefaultRules installs the default requirement rules for a company
// that has none yet.
func SeedDefaultRules(db *gorm.DB, companyID uint) error {
	var n int64
	if err := db.Model(&models.DocumentRequirementRule{}).Where("company_id = ?", companyID).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	for _, def := range requirements.DefaultRules() {
		rule := models.RuleFromDefinition(companyID, def)
		if err := db.Create(&rule).Error; err != nil {
			return fmt.Errorf("seed rule %q: %w", def.Name, err)
		}
	}
	return nil
}
