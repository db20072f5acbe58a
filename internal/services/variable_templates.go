package services

import (
	"context"
	"strconv"
	"strings"

	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/variables"
	"github.com/diewo77/go-crm/validation"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type VariableTemplateService struct {
	db        *gorm.DB
	catalog   *variables.Catalog
	documents *DocumentService
}

// NewVariableTemplateService returns the service. Mutations invalidate the
// company's cached analyses through documents.
func NewVariableTemplateService(db *gorm.DB, catalog *variables.Catalog, documents *DocumentService) *VariableTemplateService {
	return &VariableTemplateService{db: db, catalog: catalog, documents: documents}
}

type VariableTemplateInput struct {
	Name                string               `json:"name"`
	Description         string               `json:"description"`
	Category            string               `json:"category"`
	IsActive            *bool                `json:"is_active"`
	Variables           []variables.Variable `json:"variables"`
	DocumentTemplateIDs []uint               `json:"document_template_ids"`
}

type VariableTemplateFilter struct {
	Category           string
	Active             *bool
	DocumentTemplateID uint
}

// CheckVariables validates a custom variable set: keys must be well formed,
// unique in the set and distinct from catalog keys. Types default to text
// and labels are derived from keys when missing.
func CheckVariables(catalog *variables.Catalog, vars []variables.Variable) ([]variables.Variable, validation.Violations) {
	v := make(validation.Violations)
	out := make([]variables.Variable, len(vars))
	seen := make(map[string]bool, len(vars))
	for i, vr := range vars {
		field := "variables[" + strconv.Itoa(i) + "]."
		vr.Key = strings.TrimSpace(vr.Key)
		switch {
		case !variables.ValidateKey(vr.Key).Valid:
			v.Add(field+"key", "invalid_key")
		case seen[vr.Key]:
			v.Add(field+"key", "duplicate_key")
		case catalog != nil && catalog.Has(vr.Key):
			v.Add(field+"key", "reserved_key")
		}
		seen[vr.Key] = true
		if vr.Type == "" {
			vr.Type = variables.TypeText
		}
		if !vr.Type.Valid() {
			v.Add(field+"type", "invalid")
		}
		if vr.Label == "" {
			vr.Label = variables.LabelFromKey(vr.Key)
		}
		vr.Category = variables.CategoryCustom
		out[i] = vr
	}
	return out, v
}

func (s *VariableTemplateService) load(tx *gorm.DB, companyID, id uint) (*models.VariableTemplate, error) {
	var vt models.VariableTemplate
	if err := tx.Where("company_id = ?", companyID).Preload("DocumentTemplates").First(&vt, id).Error; err != nil {
		return nil, notFound(err, "variable template")
	}
	return &vt, nil
}

func (s *VariableTemplateService) Get(ctx context.Context, companyID, id uint) (*models.VariableTemplate, error) {
	return s.load(s.db.WithContext(ctx), companyID, id)
}

func (s *VariableTemplateService) List(ctx context.Context, companyID uint, f VariableTemplateFilter) ([]models.VariableTemplate, error) {
	q := s.db.WithContext(ctx).Where("variable_templates.company_id = ?", companyID)
	if f.Category != "" {
		q = q.Where("variable_templates.category = ?", f.Category)
	}
	if f.Active != nil {
		q = q.Where("variable_templates.is_active = ?", *f.Active)
	}
	if f.DocumentTemplateID != 0 {
		q = q.Joins("JOIN document_template_variable_templates dtvt ON dtvt.variable_template_id = variable_templates.id").
			Where("dtvt.document_template_id = ?", f.DocumentTemplateID)
	}
	var out []models.VariableTemplate
	err := q.Order("variable_templates.name").Find(&out).Error
	return out, err
}

func (s *VariableTemplateService) save(ctx context.Context, vt *models.VariableTemplate, in VariableTemplateInput) (*models.VariableTemplate, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		vt.Name = strings.TrimSpace(in.Name)
		vt.Description = strings.TrimSpace(in.Description)
		vt.Category = strings.TrimSpace(in.Category)
		if in.IsActive != nil {
			vt.IsActive = *in.IsActive
		}
		vars, v := CheckVariables(s.catalog, in.Variables)
		validation.Required("name", vt.Name, v)
		validation.MaxLen("name", vt.Name, 255, v)

		var linked []models.DocumentTemplate
		if in.DocumentTemplateIDs != nil {
			var err error
			linked, err = documentTemplatesByID(tx, vt.CompanyID, in.DocumentTemplateIDs)
			if err != nil {
				return err
			}
			if len(linked) != len(uniqueIDs(in.DocumentTemplateIDs)) {
				v.Add("document_template_ids", "invalid")
			}
		}
		if err := v.Err(); err != nil {
			return err
		}
		vt.Variables = datatypes.JSONSlice[variables.Variable](vars)
		vt.DocumentTemplates = nil
		if err := tx.Omit("DocumentTemplates").Save(vt).Error; err != nil {
			return err
		}
		if in.DocumentTemplateIDs != nil {
			if err := tx.Model(vt).Association("DocumentTemplates").Replace(linked); err != nil {
				return err
			}
		}
		reloaded, err := s.load(tx, vt.CompanyID, vt.ID)
		if err != nil {
			return err
		}
		*vt = *reloaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, vt.CompanyID)
	return vt, nil
}

func (s *VariableTemplateService) invalidate(ctx context.Context, companyID uint) {
	if s.documents != nil {
		s.documents.InvalidateAnalyses(ctx, companyID)
	}
}

func (s *VariableTemplateService) Create(ctx context.Context, companyID, userID uint, in VariableTemplateInput) (*models.VariableTemplate, error) {
	vt := &models.VariableTemplate{CompanyID: companyID, CreatedByID: userID, IsActive: true}
	return s.save(ctx, vt, in)
}

func (s *VariableTemplateService) Update(ctx context.Context, companyID, id uint, in VariableTemplateInput) (*models.VariableTemplate, error) {
	vt, err := s.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, vt, in)
}

// Delete removes the set and its links; linked document templates stay.
func (s *VariableTemplateService) Delete(ctx context.Context, companyID, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		vt, err := s.load(tx, companyID, id)
		if err != nil {
			return err
		}
		if err := tx.Model(vt).Association("DocumentTemplates").Clear(); err != nil {
			return err
		}
		return tx.Delete(vt).Error
	})
	if err == nil {
		s.invalidate(ctx, companyID)
	}
	return err
}

// Link replaces the document templates a set is attached to.
func (s *VariableTemplateService) Link(ctx context.Context, companyID, id uint, templateIDs []uint) (*models.VariableTemplate, error) {
	var vt *models.VariableTemplate
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := s.load(tx, companyID, id)
		if err != nil {
			return err
		}
		linked, err := documentTemplatesByID(tx, companyID, templateIDs)
		if err != nil {
			return err
		}
		if len(linked) != len(uniqueIDs(templateIDs)) {
			return violation("document_template_ids", "invalid")
		}
		if err := tx.Model(cur).Association("DocumentTemplates").Replace(linked); err != nil {
			return err
		}
		vt, err = s.load(tx, companyID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, companyID)
	return vt, nil
}

func documentTemplatesByID(tx *gorm.DB, companyID uint, ids []uint) ([]models.DocumentTemplate, error) {
	var out []models.DocumentTemplate
	if len(ids) == 0 {
		return out, nil
	}
	err := tx.Where("company_id = ? AND id IN ?", companyID, uniqueIDs(ids)).Find(&out).Error
	return out, err
}

func variableTemplatesByID(tx *gorm.DB, companyID uint, ids []uint) ([]models.VariableTemplate, error) {
	var out []models.VariableTemplate
	if len(ids) == 0 {
		return out, nil
	}
	err := tx.Where("company_id = ? AND id IN ?", companyID, uniqueIDs(ids)).Order("id").Find(&out).Error
	return out, err
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
