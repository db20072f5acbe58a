package services

import (
	"context"

	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/requirements"
	"github.com/diewo77/go-crm/validation"
	"gorm.io/gorm"
)

type RuleService struct {
	db *gorm.DB
}

func NewRuleService(db *gorm.DB) *RuleService {
	return &RuleService{db: db}
}

// RuleInput is a rule definition as posted by clients. IsActive defaults to true.
type RuleInput struct {
	requirements.Rule
	IsActive *bool `json:"isActive"`
}

func (in RuleInput) definition() requirements.Rule {
	def := in.Rule
	def.IsActive = in.IsActive == nil || *in.IsActive
	return def
}

// List returns the company's rules, highest priority first.
func (s *RuleService) List(ctx context.Context, companyID uint, activeOnly bool) ([]models.DocumentRequirementRule, error) {
	q := s.db.WithContext(ctx).Where("company_id = ?", companyID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var rules []models.DocumentRequirementRule
	if err := q.Order("priority DESC, id").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (s *RuleService) Get(ctx context.Context, companyID, id uint) (*models.DocumentRequirementRule, error) {
	var rule models.DocumentRequirementRule
	if err := s.db.WithContext(ctx).Where("company_id = ?", companyID).First(&rule, id).Error; err != nil {
		return nil, notFound(err, "requirement rule")
	}
	return &rule, nil
}

func validateRule(def requirements.Rule) error {
	v := make(validation.Violations)
	for f, c := range def.Validate() {
		v.Add(f, c)
	}
	return v.Err()
}

func (s *RuleService) Create(ctx context.Context, companyID uint, in RuleInput) (*models.DocumentRequirementRule, error) {
	def := in.definition()
	if err := validateRule(def); err != nil {
		return nil, err
	}
	rule := models.RuleFromDefinition(companyID, def)
	if err := s.db.WithContext(ctx).Create(&rule).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (s *RuleService) Update(ctx context.Context, companyID, id uint, in RuleInput) (*models.DocumentRequirementRule, error) {
	existing, err := s.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	def := in.definition()
	if in.IsActive == nil {
		def.IsActive = existing.IsActive
	}
	if err := validateRule(def); err != nil {
		return nil, err
	}
	rule := models.RuleFromDefinition(companyID, def)
	rule.ID = existing.ID
	rule.CreatedAt = existing.CreatedAt
	if err := s.db.WithContext(ctx).Save(&rule).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (s *RuleService) Delete(ctx context.Context, companyID, id uint) error {
	res := s.db.WithContext(ctx).Where("company_id = ?", companyID).Delete(&models.DocumentRequirementRule{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Evaluate runs the company's active rules against an order.
func (s *RuleService) Evaluate(ctx context.Context, companyID uint, order requirements.OrderContext) (requirements.Result, error) {
	stored, err := s.List(ctx, companyID, true)
	if err != nil {
		return requirements.Result{}, err
	}
	rules := make([]requirements.Rule, len(stored))
	for i := range stored {
		rules[i] = stored[i].Rule()
	}
	return requirements.Evaluate(order, rules), nil
}
