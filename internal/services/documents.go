package services

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/go-crm/internal/cache"
	"github.com/diewo77/go-crm/internal/ids"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/render"
	"github.com/diewo77/go-crm/internal/variables"
	"github.com/diewo77/go-crm/internal/zatca"
	"github.com/diewo77/go-crm/validation"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

type DocumentService struct {
	db     *gorm.DB
	engine *variables.Engine
	cache  cache.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewDocumentService returns the template service. A nil cache disables
// analysis caching.
func NewDocumentService(db *gorm.DB, engine *variables.Engine, c cache.Client, ttl time.Duration) *DocumentService {
	return &DocumentService{db: db, engine: engine, cache: c, ttl: ttl, now: time.Now}
}

func (s *DocumentService) Engine() *variables.Engine { return s.engine }

type TemplateInput struct {
	Name                string `json:"name"`
	Slug                string `json:"slug"`
	DocumentType        string `json:"document_type"`
	Content             string `json:"content"`
	IsDefault           *bool  `json:"is_default"`
	IsActive            *bool  `json:"is_active"`
	VariableTemplateIDs []uint `json:"variable_template_ids"`
}

func (s *DocumentService) loadTemplate(tx *gorm.DB, companyID, id uint) (*models.DocumentTemplate, error) {
	var tpl models.DocumentTemplate
	err := tx.Where("company_id = ?", companyID).
		Preload("VariableTemplates", func(db *gorm.DB) *gorm.DB { return db.Order("variable_templates.id") }).
		First(&tpl, id).Error
	if err != nil {
		return nil, notFound(err, "document template")
	}
	return &tpl, nil
}

func (s *DocumentService) GetTemplate(ctx context.Context, companyID, id uint) (*models.DocumentTemplate, error) {
	return s.loadTemplate(s.db.WithContext(ctx), companyID, id)
}

type TemplateFilter struct {
	DocumentType string
	Active       *bool
}

func (s *DocumentService) ListTemplates(ctx context.Context, companyID uint, f TemplateFilter) ([]models.DocumentTemplate, error) {
	q := s.db.WithContext(ctx).Where("company_id = ?", companyID)
	if f.DocumentType != "" {
		q = q.Where("document_type = ?", f.DocumentType)
	}
	if f.Active != nil {
		q = q.Where("is_active = ?", *f.Active)
	}
	var out []models.DocumentTemplate
	err := q.Order("name").Find(&out).Error
	return out, err
}

func (s *DocumentService) applyTemplateInput(tx *gorm.DB, tpl *models.DocumentTemplate, in TemplateInput) (validation.Violations, []models.VariableTemplate, error) {
	tpl.Name = strings.TrimSpace(in.Name)
	tpl.Slug = strings.TrimSpace(in.Slug)
	if tpl.Slug == "" {
		tpl.Slug = Slugify(tpl.Name)
	}
	tpl.DocumentType = strings.TrimSpace(in.DocumentType)
	if tpl.DocumentType == "" {
		tpl.DocumentType = models.DocumentTypeOther
	}
	tpl.Content = in.Content
	if in.IsDefault != nil {
		tpl.IsDefault = *in.IsDefault
	}
	if in.IsActive != nil {
		tpl.IsActive = *in.IsActive
	}

	v := make(validation.Violations)
	validation.Required("name", tpl.Name, v)
	validation.MaxLen("name", tpl.Name, 255, v)
	if !slugPattern.MatchString(tpl.Slug) {
		v.Add("slug", "invalid")
	}
	validation.OneOf("document_type", tpl.DocumentType, models.DocumentTypes, v)
	validation.Required("content", tpl.Content, v)
	if strings.TrimSpace(tpl.Content) != "" {
		if err := render.Validate(tpl.Content); err != nil {
			v.Add("content", "invalid_template")
		}
	}

	var n int64
	q := tx.Model(&models.DocumentTemplate{}).Where("company_id = ? AND slug = ?", tpl.CompanyID, tpl.Slug)
	if tpl.ID != 0 {
		q = q.Where("id <> ?", tpl.ID)
	}
	if err := q.Count(&n).Error; err != nil {
		return nil, nil, err
	}
	if n > 0 {
		v.Add("slug", "taken")
	}

	var linked []models.VariableTemplate
	if in.VariableTemplateIDs != nil {
		var err error
		linked, err = variableTemplatesByID(tx, tpl.CompanyID, in.VariableTemplateIDs)
		if err != nil {
			return nil, nil, err
		}
		if len(linked) != len(uniqueIDs(in.VariableTemplateIDs)) {
			v.Add("variable_template_ids", "invalid")
		}
	}
	return v, linked, nil
}

func (s *DocumentService) saveTemplate(ctx context.Context, tpl *models.DocumentTemplate, in TemplateInput) (*models.DocumentTemplate, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		v, linked, err := s.applyTemplateInput(tx, tpl, in)
		if err != nil {
			return err
		}
		if err := v.Err(); err != nil {
			return err
		}
		if tpl.IsDefault {
			if err := tx.Model(&models.DocumentTemplate{}).
				Where("company_id = ? AND document_type = ? AND id <> ?", tpl.CompanyID, tpl.DocumentType, tpl.ID).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		if err := tx.Omit("VariableTemplates").Save(tpl).Error; err != nil {
			if isUniqueViolation(err) {
				return violation("slug", "taken")
			}
			return err
		}
		if in.VariableTemplateIDs != nil {
			if err := tx.Model(tpl).Association("VariableTemplates").Replace(linked); err != nil {
				return err
			}
		}
		reloaded, err := s.loadTemplate(tx, tpl.CompanyID, tpl.ID)
		if err != nil {
			return err
		}
		*tpl = *reloaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.InvalidateAnalyses(ctx, tpl.CompanyID)
	return tpl, nil
}

func (s *DocumentService) CreateTemplate(ctx context.Context, companyID, userID uint, in TemplateInput) (*models.DocumentTemplate, error) {
	tpl := &models.DocumentTemplate{CompanyID: companyID, CreatedByID: userID, IsActive: true}
	return s.saveTemplate(ctx, tpl, in)
}

func (s *DocumentService) UpdateTemplate(ctx context.Context, companyID, id uint, in TemplateInput) (*models.DocumentTemplate, error) {
	tpl, err := s.GetTemplate(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	tpl.VariableTemplates = nil
	return s.saveTemplate(ctx, tpl, in)
}

// DeleteTemplate removes the template and its links. Linked variable
// templates and generated documents are kept.
func (s *DocumentService) DeleteTemplate(ctx context.Context, companyID, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tpl, err := s.loadTemplate(tx, companyID, id)
		if err != nil {
			return err
		}
		if err := tx.Model(tpl).Association("VariableTemplates").Clear(); err != nil {
			return err
		}
		return tx.Delete(tpl).Error
	})
	if err == nil {
		s.InvalidateAnalyses(ctx, companyID)
	}
	return err
}

func analysisPrefix(companyID uint) string {
	return cache.Key("analysis", strconv.FormatUint(uint64(companyID), 10)) + ":"
}

func analysisKey(tpl *models.DocumentTemplate) string {
	return analysisPrefix(tpl.CompanyID) + cache.Key(
		strconv.FormatUint(uint64(tpl.ID), 10),
		strconv.FormatInt(tpl.UpdatedAt.Unix(), 10),
	)
}

// InvalidateAnalyses drops every cached analysis of a company. Failures are
// logged: a stale entry expires with its TTL.
func (s *DocumentService) InvalidateAnalyses(ctx context.Context, companyID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPrefix(ctx, analysisPrefix(companyID)); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Uint("company_id", companyID).Msg("invalidate analysis cache")
	}
}

// analyze detects the variables of a template, resolving custom keys
// against its active linked variable templates in link order.
func (s *DocumentService) analyze(tpl *models.DocumentTemplate) variables.Analysis {
	var sets [][]variables.Variable
	for _, vt := range tpl.VariableTemplates {
		if vt.IsActive {
			sets = append(sets, []variables.Variable(vt.Variables))
		}
	}
	if len(sets) == 0 {
		return s.engine.Analyze(tpl.Content, nil)
	}
	return s.engine.Analyze(tpl.Content, sets[0], sets[1:]...)
}

// Analyze returns the cached analysis of a stored template.
func (s *DocumentService) Analyze(ctx context.Context, companyID, id uint) (variables.Analysis, error) {
	tpl, err := s.GetTemplate(ctx, companyID, id)
	if err != nil {
		return variables.Analysis{}, err
	}
	return s.cachedAnalysis(ctx, tpl), nil
}

func (s *DocumentService) cachedAnalysis(ctx context.Context, tpl *models.DocumentTemplate) variables.Analysis {
	log := zerolog.Ctx(ctx)
	key := analysisKey(tpl)
	if s.cache != nil {
		var a variables.Analysis
		err := cache.GetJSON(ctx, s.cache, key, &a)
		if err == nil {
			return a
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Warn().Err(err).Str("key", key).Msg("read analysis cache")
		}
	}
	a := s.analyze(tpl)
	if s.cache != nil {
		if err := cache.SetJSON(ctx, s.cache, key, a, s.ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("write analysis cache")
		}
	}
	return a
}

// AnalyzeMarkup analyzes ad-hoc markup against the given custom variables.
func (s *DocumentService) AnalyzeMarkup(markup string, vars []variables.Variable) (variables.Analysis, error) {
	if err := render.Validate(markup); err != nil {
		return variables.Analysis{}, violation("content", "invalid_template")
	}
	return s.engine.Analyze(markup, vars), nil
}

// Merge analyzes several templates and unions the results in the given order.
func (s *DocumentService) Merge(ctx context.Context, companyID uint, templateIDs []uint) (variables.Analysis, error) {
	if len(templateIDs) == 0 {
		return variables.Analysis{}, violation("template_ids", "required")
	}
	analyses := make([]variables.Analysis, 0, len(templateIDs))
	for _, id := range templateIDs {
		a, err := s.Analyze(ctx, companyID, id)
		if err != nil {
			return variables.Analysis{}, err
		}
		analyses = append(analyses, a)
	}
	return variables.Merge(analyses...), nil
}

type GenerateInput struct {
	InvoiceID *uint          `json:"invoice_id"`
	Data      map[string]any `json:"data"`
}

// SystemValues computes the catalog values available for a document.
// Amounts are formatted with the invoice currency.
func SystemValues(company *models.Company, inv *models.Invoice, payments []models.Payment, now time.Time) map[string]any {
	vals := map[string]any{
		"currentDate":      now.Format("2006-01-02"),
		"currentTime":      now.Format("15:04"),
		"companyName":      company.Name,
		"companyEmail":     company.Email,
		"companyPhone":     company.Phone,
		"companyAddress":   company.FullAddress(),
		"companyVatNumber": company.VATNumber,
		"companyCrNumber":  company.CRNumber,
		"companyLogo":      company.LogoURL,
		"currency":         company.Currency,
	}
	if inv == nil {
		return vals
	}

	cur := inv.Currency
	paid := models.AmountPaid(payments)
	due := models.Round2(inv.Total() - paid)
	if due < 0 {
		due = 0
	}
	order := inv.Reference
	if order == "" {
		order = inv.NumberString()
	}
	rows := make([]render.Row, len(inv.Items))
	for i := range inv.Items {
		it := &inv.Items[i]
		rows[i] = render.Row{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			VATRate:     it.VATRate,
			Total:       models.Round2(it.Subtotal() + it.VAT()),
		}
	}

	vals["currency"] = cur
	vals["invoiceNumber"] = inv.NumberString()
	vals["orderNumber"] = order
	vals["issueDate"] = inv.IssueDate.Format("2006-01-02")
	vals["dueDate"] = inv.DueDate.Format("2006-01-02")
	vals["invoiceStatus"] = string(inv.Status)
	vals["invoiceTimestamp"] = inv.IssueDate.UTC().Format(time.RFC3339)
	vals["itemsTable"] = render.ItemsTable(rows, cur)
	vals["subtotal"] = render.FormatMoney(inv.Subtotal(), cur)
	vals["vatAmount"] = render.FormatMoney(inv.VATTotal(), cur)
	vals["totalAmount"] = render.FormatMoney(inv.Total(), cur)
	vals["amountPaid"] = render.FormatMoney(paid, cur)
	vals["amountDue"] = render.FormatMoney(due, cur)

	if qr, err := zatca.QRCode(zatca.Invoice{
		SellerName: company.Name,
		VATNumber:  company.VATNumber,
		Timestamp:  inv.IssueDate,
		Total:      inv.Total(),
		VATTotal:   inv.VATTotal(),
	}); err == nil {
		vals["zatcaQRCode"] = qr
	}

	if c := inv.Client; c != nil {
		vals["clientName"] = c.DisplayName()
		vals["clientEmail"] = c.Email
		vals["clientPhone"] = c.Phone
		vals["clientAddress"] = c.FullAddress()
		vals["clientVatNumber"] = c.VATNumber
		vals["clientType"] = c.Type
	}
	return vals
}

// Generate renders a template for an optional invoice and stores the result.
// User data fills custom keys and system keys the platform left empty; it
// never overrides a computed system value.
func (s *DocumentService) Generate(ctx context.Context, companyID, userID, templateID uint, in GenerateInput) (*models.GeneratedDocument, error) {
	tpl, err := s.GetTemplate(ctx, companyID, templateID)
	if err != nil {
		return nil, err
	}
	if !tpl.IsActive {
		return nil, ErrTemplateInactive
	}
	analysis := s.cachedAnalysis(ctx, tpl)

	tx := s.db.WithContext(ctx)
	var company models.Company
	if err := tx.First(&company, companyID).Error; err != nil {
		return nil, notFound(err, "company")
	}
	var inv *models.Invoice
	var payments []models.Payment
	if in.InvoiceID != nil {
		var loaded models.Invoice
		err := tx.Where("company_id = ?", companyID).
			Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }).
			Preload("Client").
			First(&loaded, *in.InvoiceID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, violation("invoice_id", "invalid")
			}
			return nil, err
		}
		inv = &loaded
		if err := tx.Where("invoice_id = ?", inv.ID).Find(&payments).Error; err != nil {
			return nil, err
		}
	}

	data := SystemValues(&company, inv, payments, s.now())
	catalog := s.engine.Catalog()
	for k, val := range in.Data {
		if catalog != nil && catalog.Has(k) && !isBlank(data[k]) {
			continue
		}
		data[k] = val
	}
	for _, v := range analysis.CustomVariables() {
		if v.DefaultValue != nil && isBlank(data[v.Key]) {
			data[v.Key] = *v.DefaultValue
		}
	}

	viol := make(validation.Violations)
	if check := variables.ValidateVariableData(analysis.RequiredKeys(), data); !check.Valid {
		for _, key := range check.Missing {
			viol.Add("data."+key, "required")
		}
	}
	viol.Merge("data.", variables.CheckValues(analysis.CustomVariables(), data))
	if err := viol.Err(); err != nil {
		return nil, err
	}

	html, err := render.Render(tpl.Content, data)
	if err != nil {
		return nil, err
	}
	token, err := ids.NewDocumentToken()
	if err != nil {
		return nil, err
	}
	doc := models.GeneratedDocument{
		CompanyID:          companyID,
		DocumentTemplateID: tpl.ID,
		InvoiceID:          in.InvoiceID,
		GeneratedByID:      userID,
		TemplateSlug:       tpl.Slug,
		Token:              token,
		HTML:               html,
		Data:               datatypes.JSONMap(data),
	}
	if err := tx.Create(&doc).Error; err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Str("token", token).Str("template", tpl.Slug).Msg("document generated")
	return &doc, nil
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

type DocumentFilter struct {
	InvoiceID uint
	Page      int
	PerPage   int
}

func (s *DocumentService) ListDocuments(ctx context.Context, companyID uint, f DocumentFilter) ([]models.GeneratedDocument, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.GeneratedDocument{}).Where("company_id = ?", companyID)
	if f.InvoiceID != 0 {
		q = q.Where("invoice_id = ?", f.InvoiceID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if f.PerPage <= 0 {
		f.PerPage = 20
	}
	if f.Page < 1 {
		f.Page = 1
	}
	var docs []models.GeneratedDocument
	err := q.Order("id DESC").Limit(f.PerPage).Offset((f.Page - 1) * f.PerPage).Find(&docs).Error
	return docs, total, err
}

func (s *DocumentService) GetDocument(ctx context.Context, companyID uint, token string) (*models.GeneratedDocument, error) {
	var doc models.GeneratedDocument
	if err := s.db.WithContext(ctx).Where("company_id = ? AND token = ?", companyID, token).First(&doc).Error; err != nil {
		return nil, notFound(err, "document")
	}
	return &doc, nil
}
