package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/requirements"
	"github.com/diewo77/go-crm/validation"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const defaultPaymentTermDays = 30

type InvoiceService struct {
	db      *gorm.DB
	enforce bool
	now     func() time.Time
}

// NewInvoiceService returns the invoice service. When enforceDocuments is
// set, Finalize refuses invoices with missing mandatory documents.
func NewInvoiceService(db *gorm.DB, enforceDocuments bool) *InvoiceService {
	return &InvoiceService{db: db, enforce: enforceDocuments, now: time.Now}
}

type ItemInput struct {
	ProductID   *uint    `json:"product_id"`
	Description string   `json:"description"`
	Quantity    float64  `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price"`
	Unit        string   `json:"unit"`
	VATRate     *float64 `json:"vat_rate"`
}

type InvoiceInput struct {
	ClientID     uint        `json:"client_id"`
	Reference    string      `json:"reference"`
	IssueDate    *time.Time  `json:"issue_date"`
	DueDate      *time.Time  `json:"due_date"`
	Currency     string      `json:"currency"`
	Notes        string      `json:"notes"`
	PaymentTerms string      `json:"payment_terms"`
	Items        []ItemInput `json:"items"`
}

type InvoiceFilter struct {
	Status        string
	ClientID      uint
	ExcludeDrafts bool
	Page          int
	PerPage       int
}

func (s *InvoiceService) load(tx *gorm.DB, companyID, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := tx.Where("company_id = ?", companyID).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }).
		Preload("Items.Product").
		Preload("Client").
		First(&inv, id).Error
	if err != nil {
		return nil, notFound(err, "invoice")
	}
	return &inv, nil
}

func (s *InvoiceService) Get(ctx context.Context, companyID, id uint) (*models.Invoice, error) {
	return s.load(s.db.WithContext(ctx), companyID, id)
}

func (s *InvoiceService) List(ctx context.Context, companyID uint, f InvoiceFilter) ([]models.Invoice, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Invoice{}).Where("company_id = ?", companyID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ClientID != 0 {
		q = q.Where("client_id = ?", f.ClientID)
	}
	if f.ExcludeDrafts {
		q = q.Where("status <> ?", models.InvoiceStatusDraft)
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
	var invoices []models.Invoice
	err := q.Preload("Items").Preload("Client").
		Order("issue_date DESC, id DESC").
		Limit(f.PerPage).Offset((f.Page - 1) * f.PerPage).
		Find(&invoices).Error
	return invoices, total, err
}

// buildItems resolves product defaults and validates lines.
func (s *InvoiceService) buildItems(tx *gorm.DB, companyID uint, in []ItemInput, start int, v validation.Violations) ([]models.InvoiceItem, error) {
	items := make([]models.InvoiceItem, 0, len(in))
	for i, it := range in {
		field := "items[" + itoa(i) + "]."
		item := models.InvoiceItem{
			ProductID:   it.ProductID,
			Description: strings.TrimSpace(it.Description),
			Quantity:    it.Quantity,
			Unit:        it.Unit,
			Position:    start + i,
		}
		if it.ProductID != nil {
			var p models.Product
			err := tx.Where("company_id = ?", companyID).First(&p, *it.ProductID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				v.Add(field+"product_id", "invalid")
				continue
			}
			if err != nil {
				return nil, err
			}
			if item.Description == "" {
				item.Description = p.Name
			}
			if item.Unit == "" {
				item.Unit = p.Unit
			}
			item.UnitPrice = p.UnitPrice
			item.VATRate = p.VATRate
		}
		if it.UnitPrice != nil {
			item.UnitPrice = *it.UnitPrice
		}
		if it.VATRate != nil {
			item.VATRate = *it.VATRate
		}
		validation.Required(field+"description", item.Description, v)
		validation.PositiveFloat(field+"quantity", item.Quantity, v)
		validation.NonNegativeFloat(field+"unit_price", item.UnitPrice, v)
		validation.RangeFloat(field+"vat_rate", item.VATRate, 0, 1, v)
		items = append(items, item)
	}
	return items, nil
}

func (s *InvoiceService) checkClient(tx *gorm.DB, companyID, clientID uint, v validation.Violations) error {
	if clientID == 0 {
		v.Add("client_id", "required")
		return nil
	}
	var n int64
	if err := tx.Model(&models.Client{}).Where("company_id = ? AND id = ?", companyID, clientID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		v.Add("client_id", "invalid")
	}
	return nil
}

// Create stores a draft invoice.
func (s *InvoiceService) Create(ctx context.Context, companyID, userID uint, in InvoiceInput) (*models.Invoice, error) {
	var inv *models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		v := make(validation.Violations)
		if err := s.checkClient(tx, companyID, in.ClientID, v); err != nil {
			return err
		}
		items, err := s.buildItems(tx, companyID, in.Items, 0, v)
		if err != nil {
			return err
		}

		var company models.Company
		if err := tx.First(&company, companyID).Error; err != nil {
			return notFound(err, "company")
		}
		draft := models.Invoice{
			CompanyID:    companyID,
			CreatedByID:  userID,
			Reference:    strings.TrimSpace(in.Reference),
			ClientID:     in.ClientID,
			Currency:     strings.ToUpper(strings.TrimSpace(in.Currency)),
			Status:       models.InvoiceStatusDraft,
			Notes:        in.Notes,
			PaymentTerms: in.PaymentTerms,
			Items:        items,
		}
		if draft.Currency == "" {
			draft.Currency = company.Currency
		}
		if len(draft.Currency) != 3 {
			v.Add("currency", "invalid")
		}
		s.applyDates(&draft, in.IssueDate, in.DueDate, v)
		if err := v.Err(); err != nil {
			return err
		}
		if err := tx.Create(&draft).Error; err != nil {
			return err
		}
		inv, err = s.load(tx, companyID, draft.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Uint("invoice_id", inv.ID).Uint("company_id", companyID).Msg("invoice created")
	return inv, nil
}

func (s *InvoiceService) applyDates(inv *models.Invoice, issue, due *time.Time, v validation.Violations) {
	if issue != nil {
		inv.IssueDate = *issue
	} else if inv.IssueDate.IsZero() {
		inv.IssueDate = s.now()
	}
	if due != nil {
		inv.DueDate = *due
	} else if inv.DueDate.IsZero() {
		inv.DueDate = inv.IssueDate.AddDate(0, 0, defaultPaymentTermDays)
	}
	if inv.DueDate.Before(inv.IssueDate) {
		v.Add("due_date", "before_issue_date")
	}
}

// Update edits the header of a draft. Items, when given, replace the lines.
func (s *InvoiceService) Update(ctx context.Context, companyID, id uint, in InvoiceInput) (*models.Invoice, error) {
	var inv *models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := s.load(tx, companyID, id)
		if err != nil {
			return err
		}
		if !cur.CanEdit() {
			return ErrInvoiceNotEditable
		}
		v := make(validation.Violations)
		if in.ClientID != 0 && in.ClientID != cur.ClientID {
			if err := s.checkClient(tx, companyID, in.ClientID, v); err != nil {
				return err
			}
			cur.ClientID = in.ClientID
			cur.Client = nil
		}
		cur.Reference = strings.TrimSpace(in.Reference)
		cur.Notes = in.Notes
		cur.PaymentTerms = in.PaymentTerms
		if c := strings.ToUpper(strings.TrimSpace(in.Currency)); c != "" {
			if len(c) != 3 {
				v.Add("currency", "invalid")
			}
			cur.Currency = c
		}
		s.applyDates(cur, in.IssueDate, in.DueDate, v)

		var items []models.InvoiceItem
		if in.Items != nil {
			items, err = s.buildItems(tx, companyID, in.Items, 0, v)
			if err != nil {
				return err
			}
		}
		if err := v.Err(); err != nil {
			return err
		}
		if in.Items != nil {
			if err := tx.Where("invoice_id = ?", cur.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
				return err
			}
			for i := range items {
				items[i].InvoiceID = cur.ID
			}
			if len(items) > 0 {
				if err := tx.Create(&items).Error; err != nil {
					return err
				}
			}
		}
		cur.Items = nil
		if err := tx.Omit("Items", "Client").Save(cur).Error; err != nil {
			return err
		}
		inv, err = s.load(tx, companyID, id)
		return err
	})
	return inv, err
}

// Delete removes a draft.
func (s *InvoiceService) Delete(ctx context.Context, companyID, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.load(tx, companyID, id)
		if err != nil {
			return err
		}
		if !inv.CanEdit() {
			return ErrInvoiceNotEditable
		}
		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(inv).Error
	})
}

// AddItem appends a line to a draft.
func (s *InvoiceService) AddItem(ctx context.Context, companyID, id uint, in ItemInput) (*models.Invoice, error) {
	var inv *models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := s.load(tx, companyID, id)
		if err != nil {
			return err
		}
		if !cur.CanEdit() {
			return ErrInvoiceNotEditable
		}
		next := 0
		for _, it := range cur.Items {
			if it.Position >= next {
				next = it.Position + 1
			}
		}
		v := make(validation.Violations)
		items, err := s.buildItems(tx, companyID, []ItemInput{in}, next, v)
		if err != nil {
			return err
		}
		if err := v.Err(); err != nil {
			return err
		}
		items[0].InvoiceID = cur.ID
		if err := tx.Create(&items[0]).Error; err != nil {
			return err
		}
		inv, err = s.load(tx, companyID, id)
		return err
	})
	return inv, err
}

// RemoveItem deletes a line from a draft.
func (s *InvoiceService) RemoveItem(ctx context.Context, companyID, id, itemID uint) (*models.Invoice, error) {
	var inv *models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := s.load(tx, companyID, id)
		if err != nil {
			return err
		}
		if !cur.CanEdit() {
			return ErrInvoiceNotEditable
		}
		res := tx.Where("invoice_id = ?", cur.ID).Delete(&models.InvoiceItem{}, itemID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		inv, err = s.load(tx, companyID, id)
		return err
	})
	return inv, err
}

// Finalize numbers a draft and opens it for payment.
func (s *InvoiceService) Finalize(ctx context.Context, companyID, id uint) (*models.Invoice, error) {
	var inv *models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := s.load(tx, companyID, id)
		if err != nil {
			return err
		}
		if cur.Status != models.InvoiceStatusDraft {
			return ErrInvalidTransition
		}
		if len(cur.Items) == 0 {
			return violation("items", "required")
		}
		if s.enforce {
			report, err := s.requirements(ctx, tx, cur)
			if err != nil {
				return err
			}
			if missing := report.MissingMandatory(); len(missing) > 0 {
				return &MissingDocumentsError{Documents: missing}
			}
		}

		number, err := models.NextInvoiceNumber(tx, companyID, cur.IssueDate.Year())
		if err != nil {
			return err
		}
		cur.Number = &number
		cur.Status = models.InvoiceStatusFinal
		var payments []models.Payment
		if err := tx.Where("invoice_id = ?", cur.ID).Find(&payments).Error; err != nil {
			return err
		}
		models.ApplyReconciliation(cur, payments, s.now())
		if err := tx.Model(cur).Select("number", "status", "paid_date").Updates(cur).Error; err != nil {
			return err
		}
		inv = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Uint("invoice_id", inv.ID).Str("number", inv.NumberString()).Msg("invoice finalized")
	return inv, nil
}

// Cancel voids an invoice that has no completed payments.
func (s *InvoiceService) Cancel(ctx context.Context, companyID, id uint) (*models.Invoice, error) {
	var inv *models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := s.load(tx, companyID, id)
		if err != nil {
			return err
		}
		if cur.Status == models.InvoiceStatusCancelled || cur.Status == models.InvoiceStatusPaid {
			return ErrInvalidTransition
		}
		var n int64
		if err := tx.Model(&models.Payment{}).
			Where("invoice_id = ? AND status = ?", cur.ID, models.PaymentStatusCompleted).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrInvalidTransition
		}
		cur.Status = models.InvoiceStatusCancelled
		cur.PaidDate = nil
		if err := tx.Model(cur).Select("status", "paid_date").Updates(cur).Error; err != nil {
			return err
		}
		inv = cur
		return nil
	})
	return inv, err
}

// OrderContext describes an invoice to the rule evaluator. Lines linked to
// a product use its code and kind; free lines use their description.
func OrderContext(inv *models.Invoice) requirements.OrderContext {
	order := requirements.OrderContext{
		SelectedItems: make([]requirements.SelectedItem, 0, len(inv.Items)),
		TotalAmount:   inv.Total(),
		Currency:      inv.Currency,
	}
	if inv.Client != nil {
		order.ClientType = inv.Client.Type
	}
	for _, it := range inv.Items {
		sel := requirements.SelectedItem{ItemID: it.Description, Quantity: it.Quantity, UnitPrice: it.UnitPrice}
		if it.Product != nil {
			sel.ItemID = it.Product.Code
			sel.Kind = it.Product.Kind
		}
		order.SelectedItems = append(order.SelectedItems, sel)
	}
	return order
}

// RequirementStatus is a required document and whether the invoice has it.
type RequirementStatus struct {
	requirements.ResolvedDocument
	Satisfied     bool   `json:"satisfied"`
	DocumentToken string `json:"documentToken,omitempty"`
}

// RequirementsReport is the outcome of evaluating rules for one invoice.
type RequirementsReport struct {
	Order        requirements.OrderContext `json:"orderContext"`
	MatchedRules []requirements.Rule       `json:"matchedRules"`
	Documents    []RequirementStatus       `json:"requiredDocuments"`
}

// MissingMandatory lists unsatisfied mandatory documents, one per slug.
func (r RequirementsReport) MissingMandatory() []RequirementStatus {
	seen := make(map[string]bool)
	var out []RequirementStatus
	for _, d := range r.Documents {
		if !d.Mandatory || d.Satisfied || seen[d.TemplateID] {
			continue
		}
		seen[d.TemplateID] = true
		out = append(out, d)
	}
	return out
}

// Complete reports whether every mandatory document is present.
func (r RequirementsReport) Complete() bool {
	return len(r.MissingMandatory()) == 0
}

// Requirements evaluates the company's rules for an invoice and marks the
// documents already generated for it.
func (s *InvoiceService) Requirements(ctx context.Context, companyID, id uint) (*RequirementsReport, error) {
	inv, err := s.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	return s.requirements(ctx, s.db.WithContext(ctx), inv)
}

func (s *InvoiceService) requirements(ctx context.Context, tx *gorm.DB, inv *models.Invoice) (*RequirementsReport, error) {
	order := OrderContext(inv)
	result, err := NewRuleService(tx).Evaluate(ctx, inv.CompanyID, order)
	if err != nil {
		return nil, err
	}
	var docs []models.GeneratedDocument
	if err := tx.Select("template_slug", "token").
		Where("company_id = ? AND invoice_id = ?", inv.CompanyID, inv.ID).
		Order("id").Find(&docs).Error; err != nil {
		return nil, err
	}
	tokens := make(map[string]string, len(docs))
	for _, d := range docs {
		if _, ok := tokens[d.TemplateSlug]; !ok {
			tokens[d.TemplateSlug] = d.Token
		}
	}

	report := &RequirementsReport{
		Order:        order,
		MatchedRules: result.MatchedRules,
		Documents:    make([]RequirementStatus, 0, len(result.RequiredDocuments)),
	}
	for _, d := range result.RequiredDocuments {
		token, ok := tokens[d.TemplateID]
		report.Documents = append(report.Documents, RequirementStatus{ResolvedDocument: d, Satisfied: ok, DocumentToken: token})
	}
	return report, nil
}

// Revenue sums the totals of paid invoices of a company.
func (s *InvoiceService) Revenue(ctx context.Context, companyID uint) (float64, error) {
	var invoices []models.Invoice
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND status = ?", companyID, models.InvoiceStatusPaid).
		Preload("Items").
		Find(&invoices).Error
	if err != nil {
		return 0, err
	}
	var total float64
	for i := range invoices {
		total += invoices[i].Total()
	}
	return models.Round2(total), nil
}
