package services

import (
	"context"
	"strings"
	"time"

	"github.com/diewo77/go-crm/internal/ids"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/validation"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type PaymentService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewPaymentService(db *gorm.DB) *PaymentService {
	return &PaymentService{db: db, now: time.Now}
}

type PaymentInput struct {
	Amount       float64    `json:"amount"`
	Method       string     `json:"method"`
	Status       string     `json:"status"`
	PaidAt       *time.Time `json:"paid_at"`
	Note         string     `json:"note"`
	AllowOverpay bool       `json:"allow_overpay"`
}

// PaymentResult is a payment with the invoice state it left behind.
type PaymentResult struct {
	Payment   *models.Payment      `json:"payment"`
	Invoice   *models.Invoice      `json:"invoice"`
	AmountDue float64              `json:"amount_due"`
	Status    models.InvoiceStatus `json:"invoice_status"`
}

func (s *PaymentService) loadInvoice(tx *gorm.DB, companyID, invoiceID uint) (*models.Invoice, []models.Payment, error) {
	var inv models.Invoice
	if err := tx.Where("company_id = ?", companyID).Preload("Items").First(&inv, invoiceID).Error; err != nil {
		return nil, nil, notFound(err, "invoice")
	}
	var payments []models.Payment
	if err := tx.Where("invoice_id = ?", inv.ID).Order("id").Find(&payments).Error; err != nil {
		return nil, nil, err
	}
	return &inv, payments, nil
}

// reconcile recomputes the invoice status from its payments and persists it.
func (s *PaymentService) reconcile(tx *gorm.DB, inv *models.Invoice) error {
	var payments []models.Payment
	if err := tx.Where("invoice_id = ?", inv.ID).Find(&payments).Error; err != nil {
		return err
	}
	if !models.ApplyReconciliation(inv, payments, s.now()) {
		return nil
	}
	return tx.Model(inv).Select("status", "paid_date").Updates(inv).Error
}

func amountDue(inv *models.Invoice, payments []models.Payment) float64 {
	due := models.Round2(inv.Total() - models.AmountPaid(payments))
	if due < 0 {
		return 0
	}
	return due
}

// record stores a payment. allow may reject the invoice before anything is
// validated; prepare fills in who recorded the payment.
func (s *PaymentService) record(ctx context.Context, companyID, invoiceID uint, in PaymentInput, allow func(*models.Invoice) error, prepare func(*models.Payment)) (*PaymentResult, error) {
	var result *PaymentResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, payments, err := s.loadInvoice(tx, companyID, invoiceID)
		if err != nil {
			return err
		}
		if allow != nil {
			if err := allow(inv); err != nil {
				return err
			}
		}
		if !inv.IsOpen() {
			return ErrInvoiceNotPayable
		}

		status := models.PaymentStatus(strings.TrimSpace(in.Status))
		if status == "" {
			status = models.PaymentStatusCompleted
		}
		amount := models.Round2(in.Amount)
		v := make(validation.Violations)
		validation.PositiveFloat("amount", amount, v)
		validation.OneOf("method", in.Method, models.PaymentMethods, v)
		validation.OneOf("status", string(status), []string{string(models.PaymentStatusCompleted), string(models.PaymentStatusPending)}, v)
		if !in.AllowOverpay && amount > amountDue(inv, payments)+models.PaymentTolerance {
			v.Add("amount", "exceeds_amount_due")
		}
		if err := v.Err(); err != nil {
			return err
		}

		ref, err := ids.NewPaymentReference()
		if err != nil {
			return err
		}
		p := models.Payment{
			CompanyID: companyID,
			InvoiceID: inv.ID,
			Reference: ref,
			Amount:    amount,
			Method:    in.Method,
			Status:    status,
			Note:      strings.TrimSpace(in.Note),

			AllowOverpay: in.AllowOverpay,
		}
		if status == models.PaymentStatusCompleted {
			paidAt := s.now()
			if in.PaidAt != nil {
				paidAt = *in.PaidAt
			}
			p.PaidAt = &paidAt
		}
		prepare(&p)
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		if err := s.reconcile(tx, inv); err != nil {
			return err
		}
		result, err = s.result(tx, inv, &p)
		return err
	})
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().
		Str("reference", result.Payment.Reference).
		Uint("invoice_id", invoiceID).
		Float64("amount", result.Payment.Amount).
		Str("invoice_status", string(result.Status)).
		Msg("payment recorded")
	return result, nil
}

func (s *PaymentService) result(tx *gorm.DB, inv *models.Invoice, p *models.Payment) (*PaymentResult, error) {
	var payments []models.Payment
	if err := tx.Where("invoice_id = ?", inv.ID).Find(&payments).Error; err != nil {
		return nil, err
	}
	return &PaymentResult{Payment: p, Invoice: inv, AmountDue: amountDue(inv, payments), Status: inv.Status}, nil
}

// Record stores a payment taken by staff.
func (s *PaymentService) Record(ctx context.Context, companyID, userID, invoiceID uint, in PaymentInput) (*PaymentResult, error) {
	return s.record(ctx, companyID, invoiceID, in, nil, func(p *models.Payment) {
		p.RecordedByID = userID
	})
}

// PortalPay stores a completed payment made by a client on one of its invoices.
func (s *PaymentService) PortalPay(ctx context.Context, companyID, clientID, userID, invoiceID uint, in PaymentInput) (*PaymentResult, error) {
	in.Status = string(models.PaymentStatusCompleted)
	in.AllowOverpay = false
	in.PaidAt = nil
	if in.Method == "" {
		in.Method = models.PaymentMethodCard
	}
	allow := func(inv *models.Invoice) error {
		if inv.ClientID != clientID {
			return ErrNotFound
		}
		return nil
	}
	return s.record(ctx, companyID, invoiceID, in, allow, func(p *models.Payment) {
		p.RecordedByID = userID
		p.ViaPortal = true
	})
}

func (s *PaymentService) transition(ctx context.Context, companyID, paymentID uint, from, to models.PaymentStatus) (*PaymentResult, error) {
	var result *PaymentResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Payment
		if err := tx.Where("company_id = ?", companyID).First(&p, paymentID).Error; err != nil {
			return notFound(err, "payment")
		}
		if p.Status != from {
			return ErrInvalidPaymentState
		}
		if to == models.PaymentStatusCompleted {
			if err := s.checkSettlement(tx, companyID, &p); err != nil {
				return err
			}
		}
		p.Status = to
		if to == models.PaymentStatusCompleted && p.PaidAt == nil {
			now := s.now()
			p.PaidAt = &now
		}
		if err := tx.Model(&p).Select("status", "paid_at").Updates(&p).Error; err != nil {
			return err
		}
		inv, _, err := s.loadInvoice(tx, companyID, p.InvoiceID)
		if err != nil {
			return err
		}
		if err := s.reconcile(tx, inv); err != nil {
			return err
		}
		result, err = s.result(tx, inv, &p)
		return err
	})
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Str("reference", result.Payment.Reference).Str("status", string(to)).Msg("payment updated")
	return result, nil
}

// checkSettlement applies the recording rules again before a pending payment
// completes: the invoice must still accept payments and the amount must fit
// what is due now.
func (s *PaymentService) checkSettlement(tx *gorm.DB, companyID uint, p *models.Payment) error {
	inv, payments, err := s.loadInvoice(tx, companyID, p.InvoiceID)
	if err != nil {
		return err
	}
	if !inv.IsOpen() {
		return ErrInvoiceNotPayable
	}
	if !p.AllowOverpay && p.Amount > amountDue(inv, payments)+models.PaymentTolerance {
		v := make(validation.Violations)
		v.Add("amount", "exceeds_amount_due")
		return v.Err()
	}
	return nil
}

// Refund reverses a completed payment.
func (s *PaymentService) Refund(ctx context.Context, companyID, paymentID uint) (*PaymentResult, error) {
	return s.transition(ctx, companyID, paymentID, models.PaymentStatusCompleted, models.PaymentStatusRefunded)
}

// Fail marks a pending payment as failed.
func (s *PaymentService) Fail(ctx context.Context, companyID, paymentID uint) (*PaymentResult, error) {
	return s.transition(ctx, companyID, paymentID, models.PaymentStatusPending, models.PaymentStatusFailed)
}

// Complete settles a pending payment.
func (s *PaymentService) Complete(ctx context.Context, companyID, paymentID uint) (*PaymentResult, error) {
	return s.transition(ctx, companyID, paymentID, models.PaymentStatusPending, models.PaymentStatusCompleted)
}

// List returns the payments of an invoice, oldest first.
func (s *PaymentService) List(ctx context.Context, companyID, invoiceID uint) ([]models.Payment, error) {
	_, payments, err := s.loadInvoice(s.db.WithContext(ctx), companyID, invoiceID)
	return payments, err
}

// RefreshOverdue reconciles every open invoice past its due date and
// returns how many changed status.
func (s *PaymentService) RefreshOverdue(ctx context.Context) (int, error) {
	var invoices []models.Invoice
	err := s.db.WithContext(ctx).
		Where("status IN ? AND due_date < ?", []models.InvoiceStatus{models.InvoiceStatusFinal, models.InvoiceStatusPartiallyPaid}, s.now()).
		Preload("Items").
		Find(&invoices).Error
	if err != nil {
		return 0, err
	}
	changed := 0
	for i := range invoices {
		inv := &invoices[i]
		before := inv.Status
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.reconcile(tx, inv)
		})
		if err != nil {
			return changed, err
		}
		if inv.Status != before {
			changed++
		}
	}
	return changed, nil
}
