package handlers

import (
	"context"
	"net/http"

	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/services"
)

type PaymentHandler struct {
	payments *services.PaymentService
}

func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type paymentTransition func(ctx context.Context, companyID, paymentID uint) (*services.PaymentResult, error)

func (h *PaymentHandler) run(w http.ResponseWriter, r *http.Request, fn paymentTransition) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	res, err := fn(r.Context(), identity(r).CompanyID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.payments.Refund)
}

func (h *PaymentHandler) Fail(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.payments.Fail)
}

func (h *PaymentHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.payments.Complete)
}
