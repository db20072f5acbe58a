package handlers

import (
	"net/http"
	"strings"

	"github.com/diewo77/go-crm/gate"
	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/policy"
	"github.com/diewo77/go-crm/validation"
	"gorm.io/gorm"
)

type CompanyHandler struct {
	db    *gorm.DB
	authz Authorizer
}

func NewCompanyHandler(db *gorm.DB, authz Authorizer) *CompanyHandler {
	return &CompanyHandler{db: db, authz: authz}
}

type companyRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Website    string `json:"website"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	VATNumber  string `json:"vat_number"`
	CRNumber   string `json:"cr_number"`
	Currency   string `json:"currency"`
	LogoURL    string `json:"logo_url"`
}

func (h *CompanyHandler) load(w http.ResponseWriter, r *http.Request, action gate.Action) (*models.Company, bool) {
	var company models.Company
	if err := h.db.WithContext(r.Context()).First(&company, identity(r).CompanyID).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return nil, false
	}
	if !authorize(w, r, h.authz, action, policy.ResourceCompany, &company) {
		return nil, false
	}
	return &company, true
}

func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	company, ok := h.load(w, r, gate.ActionView)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, company)
}

// Update replaces the company settings.
func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	company, ok := h.load(w, r, gate.ActionUpdate)
	if !ok {
		return
	}
	var in companyRequest
	if !decode(w, r, &in) {
		return
	}
	company.Name = strings.TrimSpace(in.Name)
	company.Email = strings.TrimSpace(in.Email)
	company.Phone = in.Phone
	company.Website = in.Website
	company.Address = in.Address
	company.City = in.City
	company.PostalCode = in.PostalCode
	company.Country = in.Country
	company.VATNumber = strings.TrimSpace(in.VATNumber)
	company.CRNumber = strings.TrimSpace(in.CRNumber)
	company.LogoURL = in.LogoURL
	if c := strings.ToUpper(strings.TrimSpace(in.Currency)); c != "" {
		company.Currency = c
	}

	v := make(validation.Violations)
	validation.Required("name", company.Name, v)
	validation.MaxLen("name", company.Name, 255, v)
	validation.Email("email", company.Email, v)
	validation.MaxLen("vat_number", company.VATNumber, 20, v)
	if len(company.Currency) != 3 {
		v.Add("currency", "invalid")
	}
	if err := v.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.db.WithContext(r.Context()).Save(company).Error; err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, company)
}
