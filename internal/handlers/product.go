package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/diewo77/go-crm/gate"
	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/policy"
	"github.com/diewo77/go-crm/validation"
	"gorm.io/gorm"
)

type ProductHandler struct {
	db    *gorm.DB
	authz Authorizer
}

func NewProductHandler(db *gorm.DB, authz Authorizer) *ProductHandler {
	return &ProductHandler{db: db, authz: authz}
}

type productRequest struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Kind        string  `json:"kind"`
	UnitPrice   float64 `json:"unit_price"`
	Unit        string  `json:"unit"`
	VATRate     float64 `json:"vat_rate"`
	Category    string  `json:"category"`
	IsActive    *bool   `json:"is_active"`
}

// apply copies the request onto p. Codes are the item ids rules match on,
// so they are kept as typed apart from surrounding spaces.
func (in productRequest) apply(p *models.Product) validation.Violations {
	p.Code = strings.TrimSpace(in.Code)
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Kind = strings.TrimSpace(in.Kind)
	if p.Kind == "" {
		p.Kind = models.ProductKindProduct
	}
	p.UnitPrice = in.UnitPrice
	p.Unit = in.Unit
	// 15 means 15%.
	p.VATRate = in.VATRate
	if p.VATRate > 1 {
		p.VATRate = p.VATRate / 100
	}
	p.Category = in.Category
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}

	v := make(validation.Violations)
	validation.Required("code", p.Code, v)
	validation.MaxLen("code", p.Code, 50, v)
	validation.Required("name", p.Name, v)
	validation.OneOf("kind", p.Kind, []string{models.ProductKindProduct, models.ProductKindService}, v)
	validation.NonNegativeFloat("unit_price", p.UnitPrice, v)
	validation.RangeFloat("vat_rate", p.VATRate, 0, 1, v)
	return v
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	page, size := httpx.Page(r, 20)
	q := h.db.WithContext(r.Context()).Model(&models.Product{}).Where("company_id = ?", identity(r).CompanyID)
	if term := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q"))); term != "" {
		like := "%" + term + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ?", like, like)
	}
	if kind := r.URL.Query().Get("kind"); kind != "" {
		q = q.Where("kind = ?", kind)
	}
	if active := boolParam(r, "active"); active != nil {
		q = q.Where("is_active = ?", *active)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		writeError(w, r, err)
		return
	}
	products := []models.Product{}
	if err := q.Order("name, id").Limit(size).Offset((page - 1) * size).Find(&products).Error; err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Paged[models.Product]{Items: products, Total: total, Page: page, PerPage: size})
}

func (h *ProductHandler) load(w http.ResponseWriter, r *http.Request, action gate.Action) (*models.Product, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}
	var product models.Product
	err := h.db.WithContext(r.Context()).Where("company_id = ?", identity(r).CompanyID).First(&product, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return nil, false
	}
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	if !authorize(w, r, h.authz, action, policy.ResourceProduct, &product) {
		return nil, false
	}
	return &product, true
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, ok := h.load(w, r, gate.ActionView)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in productRequest
	if !decode(w, r, &in) {
		return
	}
	product := models.Product{CompanyID: identity(r).CompanyID, IsActive: true}
	v := in.apply(&product)
	if err := h.checkCode(r, &product, v); err != nil {
		writeError(w, r, err)
		return
	}
	if !v.Empty() {
		writeError(w, r, v.Err())
		return
	}
	if err := h.db.WithContext(r.Context()).Create(&product).Error; err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	product, ok := h.load(w, r, gate.ActionUpdate)
	if !ok {
		return
	}
	var in productRequest
	if !decode(w, r, &in) {
		return
	}
	v := in.apply(product)
	if err := h.checkCode(r, product, v); err != nil {
		writeError(w, r, err)
		return
	}
	if !v.Empty() {
		writeError(w, r, v.Err())
		return
	}
	if err := h.db.WithContext(r.Context()).Save(product).Error; err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

// checkCode reports a code already used by another product of the company.
func (h *ProductHandler) checkCode(r *http.Request, p *models.Product, v validation.Violations) error {
	if p.Code == "" {
		return nil
	}
	var n int64
	err := h.db.WithContext(r.Context()).Unscoped().Model(&models.Product{}).
		Where("company_id = ? AND code = ? AND id <> ?", p.CompanyID, p.Code, p.ID).
		Count(&n).Error
	if err != nil {
		return err
	}
	if n > 0 {
		v.Add("code", "taken")
	}
	return nil
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	product, ok := h.load(w, r, gate.ActionDelete)
	if !ok {
		return
	}
	if err := h.db.WithContext(r.Context()).Delete(product).Error; err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
