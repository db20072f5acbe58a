package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/diewo77/go-crm/gate"
	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/policy"
	"github.com/diewo77/go-crm/internal/services"
	"github.com/diewo77/go-crm/validation"
	"gorm.io/gorm"
)

type ClientHandler struct {
	db    *gorm.DB
	authz Authorizer
	users *services.AuthService
}

func NewClientHandler(db *gorm.DB, authz Authorizer, users *services.AuthService) *ClientHandler {
	return &ClientHandler{db: db, authz: authz, users: users}
}

type clientRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	CompanyName string `json:"company_name"`
	Type        string `json:"type"`
	Address     string `json:"address"`
	City        string `json:"city"`
	PostalCode  string `json:"postal_code"`
	Country     string `json:"country"`
	VATNumber   string `json:"vat_number"`
	CRNumber    string `json:"cr_number"`
}

func (in clientRequest) apply(c *models.Client) validation.Violations {
	c.Name = strings.TrimSpace(in.Name)
	c.Email = strings.ToLower(strings.TrimSpace(in.Email))
	c.Phone = strings.TrimSpace(in.Phone)
	c.CompanyName = strings.TrimSpace(in.CompanyName)
	c.Type = strings.TrimSpace(in.Type)
	if c.Type == "" {
		c.Type = models.ClientTypeIndividual
	}
	c.Address = in.Address
	c.City = in.City
	c.PostalCode = in.PostalCode
	c.Country = in.Country
	c.VATNumber = strings.TrimSpace(in.VATNumber)
	c.CRNumber = strings.TrimSpace(in.CRNumber)

	v := make(validation.Violations)
	validation.Required("name", c.Name, v)
	validation.MaxLen("name", c.Name, 255, v)
	validation.Email("email", c.Email, v)
	validation.OneOf("type", c.Type, []string{models.ClientTypeIndividual, models.ClientTypeBusiness}, v)
	return v
}

// List supports ?q= on name, company name and email.
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	page, size := httpx.Page(r, 20)
	q := h.db.WithContext(r.Context()).Model(&models.Client{}).Where("company_id = ?", identity(r).CompanyID)
	if term := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q"))); term != "" {
		like := "%" + term + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(company_name) LIKE ? OR LOWER(email) LIKE ?", like, like, like)
	}
	if t := r.URL.Query().Get("type"); t != "" {
		q = q.Where("type = ?", t)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		writeError(w, r, err)
		return
	}
	clients := []models.Client{}
	if err := q.Order("name, id").Limit(size).Offset((page - 1) * size).Find(&clients).Error; err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Paged[models.Client]{Items: clients, Total: total, Page: page, PerPage: size})
}

func (h *ClientHandler) load(w http.ResponseWriter, r *http.Request, action gate.Action) (*models.Client, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}
	var client models.Client
	err := h.db.WithContext(r.Context()).Where("company_id = ?", identity(r).CompanyID).First(&client, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return nil, false
	}
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	if !authorize(w, r, h.authz, action, policy.ResourceClient, &client) {
		return nil, false
	}
	return &client, true
}

func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	client, ok := h.load(w, r, gate.ActionView)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in clientRequest
	if !decode(w, r, &in) {
		return
	}
	client := models.Client{CompanyID: identity(r).CompanyID}
	if v := in.apply(&client); !v.Empty() {
		writeError(w, r, v.Err())
		return
	}
	if err := h.db.WithContext(r.Context()).Create(&client).Error; err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, client)
}

func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	client, ok := h.load(w, r, gate.ActionUpdate)
	if !ok {
		return
	}
	var in clientRequest
	if !decode(w, r, &in) {
		return
	}
	if v := in.apply(client); !v.Empty() {
		writeError(w, r, v.Err())
		return
	}
	if err := h.db.WithContext(r.Context()).Save(client).Error; err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

// Delete refuses clients that still have invoices.
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	client, ok := h.load(w, r, gate.ActionDelete)
	if !ok {
		return
	}
	var n int64
	if err := h.db.WithContext(r.Context()).Model(&models.Invoice{}).Where("client_id = ?", client.ID).Count(&n).Error; err != nil {
		writeError(w, r, err)
		return
	}
	if n > 0 {
		httpx.JSONError(w, http.StatusConflict, "client_has_invoices", nil)
		return
	}
	if err := h.db.WithContext(r.Context()).Delete(client).Error; err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreatePortalUser gives the client a login to the portal.
func (h *ClientHandler) CreatePortalUser(w http.ResponseWriter, r *http.Request) {
	client, ok := h.load(w, r, gate.ActionUpdate)
	if !ok {
		return
	}
	var in services.PortalUserInput
	if !decode(w, r, &in) {
		return
	}
	user, err := h.users.CreatePortalUser(r.Context(), client.CompanyID, client.ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}
