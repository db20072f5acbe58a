package handlers

import (
	"net/http"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/services"
	"gorm.io/gorm"
)

type AuthHandler struct {
	db  *gorm.DB
	svc *services.AuthService
}

func NewAuthHandler(db *gorm.DB, svc *services.AuthService) *AuthHandler {
	return &AuthHandler{db: db, svc: svc}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type meResponse struct {
	User        *models.User    `json:"user"`
	Company     *models.Company `json:"company"`
	Permissions []string        `json:"permissions"`
}

// Signup creates a company with its owner and opens a session.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var in services.SignupInput
	if !decode(w, r, &in) {
		return
	}
	user, err := h.svc.Signup(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	auth.CreateSession(w, user.ID)
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if !decode(w, r, &in) {
		return
	}
	user, err := h.svc.Authenticate(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	auth.CreateSession(w, user.ID)
	httpx.JSON(w, http.StatusOK, user)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the caller with their company and permission codes.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	var user models.User
	if err := h.db.WithContext(r.Context()).Preload("Profile.Permissions").First(&user, id.UserID).Error; err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var company models.Company
	if err := h.db.WithContext(r.Context()).First(&company, user.CompanyID).Error; err != nil {
		writeError(w, r, err)
		return
	}
	perms := []string{}
	if user.Profile != nil {
		for _, p := range user.Profile.Permissions {
			perms = append(perms, p.Code())
		}
		user.Profile.Permissions = nil
	}
	httpx.JSON(w, http.StatusOK, meResponse{User: &user, Company: &company, Permissions: perms})
}
