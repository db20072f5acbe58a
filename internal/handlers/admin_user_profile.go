package handlers

import (
	"errors"
	"net/http"

	"github.com/diewo77/go-crm/gate"
	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/policy"
	"gorm.io/gorm"
)

// AdminUserProfileHandler assigns profiles to the users of the caller's
// company.
type AdminUserProfileHandler struct {
	DB    *gorm.DB
	Cache ProfileCache
	authz Authorizer
}

func NewAdminUserProfileHandler(db *gorm.DB, cache ProfileCache, authz Authorizer) *AdminUserProfileHandler {
	return &AdminUserProfileHandler{DB: db, Cache: cache, authz: authz}
}

type assignProfileRequest struct {
	ProfileID *uint `json:"profile_id"`
}

func (h *AdminUserProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	var users []models.User
	err := h.DB.WithContext(r.Context()).Preload("Profile").
		Where("company_id = ?", identity(r).CompanyID).
		Order("id").Find(&users).Error
	if err != nil {
		writeError(w, r, err)
		return
	}
	var profiles []models.Profile
	if err := h.DB.WithContext(r.Context()).Order("id").Find(&profiles).Error; err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"users":    users,
		"profiles": profiles,
	})
}

// AssignProfile sets or clears (profile_id null) a user's profile.
func (h *AdminUserProfileHandler) AssignProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var user models.User
	err := h.DB.WithContext(r.Context()).Where("company_id = ?", identity(r).CompanyID).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !authorize(w, r, h.authz, gate.ActionUpdate, policy.ResourceUser, &user) {
		return
	}

	var in assignProfileRequest
	if !decode(w, r, &in) {
		return
	}
	if in.ProfileID != nil {
		var profile models.Profile
		if err := h.DB.WithContext(r.Context()).First(&profile, *in.ProfileID).Error; err != nil {
			httpx.JSONError(w, http.StatusNotFound, "profile_not_found", nil)
			return
		}
	}
	if err := h.DB.WithContext(r.Context()).Model(&user).Update("profile_id", in.ProfileID).Error; err != nil {
		writeError(w, r, err)
		return
	}
	if h.Cache != nil {
		h.Cache.InvalidateUser(user.ID)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"user_id":    user.ID,
		"profile_id": in.ProfileID,
	})
}
