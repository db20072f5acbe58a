package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/validation"
	"gorm.io/gorm"
)

// ProfileCache drops cached profiles after permission changes.
type ProfileCache interface {
	InvalidateUser(userID uint)
	InvalidateAll()
}

// AdminProfileHandler manages profiles and their permissions. Profiles are
// shared by every company, so these routes are for "*:*" admins only.
type AdminProfileHandler struct {
	DB    *gorm.DB
	Cache ProfileCache
}

func NewAdminProfileHandler(db *gorm.DB, cache ProfileCache) *AdminProfileHandler {
	return &AdminProfileHandler{DB: db, Cache: cache}
}

type profileRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type permissionsRequest struct {
	Permissions []string `json:"permissions"`
}

func (h *AdminProfileHandler) invalidate() {
	if h.Cache != nil {
		h.Cache.InvalidateAll()
	}
}

func (h *AdminProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	var profiles []models.Profile
	if err := h.DB.WithContext(r.Context()).Preload("Permissions").Order("id").Find(&profiles).Error; err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"profiles": profiles})
}

func (h *AdminProfileHandler) load(w http.ResponseWriter, r *http.Request) (*models.Profile, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}
	var profile models.Profile
	err := h.DB.WithContext(r.Context()).Preload("Permissions").First(&profile, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return nil, false
	}
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return &profile, true
}

func (h *AdminProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.load(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, profile)
}

func (h *AdminProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in profileRequest
	if !decode(w, r, &in) {
		return
	}
	profile := models.Profile{Name: strings.TrimSpace(in.Name), Description: strings.TrimSpace(in.Description)}
	v := make(validation.Violations)
	validation.Required("name", profile.Name, v)
	validation.MaxLen("name", profile.Name, 100, v)
	if err := v.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.DB.WithContext(r.Context()).Create(&profile).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate") || strings.Contains(strings.ToLower(err.Error()), "unique") {
			httpx.JSONError(w, http.StatusConflict, "name_already_exists", nil)
			return
		}
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, profile)
}

// Update renames a profile. System profiles keep their name.
func (h *AdminProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.load(w, r)
	if !ok {
		return
	}
	var in profileRequest
	if !decode(w, r, &in) {
		return
	}
	if name := strings.TrimSpace(in.Name); name != "" && name != profile.Name {
		if profile.IsSystem {
			httpx.JSONError(w, http.StatusForbidden, "cannot_rename_system_profile", nil)
			return
		}
		profile.Name = name
	}
	profile.Description = strings.TrimSpace(in.Description)
	if err := h.DB.WithContext(r.Context()).Omit("Permissions").Save(profile).Error; err != nil {
		writeError(w, r, err)
		return
	}
	h.invalidate()
	httpx.JSON(w, http.StatusOK, profile)
}

func (h *AdminProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.load(w, r)
	if !ok {
		return
	}
	if profile.IsSystem {
		httpx.JSONError(w, http.StatusForbidden, "cannot_delete_system_profile", nil)
		return
	}
	var users int64
	if err := h.DB.WithContext(r.Context()).Model(&models.User{}).Where("profile_id = ?", profile.ID).Count(&users).Error; err != nil {
		writeError(w, r, err)
		return
	}
	if users > 0 {
		httpx.JSONError(w, http.StatusConflict, "profile_has_users", nil)
		return
	}
	err := h.DB.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(profile).Association("Permissions").Clear(); err != nil {
			return err
		}
		return tx.Delete(profile).Error
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetPermissions replaces a profile's permissions by code ("invoice:view").
func (h *AdminProfileHandler) SetPermissions(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.load(w, r)
	if !ok {
		return
	}
	var in permissionsRequest
	if !decode(w, r, &in) {
		return
	}
	perms := make([]models.Permission, 0, len(in.Permissions))
	unknown := make(validation.Violations)
	for i, code := range in.Permissions {
		res, action, found := strings.Cut(strings.TrimSpace(code), ":")
		var p models.Permission
		err := h.DB.WithContext(r.Context()).Where("resource_type = ? AND action = ?", res, action).First(&p).Error
		if !found || errors.Is(err, gorm.ErrRecordNotFound) {
			unknown.Add("permissions["+strconv.Itoa(i)+"]", "invalid")
			continue
		}
		if err != nil {
			writeError(w, r, err)
			return
		}
		perms = append(perms, p)
	}
	if err := unknown.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.DB.WithContext(r.Context()).Model(profile).Association("Permissions").Replace(perms); err != nil {
		writeError(w, r, err)
		return
	}
	h.invalidate()
	profile.Permissions = perms
	httpx.JSON(w, http.StatusOK, profile)
}

// ListPermissions returns every known permission.
func (h *AdminProfileHandler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	var permissions []models.Permission
	if err := h.DB.WithContext(r.Context()).Order("resource_type, action").Find(&permissions).Error; err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, permissions)
}
