package policy

import (
	"context"
	"errors"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/gate"
	"github.com/diewo77/go-crm/internal/models"
	"gorm.io/gorm"
)

// DBProfileResolver loads a user's profile and permissions from the database.
type DBProfileResolver struct {
	DB *gorm.DB
}

func NewDBProfileResolver(db *gorm.DB) *DBProfileResolver {
	return &DBProfileResolver{DB: db}
}

// Resolve returns nil, nil when the user has no profile.
func (r *DBProfileResolver) Resolve(ctx context.Context, userID uint) (gate.Profile, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Preload("Profile.Permissions").First(&user, userID).Error; err != nil {
		return nil, err
	}
	if user.Profile == nil {
		return nil, nil
	}
	perms := make([]gate.Permission, len(user.Profile.Permissions))
	for i, p := range user.Profile.Permissions {
		perms[i] = gate.NewPermission(p.ResourceType, gate.Action(p.Action))
	}
	return gate.NewStaticProfile(user.Profile.ID, user.Profile.Name, perms...), nil
}

// IdentityResolver turns a session's user id into the caller's identity.
func IdentityResolver(db *gorm.DB) auth.Resolver {
	return func(ctx context.Context, userID uint) (auth.Identity, bool, error) {
		var user models.User
		err := db.WithContext(ctx).Select("id", "company_id", "client_id").First(&user, userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return auth.Identity{}, false, nil
		}
		if err != nil {
			return auth.Identity{}, false, err
		}
		id := auth.Identity{UserID: user.ID, CompanyID: user.CompanyID}
		if user.ClientID != nil {
			id.ClientID = *user.ClientID
		}
		return id, true, nil
	}
}
