package services

import (
	"context"
	"errors"
	"strings"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/internal/db"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/validation"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const minPasswordLength = 8

type AuthService struct {
	db              *gorm.DB
	defaultCurrency string
}

func NewAuthService(db *gorm.DB, defaultCurrency string) *AuthService {
	return &AuthService{db: db, defaultCurrency: defaultCurrency}
}

type SignupInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	CompanyName string `json:"company_name"`
	Currency    string `json:"currency"`
}

// Signup creates a company, its owner and the default requirement rules.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = s.defaultCurrency
	}

	v := make(validation.Violations)
	validation.Required("email", in.Email, v)
	validation.Email("email", in.Email, v)
	validation.Required("company_name", in.CompanyName, v)
	if len(in.Password) < minPasswordLength {
		v.Add("password", "too_short")
	}
	if len(in.Currency) != 3 {
		v.Add("currency", "invalid")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	ownerID, err := db.ProfileID(s.db, db.ProfileOwner)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("email = ?", in.Email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrEmailTaken
		}
		company := models.Company{Name: in.CompanyName, Email: in.Email, Currency: in.Currency}
		if err := tx.Create(&company).Error; err != nil {
			return err
		}
		user = models.User{
			Email:     in.Email,
			Name:      strings.TrimSpace(in.Name),
			Password:  hash,
			CompanyID: company.ID,
			ProfileID: &ownerID,
		}
		if err := tx.Create(&user).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrEmailTaken
			}
			return err
		}
		return db.SeedDefaultRules(tx, company.ID)
	})
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Uint("user_id", user.ID).Uint("company_id", user.CompanyID).Msg("company signed up")
	return &user, nil
}

// Authenticate returns the user whose password matches.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

type PortalUserInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// CreatePortalUser gives a client a login bound to the client profile.
func (s *AuthService) CreatePortalUser(ctx context.Context, companyID, clientID uint, in PortalUserInput) (*models.User, error) {
	var client models.Client
	if err := s.db.WithContext(ctx).Where("company_id = ?", companyID).First(&client, clientID).Error; err != nil {
		return nil, notFound(err, "client")
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	v := make(validation.Violations)
	validation.Required("email", in.Email, v)
	validation.Email("email", in.Email, v)
	if len(in.Password) < minPasswordLength {
		v.Add("password", "too_short")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	profileID, err := db.ProfileID(s.db, db.ProfileClient)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = client.DisplayName()
	}
	user := models.User{
		Email:     in.Email,
		Name:      name,
		Password:  hash,
		CompanyID: companyID,
		ClientID:  &client.ID,
		ProfileID: &profileID,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return &user, nil
}
