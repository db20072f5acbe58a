// Package auth implements the signed session cookie and the request identity.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/diewo77/go-crm/httpx"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const (
	sessionCookieName = "session"
	sessionTTL        = 14 * 24 * time.Hour
)

// Identity is who is calling: a staff user of a company, or a portal user
// bound to one of the company's clients.
type Identity struct {
	UserID    uint
	CompanyID uint
	ClientID  uint
}

// IsClient reports whether the caller is a portal user.
func (id Identity) IsClient() bool { return id.ClientID != 0 }

// Resolver loads the identity of a session's user. ok=false means the user no
// longer exists and the session must be dropped.
type Resolver func(ctx context.Context, userID uint) (id Identity, ok bool, err error)

var (
	mu       sync.RWMutex
	secret   = []byte("devsessionsecret")
	resolver Resolver
)

// SetSecret sets the HMAC key used to sign sessions.
func SetSecret(s string) {
	if s == "" {
		return
	}
	mu.Lock()
	secret = []byte(s)
	mu.Unlock()
}

// SetResolver configures how Middleware turns a session into an Identity.
// Without one, the identity only carries the user id.
func SetResolver(r Resolver) {
	mu.Lock()
	resolver = r
	mu.Unlock()
}

func sign(payload string) string {
	mu.RLock()
	mac := hmac.New(sha256.New, secret)
	mu.RUnlock()
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// SessionValue builds the cookie value "uid.expiry.sig".
func SessionValue(userID uint, expires time.Time) string {
	payload := strconv.FormatUint(uint64(userID), 10) + "." + strconv.FormatInt(expires.Unix(), 10)
	return payload + "." + sign(payload)
}

// CreateSession sets the signed session cookie.
func CreateSession(w http.ResponseWriter, userID uint) {
	expires := time.Now().Add(sessionTTL)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    SessionValue(userID, expires),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
}

func ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ParseSession validates the cookie and returns the user id.
func ParseSession(r *http.Request) (uint, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return 0, false
	}
	return parseValue(c.Value, time.Now())
}

func parseValue(value string, now time.Time) (uint, bool) {
	parts := strings.Split(value, ".")
	if len(parts) != 3 {
		return 0, false
	}
	payload := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(parts[2]), []byte(sign(payload))) {
		return 0, false
	}
	exp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || now.Unix() >= exp {
		return 0, false
	}
	uid, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil || uid == 0 {
		return 0, false
	}
	return uint(uid), true
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok && id.UserID != 0
}

// UserIDFromContext returns the authenticated user id.
func UserIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := IdentityFromContext(ctx)
	return id.UserID, ok
}

// CompanyIDFromContext returns the caller's tenant.
func CompanyIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := IdentityFromContext(ctx)
	return id.CompanyID, ok && id.CompanyID != 0
}

// Middleware attaches the caller's Identity when the session is valid.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := ParseSession(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		id := Identity{UserID: uid}
		mu.RLock()
		res := resolver
		mu.RUnlock()
		if res != nil {
			resolved, found, err := res(r.Context(), uid)
			if err != nil {
				zerolog.Ctx(r.Context()).Error().Err(err).Uint("user_id", uid).Msg("resolve session identity")
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
				return
			}
			if !found {
				ClearSession(w)
				next.ServeHTTP(w, r)
				return
			}
			id = resolved
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// RequireAuth answers 401 for anonymous requests.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireStaff rejects portal users.
func RequireStaff(next http.Handler) http.Handler {
	return RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := IdentityFromContext(r.Context())
		if id.IsClient() || id.CompanyID == 0 {
			httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// RequireClient admits portal users only.
func RequireClient(next http.Handler) http.Handler {
	return RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := IdentityFromContext(r.Context())
		if !id.IsClient() {
			httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
