package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSessionRoundTrip(t *testing.T) {
	SetSecret("test-secret")
	rr := httptest.NewRecorder()
	CreateSession(rr, 42)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rr.Result().Cookies() {
		r.AddCookie(c)
	}
	uid, ok := ParseSession(r)
	if !ok || uid != 42 {
		t.Fatalf("ParseSession = %d %v", uid, ok)
	}
}

func TestParseValue_Rejects(t *testing.T) {
	SetSecret("test-secret")
	now := time.Now()
	valid := SessionValue(7, now.Add(time.Hour))
	if _, ok := parseValue(valid, now); !ok {
		t.Fatal("valid value rejected")
	}
	if _, ok := parseValue(SessionValue(7, now.Add(-time.Second)), now); ok {
		t.Fatal("expired value accepted")
	}
	if _, ok := parseValue("8"+valid[1:], now); ok {
		t.Fatal("tampered user id accepted")
	}
	if _, ok := parseValue("7.123", now); ok {
		t.Fatal("unsigned value accepted")
	}
	SetSecret("rotated")
	if _, ok := parseValue(valid, now); ok {
		t.Fatal("value signed with old secret accepted")
	}
}

func sessionRequest(t *testing.T, uid uint) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: SessionValue(uid, time.Now().Add(time.Hour))})
	return r
}

func TestMiddleware_ResolvesIdentity(t *testing.T) {
	SetSecret("test-secret")
	SetResolver(func(_ context.Context, uid uint) (Identity, bool, error) {
		switch uid {
		case 1:
			return Identity{UserID: 1, CompanyID: 10}, true, nil
		case 2:
			return Identity{UserID: 2, CompanyID: 10, ClientID: 5}, true, nil
		case 3:
			return Identity{}, false, errors.New("boom")
		}
		return Identity{}, false, nil
	})
	defer SetResolver(nil)

	var got Identity
	staff := Middleware(RequireStaff(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, _ = IdentityFromContext(r.Context())
	})))

	rr := httptest.NewRecorder()
	staff.ServeHTTP(rr, sessionRequest(t, 1))
	if rr.Code != http.StatusOK || got.CompanyID != 10 {
		t.Fatalf("staff request: code %d identity %+v", rr.Code, got)
	}

	rr = httptest.NewRecorder()
	staff.ServeHTTP(rr, sessionRequest(t, 2))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("client user on staff route: code %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	staff.ServeHTTP(rr, sessionRequest(t, 99))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("deleted user: code %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	staff.ServeHTTP(rr, sessionRequest(t, 3))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("resolver error: code %d", rr.Code)
	}

	portal := Middleware(RequireClient(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})))
	rr = httptest.NewRecorder()
	portal.ServeHTTP(rr, sessionRequest(t, 2))
	if rr.Code != http.StatusOK {
		t.Fatalf("client user on portal route: code %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	portal.ServeHTTP(rr, sessionRequest(t, 1))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("staff on portal route: code %d", rr.Code)
	}
}

func TestRequireAuth_Anonymous(t *testing.T) {
	h := Middleware(RequireAuth(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not run")
	})))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("code %d", rr.Code)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	if err != nil {
		t.Fatal(err)
	}
	if !CheckPassword(hash, "s3cret!") || CheckPassword(hash, "wrong") {
		t.Fatal("password check mismatch")
	}
}
