package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/i18n"
	"github.com/diewo77/go-crm/internal/cache"
	"github.com/diewo77/go-crm/internal/db"
	"github.com/diewo77/go-crm/internal/policy"
	"github.com/diewo77/go-crm/internal/services"
	"github.com/diewo77/go-crm/internal/variables"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testAPI struct {
	t       *testing.T
	db      *gorm.DB
	handler http.Handler
}

func newTestAPI(t *testing.T, opts Options) *testAPI {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	require.NoError(t, db.Seed(conn))

	mem := cache.NewMemoryClient(100)
	t.Cleanup(func() { _ = mem.Close() })

	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = "SAR"
	}
	auth.SetSecret("handlers-test-secret")
	auth.SetResolver(policy.IdentityResolver(conn))

	rc := NewRouterConfig(conn, mem, variables.DefaultCatalog(), opts)
	return &testAPI{t: t, db: conn, handler: auth.Middleware(i18n.Middleware(rc.Routes()))}
}

// session replays the session cookie like a browser would.
type session struct {
	api    *testAPI
	cookie *http.Cookie
	header http.Header
}

func (a *testAPI) anonymous() *session {
	return &session{api: a, header: http.Header{}}
}

func (a *testAPI) signup(email, company string) *session {
	a.t.Helper()
	s := a.anonymous()
	rec := s.do(http.MethodPost, "/signup", services.SignupInput{
		Email:       email,
		Password:    "secret123",
		Name:        "Owner",
		CompanyName: company,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(a.t, s.cookie)
	return s
}

func (a *testAPI) login(email, password string) *session {
	a.t.Helper()
	s := a.anonymous()
	rec := s.do(http.MethodPost, "/login", loginRequest{Email: email, Password: password})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	return s
}

func (s *session) do(method, path string, body any) *httptest.ResponseRecorder {
	s.api.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.api.t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	for k, vs := range s.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}
	rec := httptest.NewRecorder()
	s.api.handler.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			s.cookie = nil
			continue
		}
		s.cookie = c
	}
	return rec
}

// create posts body and returns the new resource id.
func (s *session) create(path string, body any) uint {
	s.api.t.Helper()
	rec := s.do(http.MethodPost, path, body)
	require.Equal(s.api.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[idResponse](s.api.t, rec).ID
}

type idResponse struct {
	ID uint `json:"id"`
}

type errorBody struct {
	Error    string            `json:"error"`
	Details  json.RawMessage   `json:"details"`
	Messages map[string]string `json:"messages"`
}

func (e errorBody) violations(t *testing.T) map[string]string {
	t.Helper()
	var v map[string]string
	require.NoError(t, json.Unmarshal(e.Details, &v))
	return v
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// seedSales creates a client and two service products, returning their ids.
func seedSales(s *session) (clientID, formationID, consultID uint) {
	clientID = s.create("/clients", map[string]any{
		"name": "Jane Doe", "email": "jane@example.com", "type": "business", "company_name": "Doe LLC",
	})
	formationID = s.create("/products", map[string]any{
		"code": "business-formation", "name": "Business formation", "kind": "service",
		"unit_price": 5000, "vat_rate": 15,
	})
	consultID = s.create("/products", map[string]any{
		"code": "consulting", "name": "Consulting day", "kind": "service",
		"unit_price": 1000, "vat_rate": 15,
	})
	return clientID, formationID, consultID
}

func (s *session) draftInvoice(clientID, productID uint) uint {
	return s.create("/invoices", map[string]any{
		"client_id": clientID,
		"items":     []map[string]any{{"product_id": productID, "quantity": 1}},
	})
}
