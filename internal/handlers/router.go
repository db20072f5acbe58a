package handlers

import (
	"net/http"
	"time"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/gate"
	"github.com/diewo77/go-crm/internal/cache"
	"github.com/diewo77/go-crm/internal/policy"
	"github.com/diewo77/go-crm/internal/services"
	"github.com/diewo77/go-crm/internal/variables"
	"gorm.io/gorm"
)

// Options tune the services behind the router.
type Options struct {
	ProfileCacheTTL          time.Duration
	AnalysisTTL              time.Duration
	EnforceRequiredDocuments bool
	DefaultCurrency          string
}

// RouterConfig holds the authorization gate, the services and the handlers
// the API is assembled from.
type RouterConfig struct {
	// AuthGate provides authorization checks and middleware
	AuthGate *policy.AuthGate

	// Services
	AuthService             *services.AuthService
	InvoiceService          *services.InvoiceService
	PaymentService          *services.PaymentService
	RuleService             *services.RuleService
	DocumentService         *services.DocumentService
	VariableTemplateService *services.VariableTemplateService

	// Admin handlers
	AdminProfileHandler     *AdminProfileHandler
	AdminUserProfileHandler *AdminUserProfileHandler

	// Business handlers
	AuthHandler             *AuthHandler
	CompanyHandler          *CompanyHandler
	ClientHandler           *ClientHandler
	ProductHandler          *ProductHandler
	InvoiceHandler          *InvoiceHandler
	PaymentHandler          *PaymentHandler
	PortalHandler           *PortalHandler
	DocumentTemplateHandler *DocumentTemplateHandler
	DocumentHandler         *DocumentHandler
	VariableTemplateHandler *VariableTemplateHandler
	RequirementRuleHandler  *RequirementRuleHandler
	CatalogHandler          *CatalogHandler
	HealthHandler           *HealthHandler
}

// NewRouterConfig wires the gate, tenant policies, services and handlers.
func NewRouterConfig(db *gorm.DB, c cache.Client, catalog *variables.Catalog, opts Options) *RouterConfig {
	if opts.ProfileCacheTTL <= 0 {
		opts.ProfileCacheTTL = 5 * time.Minute
	}
	authGate := policy.NewAuthGate(db, opts.ProfileCacheTTL)
	authGate.RegisterTenantPolicies()

	authSvc := services.NewAuthService(db, opts.DefaultCurrency)
	invoiceSvc := services.NewInvoiceService(db, opts.EnforceRequiredDocuments)
	paymentSvc := services.NewPaymentService(db)
	ruleSvc := services.NewRuleService(db)
	documentSvc := services.NewDocumentService(db, variables.NewEngine(catalog), c, opts.AnalysisTTL)
	variableSvc := services.NewVariableTemplateService(db, catalog, documentSvc)

	return &RouterConfig{
		AuthGate:                authGate,
		AuthService:             authSvc,
		InvoiceService:          invoiceSvc,
		PaymentService:          paymentSvc,
		RuleService:             ruleSvc,
		DocumentService:         documentSvc,
		VariableTemplateService: variableSvc,
		AdminProfileHandler:     NewAdminProfileHandler(db, authGate),
		AdminUserProfileHandler: NewAdminUserProfileHandler(db, authGate, authGate),
		AuthHandler:             NewAuthHandler(db, authSvc),
		CompanyHandler:          NewCompanyHandler(db, authGate),
		ClientHandler:           NewClientHandler(db, authGate, authSvc),
		ProductHandler:          NewProductHandler(db, authGate),
		InvoiceHandler:          NewInvoiceHandler(invoiceSvc, paymentSvc, authGate),
		PaymentHandler:          NewPaymentHandler(paymentSvc),
		PortalHandler:           NewPortalHandler(invoiceSvc, paymentSvc, authGate),
		DocumentTemplateHandler: NewDocumentTemplateHandler(documentSvc, authGate),
		DocumentHandler:         NewDocumentHandler(documentSvc, authGate),
		VariableTemplateHandler: NewVariableTemplateHandler(variableSvc, authGate),
		RequirementRuleHandler:  NewRequirementRuleHandler(ruleSvc, authGate),
		CatalogHandler:          NewCatalogHandler(catalog),
		HealthHandler:           NewHealthHandler(db, c),
	}
}

// Routes registers every endpoint. Session parsing (auth.Middleware) must
// run before the returned handler.
func (rc *RouterConfig) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	// ─────────────────────────────────────────────────────────────────────────
	// Public routes
	// ─────────────────────────────────────────────────────────────────────────
	hh := rc.HealthHandler
	mux.HandleFunc("GET /healthz", hh.Healthz)
	mux.HandleFunc("GET /readyz", hh.Readyz)

	ah := rc.AuthHandler
	mux.HandleFunc("POST /signup", ah.Signup)
	mux.HandleFunc("POST /login", ah.Login)
	mux.HandleFunc("POST /logout", ah.Logout)
	mux.Handle("GET /me", auth.RequireAuth(http.HandlerFunc(ah.Me)))

	// ─────────────────────────────────────────────────────────────────────────
	// Staff routes (company users, profile permission + tenant check)
	// ─────────────────────────────────────────────────────────────────────────
	staff := func(pattern, resource string, action gate.Action, h http.HandlerFunc) {
		mux.Handle(pattern, auth.RequireStaff(rc.AuthGate.RequirePermission(resource, action)(h)))
	}

	coh := rc.CompanyHandler
	staff("GET /company", policy.ResourceCompany, gate.ActionView, coh.Get)
	staff("PUT /company", policy.ResourceCompany, gate.ActionUpdate, coh.Update)

	ch := rc.ClientHandler
	staff("GET /clients", policy.ResourceClient, gate.ActionList, ch.List)
	staff("POST /clients", policy.ResourceClient, gate.ActionCreate, ch.Create)
	staff("GET /clients/{id}", policy.ResourceClient, gate.ActionView, ch.Get)
	staff("PUT /clients/{id}", policy.ResourceClient, gate.ActionUpdate, ch.Update)
	staff("DELETE /clients/{id}", policy.ResourceClient, gate.ActionDelete, ch.Delete)
	staff("POST /clients/{id}/portal-user", policy.ResourceClient, gate.ActionUpdate, ch.CreatePortalUser)

	ph := rc.ProductHandler
	staff("GET /products", policy.ResourceProduct, gate.ActionList, ph.List)
	staff("POST /products", policy.ResourceProduct, gate.ActionCreate, ph.Create)
	staff("GET /products/{id}", policy.ResourceProduct, gate.ActionView, ph.Get)
	staff("PUT /products/{id}", policy.ResourceProduct, gate.ActionUpdate, ph.Update)
	staff("DELETE /products/{id}", policy.ResourceProduct, gate.ActionDelete, ph.Delete)

	ih := rc.InvoiceHandler
	staff("GET /invoices", policy.ResourceInvoice, gate.ActionList, ih.List)
	staff("POST /invoices", policy.ResourceInvoice, gate.ActionCreate, ih.Create)
	staff("GET /invoices/{id}", policy.ResourceInvoice, gate.ActionView, ih.Get)
	staff("PUT /invoices/{id}", policy.ResourceInvoice, gate.ActionUpdate, ih.Update)
	staff("DELETE /invoices/{id}", policy.ResourceInvoice, gate.ActionDelete, ih.Delete)
	staff("POST /invoices/{id}/items", policy.ResourceInvoice, gate.ActionUpdate, ih.AddItem)
	staff("DELETE /invoices/{id}/items/{item_id}", policy.ResourceInvoice, gate.ActionUpdate, ih.RemoveItem)
	staff("POST /invoices/{id}/finalize", policy.ResourceInvoice, gate.ActionFinalize, ih.Finalize)
	staff("POST /invoices/{id}/cancel", policy.ResourceInvoice, gate.ActionCancel, ih.Cancel)
	staff("GET /invoices/{id}/requirements", policy.ResourceInvoice, gate.ActionView, ih.Requirements)
	staff("GET /invoices/{id}/payments", policy.ResourcePayment, gate.ActionList, ih.ListPayments)
	staff("POST /invoices/{id}/payments", policy.ResourcePayment, gate.ActionCreate, ih.RecordPayment)

	pah := rc.PaymentHandler
	staff("POST /payments/{id}/refund", policy.ResourcePayment, gate.ActionRefund, pah.Refund)
	staff("POST /payments/{id}/fail", policy.ResourcePayment, gate.ActionUpdate, pah.Fail)
	staff("POST /payments/{id}/complete", policy.ResourcePayment, gate.ActionUpdate, pah.Complete)

	dth := rc.DocumentTemplateHandler
	staff("GET /document-templates", policy.ResourceDocumentTemplate, gate.ActionList, dth.List)
	staff("POST /document-templates", policy.ResourceDocumentTemplate, gate.ActionCreate, dth.Create)
	staff("POST /document-templates/analyze", policy.ResourceDocumentTemplate, gate.ActionAnalyze, dth.Analyze)
	staff("POST /document-templates/merge", policy.ResourceDocumentTemplate, gate.ActionAnalyze, dth.Merge)
	staff("GET /document-templates/{id}", policy.ResourceDocumentTemplate, gate.ActionView, dth.Get)
	staff("PUT /document-templates/{id}", policy.ResourceDocumentTemplate, gate.ActionUpdate, dth.Update)
	staff("DELETE /document-templates/{id}", policy.ResourceDocumentTemplate, gate.ActionDelete, dth.Delete)
	staff("GET /document-templates/{id}/variables", policy.ResourceDocumentTemplate, gate.ActionView, dth.Variables)
	staff("POST /document-templates/{id}/generate", policy.ResourceDocumentTemplate, gate.ActionGenerate, dth.Generate)

	dh := rc.DocumentHandler
	staff("GET /documents", policy.ResourceDocument, gate.ActionList, dh.List)
	staff("GET /documents/{token}", policy.ResourceDocument, gate.ActionView, dh.Get)

	vth := rc.VariableTemplateHandler
	staff("GET /variable-templates", policy.ResourceVariableTemplate, gate.ActionList, vth.List)
	staff("POST /variable-templates", policy.ResourceVariableTemplate, gate.ActionCreate, vth.Create)
	staff("GET /variable-templates/{id}", policy.ResourceVariableTemplate, gate.ActionView, vth.Get)
	staff("PUT /variable-templates/{id}", policy.ResourceVariableTemplate, gate.ActionUpdate, vth.Update)
	staff("DELETE /variable-templates/{id}", policy.ResourceVariableTemplate, gate.ActionDelete, vth.Delete)
	staff("POST /variable-templates/{id}/link", policy.ResourceVariableTemplate, gate.ActionUpdate, vth.Link)

	rh := rc.RequirementRuleHandler
	staff("GET /requirement-rules", policy.ResourceRequirementRule, gate.ActionList, rh.List)
	staff("POST /requirement-rules", policy.ResourceRequirementRule, gate.ActionCreate, rh.Create)
	staff("POST /requirement-rules/evaluate", policy.ResourceRequirementRule, gate.ActionEvaluate, rh.Evaluate)
	staff("GET /requirement-rules/{id}", policy.ResourceRequirementRule, gate.ActionView, rh.Get)
	staff("PUT /requirement-rules/{id}", policy.ResourceRequirementRule, gate.ActionUpdate, rh.Update)
	staff("DELETE /requirement-rules/{id}", policy.ResourceRequirementRule, gate.ActionDelete, rh.Delete)

	cth := rc.CatalogHandler
	staff("GET /catalog/variables", policy.ResourceCatalog, gate.ActionView, cth.Variables)
	staff("GET /catalog/suggest", policy.ResourceCatalog, gate.ActionView, cth.Suggest)
	staff("POST /catalog/validate-key", policy.ResourceCatalog, gate.ActionView, cth.ValidateKey)

	// ─────────────────────────────────────────────────────────────────────────
	// Portal routes (client users)
	// ─────────────────────────────────────────────────────────────────────────
	portal := func(pattern string, action gate.Action, h http.HandlerFunc) {
		mux.Handle(pattern, auth.RequireClient(rc.AuthGate.RequirePermission(policy.ResourcePortal, action)(h)))
	}
	poh := rc.PortalHandler
	portal("GET /portal/invoices", gate.ActionList, poh.ListInvoices)
	portal("GET /portal/invoices/{id}", gate.ActionView, poh.GetInvoice)
	portal("POST /portal/invoices/{id}/pay", gate.ActionPay, poh.Pay)

	// ─────────────────────────────────────────────────────────────────────────
	// Admin routes ("*:*" profiles only)
	// ─────────────────────────────────────────────────────────────────────────
	admin := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, rc.AuthGate.RequireAdmin()(h))
	}
	aph := rc.AdminProfileHandler
	admin("GET /admin/profiles", aph.List)
	admin("POST /admin/profiles", aph.Create)
	admin("GET /admin/profiles/{id}", aph.Get)
	admin("PUT /admin/profiles/{id}", aph.Update)
	admin("DELETE /admin/profiles/{id}", aph.Delete)
	admin("PUT /admin/profiles/{id}/permissions", aph.SetPermissions)
	admin("GET /admin/permissions", aph.ListPermissions)

	auph := rc.AdminUserProfileHandler
	admin("GET /admin/users", auph.List)
	admin("PUT /admin/users/{id}/profile", auph.AssignProfile)

	return mux
}
