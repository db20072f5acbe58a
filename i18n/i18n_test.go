package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDetectLanguage(t *testing.T) {
	if DetectLanguage("en-US,en;q=0.9") != "en" {
		t.Fatalf("expected en")
	}
	if DetectLanguage("AR-sa") != "ar" {
		t.Fatalf("expected ar for AR-sa")
	}
	if DetectLanguage("de-DE,fr;q=0.8") != "fr" {
		t.Fatalf("expected fr as first supported tag")
	}
	if DetectLanguage("") != "en" {
		t.Fatalf("expected default en")
	}
}

func TestTranslations(t *testing.T) {
	if T("en", "required") != "Required" {
		t.Fatalf("expected Required")
	}
	if T("fr", "required") != "Requis" {
		t.Fatalf("expected Requis")
	}
	if T("en", "__nope__") != "__nope__" {
		t.Fatalf("expected fallback to code")
	}
	if T("es", "required") != "Required" {
		t.Fatalf("expected en fallback for es lang")
	}
}

func TestTranslate(t *testing.T) {
	got := Translate("fr", map[string]string{"name": "required", "x": "weird"})
	if got["name"] != "Requis" || got["x"] != "weird" {
		t.Fatalf("unexpected %v", got)
	}
	if Translate("en", nil) != nil {
		t.Fatalf("expected nil for no codes")
	}
}

func TestMiddleware(t *testing.T) {
	var seen string
	h := Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/?lang=ar", nil)
	r.Header.Set("Accept-Language", "fr")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if seen != "ar" {
		t.Fatalf("query lang should win, got %q", seen)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Accept-Language", "fr-FR")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if seen != "fr" {
		t.Fatalf("expected fr, got %q", seen)
	}

	if FromContext(context.Background()) != DefaultLang {
		t.Fatalf("expected default lang")
	}
}
