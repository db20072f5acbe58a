package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestJSONError(t *testing.T) {
	rr := httptest.NewRecorder()
	JSONError(rr, http.StatusNotFound, "not_found", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	if strings.TrimSpace(rr.Body.String()) != `{"error":"not_found"}` {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestJSON_EncodeFailure(t *testing.T) {
	rr := httptest.NewRecorder()
	JSON(rr, http.StatusOK, map[string]any{"ch": make(chan int)})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct{ Name string }
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"Name":"x"}`))
	if err := DecodeJSON(httptest.NewRecorder(), r, &dst); err != nil || dst.Name != "x" {
		t.Fatalf("decode: %v %+v", err, dst)
	}

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	if err := DecodeJSON(httptest.NewRecorder(), r, &dst); err != ErrEmptyBody {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{} {}`))
	if err := DecodeJSON(httptest.NewRecorder(), r, &dst); err == nil {
		t.Fatal("expected trailing data error")
	}
}

func TestJSONViolations(t *testing.T) {
	rr := httptest.NewRecorder()
	JSONViolations(rr, map[string]string{"name": "required"}, map[string]string{"name": "Required"})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rr.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Error != "validation_failed" || body.Messages["name"] != "Required" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestPathIDAndPage(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/invoices/12?page=3&per_page=500", nil)
	r.SetPathValue("id", "12")
	if id, ok := PathID(r, "id"); !ok || id != 12 {
		t.Fatalf("PathID = %d %v", id, ok)
	}
	r.SetPathValue("id", "0")
	if _, ok := PathID(r, "id"); ok {
		t.Fatal("zero id should be rejected")
	}
	page, size := Page(r, 20)
	if page != 3 || size != 20 {
		t.Fatalf("Page = %d %d", page, size)
	}
}
