package handlers

import (
	"net/http"
	"strings"

	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/variables"
)

type CatalogHandler struct {
	catalog *variables.Catalog
}

func NewCatalogHandler(catalog *variables.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

type validateKeyRequest struct {
	Key string `json:"key"`
}

type validateKeyResponse struct {
	variables.KeyValidation
	Reserved bool `json:"reserved"`
}

// Variables lists catalog entries filtered by ?category=, ?type=, ?group=
// and ?q=.
func (h *CatalogHandler) Variables(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	vars := h.catalog.All()
	if term := strings.TrimSpace(q.Get("q")); term != "" {
		vars = h.catalog.Search(term)
	}
	category, typ, group := q.Get("category"), q.Get("type"), q.Get("group")
	out := make([]variables.Variable, 0, len(vars))
	for _, v := range vars {
		if category != "" && string(v.Category) != category {
			continue
		}
		if typ != "" && string(v.Type) != typ {
			continue
		}
		if group != "" && v.Group != group {
			continue
		}
		out = append(out, v)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"variables": out,
		"groups":    h.catalog.Groups(),
	})
}

func (h *CatalogHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	out := h.catalog.Suggest(r.URL.Query().Get("q"))
	if out == nil {
		out = []variables.Variable{}
	}
	httpx.JSON(w, http.StatusOK, out)
}

// ValidateKey checks a proposed custom key. Keys owned by the catalog are
// well formed but reserved.
func (h *CatalogHandler) ValidateKey(w http.ResponseWriter, r *http.Request) {
	var in validateKeyRequest
	if !decode(w, r, &in) {
		return
	}
	res := validateKeyResponse{KeyValidation: variables.ValidateKey(in.Key)}
	if res.Valid && h.catalog.Has(in.Key) {
		res.Reserved = true
	}
	httpx.JSON(w, http.StatusOK, res)
}
