package variables

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

type catalogFile struct {
	Variables []Variable `yaml:"variables"`
}

// Catalog is an immutable registry of system variables.
// It is safe for concurrent use once built.
type Catalog struct {
	entries []Variable
	index   map[string]int
}

// NewCatalog builds a catalog from the given definitions. Every entry is
// forced to the system category. Later entries replace earlier ones with the
// same key while keeping the original position.
func NewCatalog(vars []Variable) (*Catalog, error) {
	c := &Catalog{index: make(map[string]int, len(vars))}
	for _, v := range vars {
		if kv := ValidateKey(v.Key); !kv.Valid {
			return nil, fmt.Errorf("catalog entry %q: %s", v.Key, kv.Reason)
		}
		if v.Type == "" {
			v.Type = TypeText
		}
		if !v.Type.Valid() {
			return nil, fmt.Errorf("catalog entry %q: unknown type %q", v.Key, v.Type)
		}
		if v.Label == "" {
			v.Label = LabelFromKey(v.Key)
		}
		v.Category = CategorySystem
		if i, ok := c.index[v.Key]; ok {
			c.entries[i] = v
			continue
		}
		c.index[v.Key] = len(c.entries)
		c.entries = append(c.entries, v)
	}
	return c, nil
}

// ParseCatalog decodes a YAML catalog document.
func ParseCatalog(data []byte) ([]Variable, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return f.Variables, nil
}

// DefaultCatalog returns the built-in catalog. It panics if the embedded
// document is invalid, which is a build defect.
func DefaultCatalog() *Catalog {
	vars, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(err)
	}
	c, err := NewCatalog(vars)
	if err != nil {
		panic(err)
	}
	return c
}

// LoadCatalog returns the built-in catalog extended by the YAML file at path.
// An empty path yields the built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	vars, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		return nil, err
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog file: %w", err)
		}
		extra, err := ParseCatalog(data)
		if err != nil {
			return nil, err
		}
		vars = append(vars, extra...)
	}
	return NewCatalog(vars)
}

// Len returns the number of entries.
func (c *Catalog) Len() int { return len(c.entries) }

// Lookup returns the definition for key.
func (c *Catalog) Lookup(key string) (Variable, bool) {
	i, ok := c.index[key]
	if !ok {
		return Variable{}, false
	}
	return c.entries[i], true
}

// Has reports whether key is a system variable.
func (c *Catalog) Has(key string) bool {
	_, ok := c.index[key]
	return ok
}

// All returns a copy of every entry in declaration order.
func (c *Catalog) All() []Variable {
	return c.filter(func(Variable) bool { return true })
}

// ByCategory returns the entries of the given category.
func (c *Catalog) ByCategory(cat Category) []Variable {
	return c.filter(func(v Variable) bool { return v.Category == cat })
}

// ByType returns the entries of the given type.
func (c *Catalog) ByType(t Type) []Variable {
	return c.filter(func(v Variable) bool { return v.Type == t })
}

// ByGroup returns the entries of the given group.
func (c *Catalog) ByGroup(group string) []Variable {
	return c.filter(func(v Variable) bool { return strings.EqualFold(v.Group, group) })
}

// Groups returns the distinct group names in declaration order.
func (c *Catalog) Groups() []string {
	var groups []string
	seen := make(map[string]bool)
	for _, v := range c.entries {
		if v.Group != "" && !seen[v.Group] {
			seen[v.Group] = true
			groups = append(groups, v.Group)
		}
	}
	return groups
}

// Search matches query case-insensitively against key, label and description.
// An empty query returns every entry.
func (c *Catalog) Search(query string) []Variable {
	q := strings.ToLower(strings.TrimSpace(query))
	return c.filter(func(v Variable) bool {
		return q == "" ||
			strings.Contains(strings.ToLower(v.Key), q) ||
			strings.Contains(strings.ToLower(v.Label), q) ||
			strings.Contains(strings.ToLower(v.Description), q)
	})
}

// Suggest returns entries whose key or label contains partial, shortest key
// first and alphabetically among equal lengths. An empty partial yields none.
func (c *Catalog) Suggest(partial string) []Variable {
	p := strings.ToLower(strings.TrimSpace(partial))
	if p == "" {
		return []Variable{}
	}
	out := c.filter(func(v Variable) bool {
		return strings.Contains(strings.ToLower(v.Key), p) || strings.Contains(strings.ToLower(v.Label), p)
	})
	sort.SliceStable(out, func(i, j int) bool {
		if len(out[i].Key) != len(out[j].Key) {
			return len(out[i].Key) < len(out[j].Key)
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func (c *Catalog) filter(keep func(Variable) bool) []Variable {
	out := []Variable{}
	for _, v := range c.entries {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}
