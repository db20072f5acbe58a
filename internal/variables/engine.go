package variables

// DetectedVariable is a scanned key resolved to a definition.
type DetectedVariable struct {
	Variable
	// Unresolved is set for custom keys with no stored definition; the caller
	// is expected to define them.
	Unresolved  bool `json:"unresolved,omitempty"`
	Conditional bool `json:"conditional,omitempty"`
}

// Conflict records a metadata disagreement dropped during Merge.
type Conflict struct {
	Key     string `json:"key"`
	Field   string `json:"field"`
	Kept    string `json:"kept"`
	Dropped string `json:"dropped"`
}

// Analysis is the result of detecting variables in one or more templates.
type Analysis struct {
	Variables       []DetectedVariable `json:"variables"`
	SystemCount     int                `json:"systemCount"`
	CustomCount     int                `json:"customCount"`
	RequiredCount   int                `json:"requiredCount"`
	UnresolvedCount int                `json:"unresolvedCount"`
	Conflicts       []Conflict         `json:"conflicts,omitempty"`
}

// RequiredKeys returns the keys flagged required, in detection order.
func (a Analysis) RequiredKeys() []string {
	keys := []string{}
	for _, v := range a.Variables {
		if v.Required {
			keys = append(keys, v.Key)
		}
	}
	return keys
}

// CustomVariables returns the non-system variables.
func (a Analysis) CustomVariables() []Variable {
	out := []Variable{}
	for _, v := range a.Variables {
		if v.Category == CategoryCustom {
			out = append(out, v.Variable)
		}
	}
	return out
}

// Engine classifies scanned tokens against a catalog.
type Engine struct {
	catalog *Catalog
}

// NewEngine returns an engine bound to catalog.
func NewEngine(catalog *Catalog) *Engine {
	return &Engine{catalog: catalog}
}

// Catalog returns the catalog the engine resolves against.
func (e *Engine) Catalog() *Catalog { return e.catalog }

// Analyze scans markup and resolves every key: catalog first, then existing
// custom variables, then each extra set in order. Anything left is an
// optional text variable marked unresolved. Inputs are not modified.
func (e *Engine) Analyze(markup string, existing []Variable, extra ...[]Variable) Analysis {
	sets := make([]map[string]Variable, 0, 1+len(extra))
	sets = append(sets, indexByKey(existing))
	for _, set := range extra {
		sets = append(sets, indexByKey(set))
	}

	var a Analysis
	a.Variables = []DetectedVariable{}
	for _, tok := range ScanDetailed(markup) {
		a.Variables = append(a.Variables, e.resolve(tok, sets))
	}
	a.recount()
	return a
}

func (e *Engine) resolve(tok Token, sets []map[string]Variable) DetectedVariable {
	if e.catalog != nil {
		if v, ok := e.catalog.Lookup(tok.Key); ok {
			return DetectedVariable{Variable: v, Conditional: tok.Conditional}
		}
	}
	for _, set := range sets {
		if v, ok := set[tok.Key]; ok {
			v.Category = CategoryCustom
			if v.Type == "" {
				v.Type = TypeText
			}
			if v.Label == "" {
				v.Label = LabelFromKey(v.Key)
			}
			return DetectedVariable{Variable: v, Conditional: tok.Conditional}
		}
	}
	return DetectedVariable{
		Variable: Variable{
			Key:      tok.Key,
			Label:    LabelFromKey(tok.Key),
			Type:     TypeText,
			Required: false,
			Category: CategoryCustom,
		},
		Unresolved:  true,
		Conditional: tok.Conditional,
	}
}

// Merge unions analyses by key. The first definition seen for a key wins;
// disagreements are listed in Conflicts. Counts are recomputed from the
// merged list so shared keys are counted once.
func Merge(analyses ...Analysis) Analysis {
	var out Analysis
	out.Variables = []DetectedVariable{}
	pos := make(map[string]int)
	for _, a := range analyses {
		out.Conflicts = append(out.Conflicts, a.Conflicts...)
		for _, v := range a.Variables {
			i, ok := pos[v.Key]
			if !ok {
				pos[v.Key] = len(out.Variables)
				out.Variables = append(out.Variables, v)
				continue
			}
			kept := out.Variables[i]
			out.Conflicts = append(out.Conflicts, diff(kept, v)...)
			// Conditional usage is informational: a key used unconditionally
			// anywhere is unconditional in the merged view.
			if kept.Conditional && !v.Conditional {
				out.Variables[i].Conditional = false
			}
		}
	}
	out.recount()
	return out
}

func diff(kept, dropped DetectedVariable) []Conflict {
	var cs []Conflict
	add := func(field, k, d string) {
		if k != d {
			cs = append(cs, Conflict{Key: kept.Key, Field: field, Kept: k, Dropped: d})
		}
	}
	add("type", string(kept.Type), string(dropped.Type))
	add("category", string(kept.Category), string(dropped.Category))
	add("required", boolString(kept.Required), boolString(dropped.Required))
	add("label", kept.Label, dropped.Label)
	return cs
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func (a *Analysis) recount() {
	a.SystemCount, a.CustomCount, a.RequiredCount, a.UnresolvedCount = 0, 0, 0, 0
	for _, v := range a.Variables {
		if v.Category == CategorySystem {
			a.SystemCount++
		} else {
			a.CustomCount++
		}
		if v.Required {
			a.RequiredCount++
		}
		if v.Unresolved {
			a.UnresolvedCount++
		}
	}
}

func indexByKey(vars []Variable) map[string]Variable {
	m := make(map[string]Variable, len(vars))
	for _, v := range vars {
		if _, dup := m[v.Key]; !dup {
			m[v.Key] = v
		}
	}
	return m
}
