package variables

import (
	"regexp"
	"strings"
)

var mustacheRe = regexp.MustCompile(`\{\{(\{?)([\s\S]*?)\}?\}\}`)

// Token is one distinct variable key found in markup.
type Token struct {
	Key string `json:"key"`
	// Conditional is set when the first occurrence sits inside a block helper
	// or when the key is itself a block helper argument.
	Conditional bool `json:"conditional"`
}

// Scan returns the distinct variable keys referenced by markup, in order of
// first occurrence. Control tokens of block helpers are excluded.
func Scan(markup string) []string {
	tokens := ScanDetailed(markup)
	keys := make([]string, len(tokens))
	for i, t := range tokens {
		keys[i] = t.Key
	}
	return keys
}

// ScanDetailed is Scan with conditional-usage information. Block balance is
// not validated; an unmatched closing tag only decrements the depth down to zero.
func ScanDetailed(markup string) []Token {
	tokens := []Token{}
	if !strings.Contains(markup, "{{") {
		return tokens
	}

	seen := make(map[string]bool)
	depth := 0
	add := func(key string, conditional bool) {
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		tokens = append(tokens, Token{Key: key, Conditional: conditional})
	}

	for _, m := range mustacheRe.FindAllStringSubmatch(markup, -1) {
		body := strings.TrimSpace(m[2])
		body = strings.Trim(body, "~")
		body = strings.TrimSpace(body)
		if body == "" {
			continue
		}

		switch body[0] {
		case '!':
			continue
		case '/':
			if depth > 0 {
				depth--
			}
			continue
		case '#', '^':
			fields := splitFields(strings.TrimSpace(body[1:]))
			if len(fields) == 0 {
				continue
			}
			if body[0] == '^' && len(fields) == 1 {
				// {{^flag}} is an inverted section on a variable.
				add(rootKey(fields[0]), true)
			} else {
				for _, arg := range fields[1:] {
					add(argKey(arg), true)
				}
			}
			depth++
			continue
		case '>':
			continue
		}

		fields := splitFields(body)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "else" {
			// {{else if cond}}: fields[1] names the chained helper.
			if len(fields) > 2 {
				for _, arg := range fields[2:] {
					add(argKey(arg), true)
				}
			}
			continue
		}
		if len(fields) == 1 {
			add(rootKey(fields[0]), depth > 0)
			continue
		}
		// {{helper arg1 arg2}}: the helper name is not a variable.
		for _, arg := range fields[1:] {
			add(argKey(arg), depth > 0)
		}
	}
	return tokens
}

// splitFields splits a mustache body on whitespace, keeping quoted strings
// and parenthesised sub-expressions together.
func splitFields(body string) []string {
	var fields []string
	var cur strings.Builder
	var quote byte
	parens := 0
	flush := func() {
		if cur.Len() > 0 {
			fields = append(fields, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case quote != 0:
			cur.WriteByte(c)
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
			cur.WriteByte(c)
		case c == '(':
			parens++
			cur.WriteByte(c)
		case c == ')':
			if parens > 0 {
				parens--
			}
			cur.WriteByte(c)
		case (c == ' ' || c == '\t' || c == '\n' || c == '\r') && parens == 0:
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return fields
}

// argKey extracts the variable key from a helper argument, or "" for
// literals, data references and sub-expressions without identifiers.
func argKey(arg string) string {
	if i := strings.IndexByte(arg, '='); i > 0 && !strings.HasPrefix(arg, "(") {
		arg = arg[i+1:]
	}
	if strings.HasPrefix(arg, "(") {
		inner := strings.TrimSuffix(strings.TrimPrefix(arg, "("), ")")
		fields := splitFields(inner)
		if len(fields) > 1 {
			return argKey(fields[1])
		}
		return ""
	}
	return rootKey(arg)
}

// rootKey reduces a path expression to its root identifier.
// "client.name" -> "client", "this" -> "", "@index" -> "", "42" -> "".
func rootKey(expr string) string {
	if expr == "" || expr[0] == '@' || expr[0] == '"' || expr[0] == '\'' || expr[0] == '.' {
		return ""
	}
	if i := strings.IndexAny(expr, ".["); i >= 0 {
		expr = expr[:i]
	}
	if expr == "this" || expr == "true" || expr == "false" || expr == "null" || expr == "undefined" {
		return ""
	}
	if !ValidateKey(expr).Valid {
		return ""
	}
	return expr
}
