// Package render executes Handlebars document templates.
package render

import (
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mbleigh/raymond"
)

// Validate parses markup and reports syntax errors.
func Validate(markup string) error {
	_, err := raymond.Parse(markup)
	return err
}

// Render executes markup against data with the document helpers registered.
func Render(markup string, data map[string]any) (string, error) {
	tpl, err := raymond.Parse(markup)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}
	tpl.RegisterHelpers(helpers())
	out, err := tpl.Exec(data)
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return out, nil
}

func helpers() map[string]any {
	return map[string]any{
		"formatCurrency": formatCurrency,
		"formatDate":     formatDate,
		"upper":          func(s string) string { return strings.ToUpper(s) },
		"lower":          func(s string) string { return strings.ToLower(s) },
		"default": func(v any, fallback string) string {
			if s := raymond.Str(v); s != "" {
				return s
			}
			return fallback
		},
	}
}

// formatCurrency renders {{formatCurrency amount currency}} as "1,234.50 SAR".
func formatCurrency(amount any, currency string) string {
	f, ok := toFloat(amount)
	if !ok {
		return raymond.Str(amount)
	}
	return FormatMoney(f, currency)
}

// formatDate renders {{formatDate value "02/01/2006"}}. Values that are not
// dates are returned unchanged.
func formatDate(value any, layout string) string {
	s := raymond.Str(value)
	for _, in := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(in, s); err == nil {
			return t.Format(layout)
		}
	}
	return s
}

// FormatMoney formats f with two decimals, thousands separators and an
// optional currency code suffix.
func FormatMoney(f float64, currency string) string {
	neg := f < 0
	if neg {
		f = -f
	}
	s := strconv.FormatFloat(f, 'f', 2, 64)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	if currency != "" {
		b.WriteByte(' ')
		b.WriteString(currency)
	}
	return b.String()
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(n, ",", ""), 64)
		return f, err == nil
	}
	return 0, false
}

// Row is one line of an items table.
type Row struct {
	Description string
	Quantity    float64
	UnitPrice   float64
	VATRate     float64
	Total       float64
}

// ItemsTable renders invoice lines as an HTML table for {{{itemsTable}}}.
func ItemsTable(rows []Row, currency string) string {
	var b strings.Builder
	b.WriteString(`<table class="items"><thead><tr><th>Description</th><th>Qty</th><th>Unit price</th><th>VAT</th><th>Total</th></tr></thead><tbody>`)
	for _, r := range rows {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s%%</td><td>%s</td></tr>",
			html.EscapeString(r.Description),
			strconv.FormatFloat(r.Quantity, 'f', -1, 64),
			FormatMoney(r.UnitPrice, currency),
			strconv.FormatFloat(math.Round(r.VATRate*10000)/100, 'f', -1, 64),
			FormatMoney(r.Total, currency),
		)
	}
	b.WriteString("</tbody></table>")
	return b.String()
}
