package variables

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScan(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   []string
	}{
		{"empty", "", []string{}},
		{"no tokens", "<p>Hello world</p>", []string{}},
		{"single", "Hello {{clientName}}", []string{"clientName"}},
		{"dedup keeps first position", "{{a}} {{b}} {{a}} {{c}} {{b}}", []string{"a", "b", "c"}},
		{"whitespace inside braces", "{{  amount  }}", []string{"amount"}},
		{"triple stash", "{{{companyLogo}}}", []string{"companyLogo"}},
		{"block helper excluded", "{{#if showLogo}}<img src=\"{{companyLogo}}\">{{/if}}", []string{"showLogo", "companyLogo"}},
		{"else branch", "{{#if paid}}Paid{{else}}Due {{amountDue}}{{/if}}", []string{"paid", "amountDue"}},
		{"else if", "{{#if a}}x{{else if b}}y{{/if}}", []string{"a", "b"}},
		{"each with this", "{{#each items}}{{this}} {{@index}}{{/each}}", []string{"items"}},
		{"inverted section", "{{^hasDiscount}}no discount{{/hasDiscount}}", []string{"hasDiscount"}},
		{"helper call", "{{formatCurrency totalAmount currency}}", []string{"totalAmount", "currency"}},
		{"helper literals skipped", "{{formatDate issueDate \"DD/MM/YYYY\"}}", []string{"issueDate"}},
		{"hash argument", "{{link url text=linkLabel}}", []string{"url", "linkLabel"}},
		{"dotted path root", "{{client.name}} {{client.email}}", []string{"client"}},
		{"comment skipped", "{{! ignore me }}{{x}}", []string{"x"}},
		{"partial skipped", "{{> header}}{{x}}", []string{"x"}},
		{"unbalanced blocks", "{{/if}}{{a}}{{#if b}}{{c}}", []string{"a", "b", "c"}},
		{"non identifier ignored", "{{123abc}} {{ok}}", []string{"ok"}},
		{"leading underscore ignored", "{{_hidden}} {{snake_case}}", []string{"snake_case"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Scan(tt.markup))
		})
	}
}

func TestScan_KeysPassValidateKey(t *testing.T) {
	markup := "{{_a}} {{b_}} {{#each _rows}}{{c1}}{{/each}} {{" + strings.Repeat("k", MaxKeyLength+1) + "}} {{d.e}}"
	keys := Scan(markup)
	assert.Equal(t, []string{"b_", "c1", "d"}, keys)
	for _, k := range keys {
		assert.True(t, ValidateKey(k).Valid, k)
	}
}

func TestScan_RepeatedTokenAppearsOnce(t *testing.T) {
	markup := "{{x}}{{y}}{{x}}{{x}}{{z}}{{x}}"
	got := Scan(markup)
	count := 0
	for _, k := range got {
		if k == "x" {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, "x", got[0])
}

func TestScanDetailed_Conditional(t *testing.T) {
	markup := "{{name}}{{#if vip}}{{discount}}{{/if}}{{total}}{{#if again}}{{name}}{{/if}}"
	got := ScanDetailed(markup)
	assert.Equal(t, []Token{
		{Key: "name", Conditional: false},
		{Key: "vip", Conditional: true},
		{Key: "discount", Conditional: true},
		{Key: "total", Conditional: false},
		{Key: "again", Conditional: true},
	}, got)
}

func TestLabelFromKey(t *testing.T) {
	assert.Equal(t, "Client Name", LabelFromKey("clientName"))
	assert.Equal(t, "Client Name", LabelFromKey("client_name"))
	assert.Equal(t, "Amount", LabelFromKey("amount"))
}
