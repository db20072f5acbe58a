package variables

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	for _, key := range []string{"currentDate", "orderNumber", "zatcaQRCode", "invoiceTimestamp", "companyName", "clientName", "totalAmount"} {
		v, ok := c.Lookup(key)
		require.True(t, ok, key)
		assert.Equal(t, CategorySystem, v.Category)
	}
	_, ok := c.Lookup("amount")
	assert.False(t, ok)
	assert.Len(t, c.ByCategory(CategoryCustom), 0)
	assert.Equal(t, c.Len(), len(c.ByCategory(CategorySystem)))
}

func TestCatalog_Filters(t *testing.T) {
	c := DefaultCatalog()

	for _, v := range c.ByType(TypeCurrency) {
		assert.Equal(t, TypeCurrency, v.Type)
	}
	assert.NotEmpty(t, c.ByType(TypeCurrency))

	company := c.ByGroup("company")
	require.NotEmpty(t, company)
	for _, v := range company {
		assert.Equal(t, "company", v.Group)
	}
	assert.Contains(t, c.Groups(), "client")
}

func TestCatalog_Search(t *testing.T) {
	c := DefaultCatalog()

	// key match on zatcaQRCode, description match on invoiceTimestamp
	assert.ElementsMatch(t, []string{"invoiceTimestamp", "zatcaQRCode"}, keysOf(c.Search("QR")))

	// description match, case-insensitive
	keys := keysOf(c.Search("e-invoicing"))
	assert.Contains(t, keys, "invoiceTimestamp")

	assert.Equal(t, c.Len(), len(c.Search("")))
	assert.Empty(t, c.Search("no-such-thing"))
}

func TestCatalog_Suggest(t *testing.T) {
	c, err := NewCatalog([]Variable{
		{Key: "clientVatNumber", Type: TypeText},
		{Key: "clientName", Type: TypeText},
		{Key: "clientEmail", Type: TypeText},
		{Key: "client", Type: TypeText},
		{Key: "total", Label: "Client total", Type: TypeCurrency},
	})
	require.NoError(t, err)

	got := keysOf(c.Suggest("client"))
	assert.Equal(t, []string{"total", "client", "clientName", "clientEmail", "clientVatNumber"}, got)

	assert.Empty(t, c.Suggest(""))
	assert.Empty(t, c.Suggest("zzz"))
}

func TestNewCatalog_RejectsBadEntries(t *testing.T) {
	_, err := NewCatalog([]Variable{{Key: "1bad"}})
	assert.Error(t, err)

	_, err = NewCatalog([]Variable{{Key: "ok", Type: "colour"}})
	assert.Error(t, err)
}

func TestNewCatalog_LaterEntryOverrides(t *testing.T) {
	c, err := NewCatalog([]Variable{
		{Key: "a", Type: TypeText},
		{Key: "b", Type: TypeText},
		{Key: "a", Type: TypeNumber, Required: true, Category: CategoryCustom},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keysOf(c.All()))
	v, _ := c.Lookup("a")
	assert.Equal(t, TypeNumber, v.Type)
	assert.Equal(t, CategorySystem, v.Category)
	assert.Equal(t, "A", v.Label)
}

func TestLoadCatalog_ExtraFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extra.yaml")
	content := "variables:\n  - key: branchName\n    label: Branch Name\n    group: company\n  - key: currentDate\n    type: date\n    required: true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	_, ok := c.Lookup("branchName")
	assert.True(t, ok)
	v, _ := c.Lookup("currentDate")
	assert.True(t, v.Required)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key   string
		valid bool
	}{
		{"client_name", true},
		{"clientName2", true},
		{"a", true},
		{"123abc", false},
		{"_private", false},
		{"", false},
		{"has space", false},
		{"dash-key", false},
		{"émoji", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := ValidateKey(tt.key)
			assert.Equal(t, tt.valid, got.Valid)
			if !tt.valid {
				assert.NotEmpty(t, got.Reason)
			} else {
				assert.Empty(t, got.Reason)
			}
		})
	}

	long := make([]byte, MaxKeyLength+1)
	for i := range long {
		long[i] = 'a'
	}
	assert.False(t, ValidateKey(string(long)).Valid)
	assert.True(t, ValidateKey(string(long[:MaxKeyLength])).Valid)
}

func keysOf(vars []Variable) []string {
	keys := make([]string, len(vars))
	for i, v := range vars {
		keys[i] = v.Key
	}
	return keys
}
