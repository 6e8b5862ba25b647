package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumn_Values(t *testing.T) {
	size := int64(255)
	col := Column{
		Name:      "name",
		Type:      "varchar(255)",
		Size:      &size,
		Collation: StringPtr("utf8_general_ci"),
		Nullable:  true,
		Default:   StringPtr("anon"),
		Extra:     "",
		Comment:   "display name",
		Key:       "UNI",
	}

	vals := col.Values()
	require.Len(t, vals, ColumnFieldCount)
	assert.Equal(t, []any{"name", "varchar(255)", int64(255), "utf8_general_ci", true, "anon", "", "display name", "UNI"}, vals)
}

func TestColumn_ValuesAbsentFields(t *testing.T) {
	vals := Column{Name: "id", Type: "integer"}.Values()
	require.Len(t, vals, ColumnFieldCount)
	assert.Nil(t, vals[2], "size")
	assert.Nil(t, vals[3], "collation")
	assert.Nil(t, vals[5], "default")
}

func TestColumn_Strings(t *testing.T) {
	col := Column{Name: "id", Type: "int(11)", Size: SizeFromType("int(11)"), Nullable: false, Extra: "auto_increment", Key: "PRI"}
	assert.Equal(t, []string{"id", "int(11)", "11", "", "NO", "", "auto_increment", "", "PRI"}, col.Strings())
	assert.Len(t, ColumnHeaders, len(col.Strings()))
}

func TestSizeFromType(t *testing.T) {
	tests := []struct {
		declared string
		want     *int64
	}{
		{"varchar(255)", ptr(255)},
		{"decimal(10,2)", ptr(10)},
		{"decimal(10, 2)", ptr(10)},
		{"int(11) unsigned", ptr(11)},
		{"text", nil},
		{"", nil},
		{"enum('a','b')", nil},
	}

	for _, tt := range tests {
		t.Run(tt.declared, func(t *testing.T) {
			assert.Equal(t, tt.want, SizeFromType(tt.declared))
		})
	}
}

func TestSortedUnique(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"empty", []string{}, []string{}},
		{"already sorted", []string{"a", "b"}, []string{"a", "b"}},
		{"unsorted with duplicates", []string{"users", "orders", "users", "accounts", "orders"}, []string{"accounts", "orders", "users"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SortedUnique(tt.in))
		})
	}
}

func TestAdapterConfig_Option(t *testing.T) {
	cfg := AdapterConfig{Options: map[string]string{"sslmode": "require", "empty": ""}}
	assert.Equal(t, "require", cfg.Option("sslmode", "disable"))
	assert.Equal(t, "disable", cfg.Option("empty", "disable"))
	assert.Equal(t, "x", AdapterConfig{}.Option("missing", "x"))
}

func ptr(n int64) *int64 { return &n }

func TestRoleMarker(t *testing.T) {
	tests := map[string]string{
		"PRIMARY KEY": "PRI",
		"UNIQUE":      "UNI",
		"MULTIPLE":    "MUL",
		"FOREIGN KEY": "FOR",
		"PRI":         "PRI",
		"":            "",
	}
	for in, want := range tests {
		assert.Equal(t, want, RoleMarker(in), in)
	}
}
