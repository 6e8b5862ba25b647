package core

import (
	"regexp"
	"sort"
	"strconv"
)

// ColumnFieldCount is the number of fields in a normalized column record.
const ColumnFieldCount = 9

// ColumnHeaders names the fields of a Column in record order.
var ColumnHeaders = [ColumnFieldCount]string{
	"Field", "Type", "Size", "Collation", "Null", "Default", "Extra", "Comment", "Key",
}

// Column is the normalized description of one table column.
// Every adapter produces this shape, whatever the engine's native layout.
type Column struct {
	Name      string  `json:"name" yaml:"name"`
	Type      string  `json:"type" yaml:"type"`
	Size      *int64  `json:"size" yaml:"size"`
	Collation *string `json:"collation" yaml:"collation"`
	Nullable  bool    `json:"nullable" yaml:"nullable"`
	Default   *string `json:"default" yaml:"default"`
	Extra     string  `json:"extra" yaml:"extra"`
	Comment   string  `json:"comment" yaml:"comment"`
	Key       string  `json:"key" yaml:"key"`
}

// Values returns the record as an ordered tuple matching ColumnHeaders.
// Absent optional fields are nil.
func (c Column) Values() []any {
	vals := make([]any, 0, ColumnFieldCount)
	vals = append(vals, c.Name, c.Type)
	if c.Size != nil {
		vals = append(vals, *c.Size)
	} else {
		vals = append(vals, nil)
	}
	if c.Collation != nil {
		vals = append(vals, *c.Collation)
	} else {
		vals = append(vals, nil)
	}
	vals = append(vals, c.Nullable)
	if c.Default != nil {
		vals = append(vals, *c.Default)
	} else {
		vals = append(vals, nil)
	}
	return append(vals, c.Extra, c.Comment, c.Key)
}

// Strings renders the record for display; nil fields become "".
func (c Column) Strings() []string {
	out := make([]string, 0, ColumnFieldCount)
	for _, v := range c.Values() {
		switch x := v.(type) {
		case nil:
			out = append(out, "")
		case string:
			out = append(out, x)
		case int64:
			out = append(out, strconv.FormatInt(x, 10))
		case bool:
			if x {
				out = append(out, "YES")
			} else {
				out = append(out, "NO")
			}
		}
	}
	return out
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

var sizePattern = regexp.MustCompile(`\((\d+)(?:\s*,\s*\d+)?\)`)

// SizeFromType extracts the length or precision from a declared type such
// as "varchar(255)" or "decimal(10,2)". Returns nil when there is none.
func SizeFromType(declared string) *int64 {
	m := sizePattern.FindStringSubmatch(declared)
	if m == nil {
		return nil
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

// SortedUnique sorts names and drops duplicates in place.
func SortedUnique(names []string) []string {
	sort.Strings(names)
	out := names[:0]
	for i, n := range names {
		if i > 0 && n == names[i-1] {
			continue
		}
		out = append(out, n)
	}
	return out
}

// RoleMarker shortens a constraint role to its 3-character marker,
// e.g. "PRIMARY KEY" -> "PRI".
func RoleMarker(role string) string {
	r := []rune(role)
	if len(r) > 3 {
		r = r[:3]
	}
	return string(r)
}
