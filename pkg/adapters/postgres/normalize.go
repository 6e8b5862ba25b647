package postgres

import (
	"regexp"
	"strings"

	"github.com/leapstack-labs/dress/pkg/core"
)

// Role assigned to every member of a unique constraint spanning more than
// one column. It is truncated to "MUL" on projection.
const roleMultiple = "MULTIPLE"

// keyedColumn is a Column Record still carrying the constraint that covers
// it. The constraint name only drives the multi-unique tie-break and is
// dropped on projection.
type keyedColumn struct {
	core.Column
	constraint string
	role       string
}

var (
	sequenceDefault = regexp.MustCompile(`^nextval`)
	quotedCast      = regexp.MustCompile(`^'(.*)'::`)
	plainCast       = regexp.MustCompile(`^(.*)::`)
)

// rewriteDefault maps a raw PostgreSQL column default to the MySQL-like
// shape. Sequence defaults become nil with extra "auto_increment"; casts
// are stripped to their literal. The first matching rule wins.
func rewriteDefault(raw *string) (*string, string) {
	if raw == nil {
		return nil, ""
	}
	v := *raw
	if sequenceDefault.MatchString(v) {
		return nil, "auto_increment"
	}
	if m := quotedCast.FindStringSubmatch(v); m != nil {
		return core.StringPtr(m[1]), ""
	}
	if m := plainCast.FindStringSubmatch(v); m != nil {
		return core.StringPtr(m[1]), ""
	}
	return core.StringPtr(v), ""
}

// markMultiUnique gives role MULTIPLE to every column whose UNIQUE
// constraint is shared with at least one other column of the table.
func markMultiUnique(cols []keyedColumn) {
	members := make(map[string]int)
	for _, c := range cols {
		if isUnique(c.role) {
			members[c.constraint]++
		}
	}
	for i := range cols {
		if isUnique(cols[i].role) && members[cols[i].constraint] > 1 {
			cols[i].role = roleMultiple
		}
	}
}

func isUnique(role string) bool {
	return strings.EqualFold(role, "unique")
}

// project drops the constraint name and truncates each role to its
// three-character marker.
func project(cols []keyedColumn) []core.Column {
	out := make([]core.Column, len(cols))
	for i, c := range cols {
		out[i] = c.Column
		out[i].Key = truncateRole(c.role)
	}
	return out
}

// truncateRole shortens a constraint type such as "PRIMARY KEY" to "PRI".
func truncateRole(role string) string {
	return core.RoleMarker(role)
}
