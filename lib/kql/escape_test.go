package kql_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dodopizza/sql-to-kql/lib/kql"
)

func TestEscape(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		isAlias bool
		want    string
	}{
		{name: "EventInfo_Time", want: `["EventInfo_Time"]`},
		{name: `["UserId"]`, want: `["UserId"]`},
		{name: "EventInfo_Time / time(1d)", want: `["EventInfo_Time"] / time(1d)`},
		{name: `"Price" * Quantity`, want: `["Price"] * Quantity`},
		{name: "bin(Timestamp, 1h)", want: "bin(Timestamp, 1h)"},
		{name: "bin(Timestamp, 1h)", isAlias: true, want: `["bin(Timestamp, 1h)"]`},
		{name: "42", want: "42"},
		{name: "42", isAlias: true, want: `["42"]`},
		{name: `"quoted"`, isAlias: true, want: `["quoted"]`},
		{name: `say "hi"`, isAlias: true, want: `["say \"hi\""]`},
		{name: "Event Type", want: `["Event Type"]`},
		{name: "COUNT(*)", isAlias: true, want: `["COUNT(*)"]`},
		{name: "count(*)", want: "count()"},
		{name: `"count(*)"`, want: "count()"},
		{name: "-5", want: "-5"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, kql.Escape(tt.name, tt.isAlias), "Escape(%q, %v)", tt.name, tt.isAlias)
	}
}

func TestEscapeIsIdempotent(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"State", "Event Type", `say "hi"`, "EventInfo_Time / time(1d)", "user.id"} {
		for _, isAlias := range []bool{false, true} {
			once := kql.Escape(name, isAlias)
			assert.Equal(t, once, kql.Escape(once, isAlias), "Escape(%q, %v) is not stable", name, isAlias)
		}
	}
}
