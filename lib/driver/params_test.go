package driver

import (
	"database/sql/driver"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func args(values ...any) []driver.NamedValue {
	out := make([]driver.NamedValue, len(values))
	for i, v := range values {
		out[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
	}
	return out
}

type level string

func TestInterpolate(t *testing.T) {
	ts := time.Date(2007, 9, 29, 8, 11, 0, 500, time.FixedZone("CEST", 2*3600))
	tests := []struct {
		name  string
		query string
		args  []driver.NamedValue
		want  string
	}{
		{"no args", "StormEvents | take 1", nil, "StormEvents | take 1"},
		{"string doubling", "SELECT * FROM t WHERE a = ?", args("O'Hare"), "SELECT * FROM t WHERE a = 'O''Hare'"},
		{"numbers", "? ? ? ?", args(42, int8(-3), uint16(7), 1.5), "42 -3 7 1.5"},
		{"large float stays decimal", "?", args(1e21), "1000000000000000000000"},
		{"bools", "? ?", args(true, false), "true false"},
		{"time", "?", args(ts), "datetime(2007-09-29T06:11:00.0000005Z)"},
		{"null", "?", args(nil), "dynamic(null)"},
		{"nil pointer", "?", args((*int)(nil)), "dynamic(null)"},
		{"slice", "State in (?)", args([]string{"TEXAS", "OHIO"}), "State in ('TEXAS', 'OHIO')"},
		{"mixed slice", "?", args([]any{1, "a", nil}), "1, 'a', dynamic(null)"},
		{"bytes", "?", args([]byte("raw")), "'raw'"},
		{"named string type", "?", args(level("warn")), "'warn'"},
		{"star", "SELECT ? FROM t", args("*"), "SELECT * FROM t"},
		{"quoted marks are kept", "SELECT '?', \"a?\" FROM t WHERE b = ?", args(1), "SELECT '?', \"a?\" FROM t WHERE b = 1"},
		{"doubled quotes stay inside", "SELECT 'it''s ?' FROM t WHERE b = ?", args(2), "SELECT 'it''s ?' FROM t WHERE b = 2"},
		{"backslash escapes stay inside", `T | where Msg == 'it\'s ?' and Id == ?`, args(7), `T | where Msg == 'it\'s ?' and Id == 7`},
		{"line comments", "SELECT x FROM t -- why?\nWHERE id = ?", args(7), "SELECT x FROM t -- why?\nWHERE id = 7"},
		{"kql line comments", "T // which one?\n| where Id == ?", args(7), "T // which one?\n| where Id == 7"},
		{"block comments", "SELECT /* ? */ x FROM t WHERE id = ?", args(7), "SELECT /* ? */ x FROM t WHERE id = 7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Interpolate(tt.query, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInterpolateErrors(t *testing.T) {
	_, err := Interpolate("a = ? AND b = ?", args(1))
	assert.ErrorContains(t, err, "2 placeholders but 1 arguments")

	_, err = Interpolate("a", args(1))
	assert.Error(t, err)

	_, err = Interpolate("a = ?", []driver.NamedValue{{Name: "a", Ordinal: 1, Value: 1}})
	assert.ErrorContains(t, err, "named argument")

	_, err = Interpolate("a = ?", args(map[string]int{"a": 1}))
	assert.ErrorContains(t, err, "unsupported argument type")
}

func TestCountPlaceholders(t *testing.T) {
	assert.Equal(t, 0, countPlaceholders("SELECT '?'"))
	assert.Equal(t, 2, countPlaceholders("SELECT ? FROM t WHERE a = ?"))
	assert.Equal(t, 1, countPlaceholders("SELECT \"x\"\"?\" FROM t WHERE a = ?"))
	assert.Equal(t, 1, countPlaceholders(`T | where a == "x\"?" and b == ?`))
	assert.Equal(t, 0, countPlaceholders("SELECT x -- trailing ?"))
}
