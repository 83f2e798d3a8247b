package tablestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableStoreLookup(t *testing.T) {
	ts, err := NewTableStore(map[string]string{
		" Texas_Storms ": "StormEvents | where State == 'TEXAS'",
		"ops.errors":     "database(\"ops\").Logs | where Level == 'Error'",
	})
	require.NoError(t, err)

	q, ok := ts.GetTableQuery("TEXAS_STORMS")
	require.True(t, ok)
	assert.Equal(t, "StormEvents | where State == 'TEXAS'", q)

	q, ok = ts.GetTableQuery("ops", "errors")
	require.True(t, ok)
	assert.Contains(t, q, "Level == 'Error'")

	_, ok = ts.GetTableQuery("missing")
	assert.False(t, ok)

	tables := ts.Tables()
	require.Len(t, tables, 2)
	assert.Equal(t, "ops.errors", tables[0].Name)
	assert.Equal(t, "texas_storms", tables[1].Name)
}

func TestTableStoreRejectsInvalidConfig(t *testing.T) {
	_, err := NewTableStore(map[string]string{"A": "x", "a": "y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate table name")

	_, err = NewTableStore(map[string]string{"  ": "x"})
	require.Error(t, err)

	_, err = NewTableStore(map[string]string{"t": "  "})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty query")
}

func TestNilTableStore(t *testing.T) {
	var ts *TableStore
	_, ok := ts.GetTableQuery("x")
	assert.False(t, ok)
	assert.Nil(t, ts.Tables())
}

func TestTableStoreTables(t *testing.T) {
	ts, err := NewTableStore(map[string]string{"b": " B | take 1 ", "A": "A"})
	require.NoError(t, err)
	assert.Equal(t, []Table{{Name: "a", Query: "A"}, {Name: "b", Query: "B | take 1"}}, ts.Tables())

	empty, err := NewTableStore(nil)
	require.NoError(t, err)
	assert.Empty(t, empty.Tables())
}

func TestTableStoreReportsAllProblems(t *testing.T) {
	_, err := NewTableStore(map[string]string{"": "x", "t": ""})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table name cannot be empty")
	assert.Contains(t, err.Error(), `table "t" has empty query`)
}
