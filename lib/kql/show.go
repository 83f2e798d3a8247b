package kql

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"

	"github.com/dodopizza/sql-to-kql/lib/store/tablestore"
	"github.com/dodopizza/sql-to-kql/lib/store/viewstore"
)

type showTableRow struct {
	TableName string `json:"table_name"`
	Query     string `json:"query,omitempty"`
}

type showViewRow struct {
	ViewName string `json:"view_name"`
	Query    string `json:"query"`
}

// showTables lists the configured table aliases. The executor appends cluster tables.
func showTables(ts *tablestore.TableStore) (string, error) {
	var rows []showTableRow
	for _, t := range ts.Tables() {
		rows = append(rows, showTableRow{TableName: t.Name, Query: t.Query})
	}
	return encodeLines(rows)
}

func showViews(vs *viewstore.ViewStore) (string, error) {
	if vs == nil {
		return "", nil
	}
	defs, err := vs.ViewDefinitions()
	if err != nil {
		return "", internalError("translator: load view definitions", err)
	}
	var rows []showViewRow
	for _, name := range slices.Sorted(maps.Keys(defs)) {
		rows = append(rows, showViewRow{ViewName: name, Query: defs[name]})
	}
	return encodeLines(rows)
}

// encodeLines writes one JSON object per line, leaving KQL operators such as > unescaped.
func encodeLines[T any](rows []T) (string, error) {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return "", internalError("translator: encode payload", err)
		}
	}
	return b.String(), nil
}
