// Package tablestore resolves configured table aliases. Each alias names a
// KQL expression, e.g. texas_storms for StormEvents | where State == 'TEXAS',
// and may be queried from SQL like a cluster table.
package tablestore

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Table is one configured alias. Name is lower-cased and may contain dots.
type Table struct {
	Name  string
	Query string
}

type TableStore struct {
	byName map[string]string
	sorted []Table
}

// NewTableStore validates tables and reports every invalid entry at once.
// Names match case-insensitively, so two names differing only in case collide.
func NewTableStore(tables map[string]string) (*TableStore, error) {
	s := &TableStore{byName: make(map[string]string, len(tables))}
	var errs []error
	for rawName, rawQuery := range tables {
		name := strings.ToLower(strings.TrimSpace(rawName))
		query := strings.TrimSpace(rawQuery)
		switch _, dup := s.byName[name]; {
		case name == "":
			errs = append(errs, errors.New("tablestore: table name cannot be empty"))
		case dup:
			errs = append(errs, fmt.Errorf("tablestore: duplicate table name %q", name))
		case query == "":
			errs = append(errs, fmt.Errorf("tablestore: table %q has empty query", name))
		default:
			s.byName[name] = query
			s.sorted = append(s.sorted, Table{Name: name, Query: query})
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("normalize table map: %w", errors.Join(errs...))
	}
	sort.Slice(s.sorted, func(i, j int) bool { return s.sorted[i].Name < s.sorted[j].Name })
	return s, nil
}

// GetTableQuery looks up a possibly qualified name such as ops.errors.
func (s *TableStore) GetTableQuery(parts ...string) (string, bool) {
	if s == nil || len(parts) == 0 {
		return "", false
	}
	query, ok := s.byName[strings.ToLower(strings.Join(parts, "."))]
	return query, ok
}

// Tables returns all aliases ordered by name.
func (s *TableStore) Tables() []Table {
	if s == nil {
		return nil
	}
	return append([]Table(nil), s.sorted...)
}
