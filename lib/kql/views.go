package kql

import (
	"fmt"
	"strings"

	"k8s.io/klog/v2"

	"github.com/dodopizza/sql-to-kql/lib/sql/ast"
	"github.com/dodopizza/sql-to-kql/lib/store"
	"github.com/dodopizza/sql-to-kql/lib/store/viewstore"
)

// viewTarget validates the name shared by CREATE VIEW and DROP VIEW and returns the store.
func viewTarget(verb string, name *ast.Identifier, sp *store.Provider) (*viewstore.ViewStore, string, error) {
	if name == nil || len(name.Parts) == 0 {
		return nil, "", badRequest("%s missing name", verb)
	}
	vs := sp.ViewStore()
	if vs == nil {
		return nil, "", badRequest("%s requires configured views directory", verb)
	}
	return vs, strings.Join(name.Parts, "."), nil
}

// createView compiles the view body and stores it. It returns the stored KQL.
func createView(stmt *ast.CreateViewStatement, sp *store.Provider) (string, error) {
	vs, name, err := viewTarget("CREATE VIEW", stmt.Name, sp)
	switch {
	case err != nil:
		return "", err
	case stmt.Materialized:
		return "", notSupported("MATERIALIZED VIEW %s", name)
	case len(stmt.Columns) > 0:
		return "", notSupported("a column list on view %s", name)
	case stmt.Select == nil:
		return "", badRequest("CREATE VIEW %s missing SELECT", name)
	}

	query, err := translateSelectWithContext(stmt.Select, translationContext{sp: sp})
	if err != nil {
		return "", fmt.Errorf("translator: failed to translate SELECT for view %s: %w", name, err)
	}
	path, err := vs.Save(stmt.Name.Parts, query, viewstore.ViewOptions{
		OrReplace:   stmt.OrReplace,
		IfNotExists: stmt.IfNotExists,
	})
	if err != nil {
		return "", err
	}
	klog.V(2).InfoS("Stored view", "view", name, "path", path)
	return query, nil
}

func dropView(stmt *ast.DropViewStatement, sp *store.Provider) error {
	vs, name, err := viewTarget("DROP VIEW", stmt.Name, sp)
	if err != nil {
		return err
	}
	if stmt.Materialized {
		return notSupported("DROP MATERIALIZED VIEW %s", name)
	}
	return vs.Remove(stmt.Name.Parts, stmt.IfExists)
}
