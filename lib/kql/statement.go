package kql

import (
	"k8s.io/klog/v2"

	"github.com/dodopizza/sql-to-kql/lib/sql/ast"
	"github.com/dodopizza/sql-to-kql/lib/store"
)

type StatementType string

const (
	StatementTypeSelect        StatementType = "select"
	StatementTypeDescribe      StatementType = "describe"
	StatementTypeCreateView    StatementType = "create_view"
	StatementTypeDropView      StatementType = "drop_view"
	StatementTypeShowDatabases StatementType = "show_databases"
	StatementTypeShowTables    StatementType = "show_tables"
	StatementTypeShowViews     StatementType = "show_views"
	StatementTypeInsert        StatementType = "insert"
)

// StatementInfo is what a statement needs from the cluster after translation.
// KQL is a query to run, Data holds rows produced locally as JSON lines,
// Table names a cluster table to describe and Insert carries rows to ingest.
type StatementInfo struct {
	Kind   StatementType
	KQL    string
	Data   string
	Table  *TableRef
	Insert *InsertBatch
}

// GetStatementInfo translates stmt. Catalog statements that need no cluster
// round trip are answered here, and CREATE/DROP VIEW take effect immediately.
func GetStatementInfo(stmt ast.Statement, sp *store.Provider) (*StatementInfo, error) {
	var (
		si  = &StatementInfo{}
		err error
	)
	switch s := stmt.(type) {
	case nil:
		return nil, badRequest("nil statement")
	case *ast.SelectStatement:
		si.Kind = StatementTypeSelect
		si.KQL, err = TranslateSelect(s, sp)
	case *ast.DescribeStatement:
		if si, err = describe(s, sp); err == nil {
			si.Kind = StatementTypeDescribe
		}
	case *ast.CreateViewStatement:
		si.Kind = StatementTypeCreateView
		si.KQL, err = createView(s, sp)
	case *ast.DropViewStatement:
		si.Kind = StatementTypeDropView
		err = dropView(s, sp)
	case *ast.ShowDatabasesStatement:
		si.Kind = StatementTypeShowDatabases
	case *ast.ShowTablesStatement:
		si.Kind = StatementTypeShowTables
		si.Data, err = showTables(sp.TableStore())
	case *ast.ShowViewsStatement:
		si.Kind = StatementTypeShowViews
		si.Data, err = showViews(sp.ViewStore())
	case *ast.InsertStatement:
		si.Kind = StatementTypeInsert
		if si.Insert, err = buildInsertBatch(s, sp); err == nil {
			klog.V(4).InfoS("Prepared insert", "table", si.Insert.Table.Name, "rows", si.Insert.Rows)
		}
	default:
		return nil, badRequest("unsupported statement %T", s)
	}
	if err != nil {
		return nil, err
	}
	return si, nil
}
