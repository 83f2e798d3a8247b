package kql

import (
	"net/http"
	"strings"

	"github.com/dodopizza/sql-to-kql/lib/sql/ast"
	"github.com/dodopizza/sql-to-kql/lib/store"
)

const schemaStages = "| getschema\n| project ColumnName, ColumnType"

// describe resolves a DESCRIBE target. Local sources get a getschema query; anything
// else is left to the cluster catalog through StatementInfo.Table.
func describe(stmt *ast.DescribeStatement, sp *store.Provider) (*StatementInfo, error) {
	if stmt.Name == nil || len(stmt.Name.Parts) == 0 {
		return nil, badRequest("DESCRIBE requires a target name")
	}
	parts := stmt.Name.Parts

	if stmt.Target == ast.DescribeView || stmt.Target == ast.DescribeAny {
		if vs := sp.ViewStore(); vs != nil {
			query, display, found, err := vs.Load(parts)
			if err != nil {
				return nil, err
			}
			if found {
				return describeText(query)
			}
			if stmt.Target == ast.DescribeView {
				return nil, &TranslationError{
					Code:    http.StatusNotFound,
					Message: "translator: view " + display + " not found",
				}
			}
		} else if stmt.Target == ast.DescribeView {
			return nil, badRequest("DESCRIBE VIEW requires configured views directory")
		}
	}

	if query, ok := sp.TableStore().GetTableQuery(parts...); ok {
		return describeText(query)
	}
	if len(parts) > 2 {
		return nil, notSupported("table reference %s", strings.Join(parts, "."))
	}
	ref := &TableRef{Name: parts[len(parts)-1]}
	if len(parts) == 2 {
		ref.Schema = parts[0]
	}
	return &StatementInfo{Table: ref}, nil
}

func describeText(query string) (*StatementInfo, error) {
	source, lets, err := sourceLine(TextSource{Text: query})
	if err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(lets)+2)
	for _, let := range lets {
		lines = append(lines, let.String())
	}
	lines = append(lines, source, schemaStages)
	return &StatementInfo{KQL: strings.Join(lines, "\n")}, nil
}
