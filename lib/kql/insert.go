package kql

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/dodopizza/sql-to-kql/lib/sql/ast"
	"github.com/dodopizza/sql-to-kql/lib/store"
)

// InsertBatch holds INSERT rows encoded as JSON lines, ready for ingestion into Table.
type InsertBatch struct {
	Table   TableRef
	Columns []string
	Payload []byte
	Rows    int
}

func buildInsertBatch(stmt *ast.InsertStatement, sp *store.Provider) (*InsertBatch, error) {
	if stmt.Table == nil || stmt.Table.Name == nil || len(stmt.Table.Name.Parts) == 0 {
		return nil, badRequest("INSERT missing table")
	}
	parts := stmt.Table.Name.Parts
	if len(parts) > 2 {
		return nil, notSupported("table reference %s", strings.Join(parts, "."))
	}
	if _, ok := sp.TableStore().GetTableQuery(parts...); ok {
		return nil, badRequest("cannot INSERT into configured table %s", strings.Join(parts, "."))
	}
	if stmt.Select != nil {
		return nil, notSupported("INSERT ... SELECT")
	}
	if len(stmt.Columns) == 0 {
		return nil, badRequest("INSERT requires a column list")
	}
	if len(stmt.Rows) == 0 {
		return nil, badRequest("INSERT requires VALUES")
	}

	batch := &InsertBatch{Table: TableRef{Name: parts[len(parts)-1]}}
	if len(parts) == 2 {
		batch.Table.Schema = parts[0]
	}
	for _, col := range stmt.Columns {
		if col == nil || len(col.Parts) != 1 {
			return nil, badRequest("INSERT columns must be plain names")
		}
		batch.Columns = append(batch.Columns, col.Parts[0])
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i, row := range stmt.Rows {
		if len(row) != len(batch.Columns) {
			return nil, badRequest("INSERT row %d has %d values for %d columns", i+1, len(row), len(batch.Columns))
		}
		record := make(map[string]any, len(row))
		for j, expr := range row {
			value, err := insertValue(expr)
			if err != nil {
				return nil, err
			}
			record[batch.Columns[j]] = value
		}
		if err := enc.Encode(record); err != nil {
			return nil, internalError("translator: encode INSERT row", err)
		}
		batch.Rows++
	}
	batch.Payload = buf.Bytes()
	return batch, nil
}

func insertValue(expr ast.Expr) (any, error) {
	switch v := expr.(type) {
	case *ast.NumericLiteral:
		return json.Number(strings.TrimSuffix(v.Value, ".")), nil
	case *ast.StringLiteral:
		return v.Value, nil
	case *ast.BooleanLiteral:
		return v.Value, nil
	case *ast.NullLiteral:
		return nil, nil
	case *ast.TimespanLiteral:
		return v.Value, nil
	case *ast.UnaryExpr:
		if num, ok := v.Expr.(*ast.NumericLiteral); ok && v.Operator == "-" {
			return json.Number("-" + strings.TrimSuffix(num.Value, ".")), nil
		}
	case *ast.Placeholder:
		return nil, badRequest("INSERT placeholder %s is not bound", v.Symbol)
	}
	return nil, notSupported("INSERT value %T", expr)
}
