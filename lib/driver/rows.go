package driver

import (
	"database/sql/driver"
	"encoding/json"
	"io"
	"time"

	"github.com/spf13/cast"

	"github.com/dodopizza/sql-to-kql/lib/adx"
)

// rows walks a fully fetched primary result.
type rows struct {
	res *adx.Result
	pos int
}

var (
	_ driver.Rows                           = (*rows)(nil)
	_ driver.RowsColumnTypeDatabaseTypeName = (*rows)(nil)
	_ driver.RowsColumnTypeNullable         = (*rows)(nil)
)

func newRows(res *adx.Result) *rows {
	return &rows{res: res}
}

func (r *rows) Columns() []string {
	names := make([]string, len(r.res.Columns))
	for i, c := range r.res.Columns {
		names[i] = c.Name
	}
	return names
}

func (r *rows) Close() error {
	r.pos = len(r.res.Rows)
	return nil
}

func (r *rows) Next(dest []driver.Value) error {
	if r.pos >= len(r.res.Rows) {
		return io.EOF
	}
	row := r.res.Rows[r.pos]
	r.pos++
	for i := range dest {
		if i < len(row) {
			dest[i] = driverValue(row[i])
		} else {
			dest[i] = nil
		}
	}
	return nil
}

func (r *rows) ColumnTypeDatabaseTypeName(index int) string {
	return adx.DatabaseTypeName(r.res.Columns[index].Type)
}

// ColumnTypeNullable reports every column as nullable; any Kusto cell may be null.
func (r *rows) ColumnTypeNullable(int) (nullable, ok bool) {
	return true, true
}

func driverValue(v any) driver.Value {
	switch x := v.(type) {
	case nil, int64, float64, bool, string, time.Time, []byte:
		return x
	case json.RawMessage:
		return []byte(x)
	case json.Number:
		return x.String()
	case int32:
		return int64(x)
	case int:
		return int64(x)
	default:
		return cast.ToString(x)
	}
}
