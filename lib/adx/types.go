package adx

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/Azure/azure-kusto-go/azkustodata/types"
	"github.com/Azure/azure-kusto-go/azkustodata/value"
	"github.com/spf13/cast"
)

// Database type names reported for result and schema columns.
const (
	TypeBoolean   = "BOOLEAN"
	TypeTimestamp = "TIMESTAMP"
	TypeDate      = "DATE"
	TypeVarchar   = "VARCHAR"
	TypeInteger   = "INTEGER"
	TypeBigInt    = "BIGINT"
	TypeFloat     = "FLOAT"
)

var cslTypes = map[string]string{
	"bool":         TypeBoolean,
	"boolean":      TypeBoolean,
	"datetime":     TypeTimestamp,
	"date":         TypeDate,
	"dynamic":      TypeVarchar,
	"stringbuffer": TypeVarchar,
	"guid":         TypeVarchar,
	"int":          TypeInteger,
	"i32":          TypeInteger,
	"i16":          TypeInteger,
	"i8":           TypeInteger,
	"r64":          TypeFloat,
	"r32":          TypeFloat,
	"long":         TypeBigInt,
	"i64":          TypeBigInt,
	"string":       TypeVarchar,
	"timespan":     TypeVarchar,
	"decimal":      TypeFloat,
	"real":         TypeFloat,
}

// DatabaseTypeName maps a Kusto CslType to a database type name. Unknown types are reported as VARCHAR.
func DatabaseTypeName(cslType string) string {
	key := strings.ToLower(strings.TrimSpace(cslType))
	if name, ok := cslTypes[key]; ok {
		return name
	}
	if normalized := types.NormalizeColumn(key); normalized != "" {
		if name, ok := cslTypes[string(normalized)]; ok {
			return name
		}
	}
	return TypeVarchar
}

// plainValue turns a Kusto cell into a Go value: nil for nulls, json.RawMessage for dynamic values.
func plainValue(v value.Kusto) any {
	switch t := v.(type) {
	case nil:
		return nil
	case *value.String:
		return t.Value
	case *value.Dynamic:
		if t.Value == nil {
			return nil
		}
		return json.RawMessage(t.Value)
	case *value.Bool:
		return deref(t.Ptr())
	case *value.Int:
		return deref(t.Ptr())
	case *value.Long:
		return deref(t.Ptr())
	case *value.Real:
		return deref(t.Ptr())
	case *value.DateTime:
		return deref(t.Ptr())
	case *value.Timespan:
		if t.Ptr() == nil {
			return nil
		}
		return t.String()
	case *value.GUID:
		if p := t.Ptr(); p != nil {
			return p.String()
		}
		return nil
	case *value.Decimal:
		if t.Ptr() == nil {
			return nil
		}
		return json.Number(t.String())
	default:
		return v.String()
	}
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// textValue renders a result cell as plain text.
func textValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case json.RawMessage:
		return string(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return cast.ToString(v)
	}
}
