package driver

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// countPlaceholders counts ? marks outside quoted literals.
func countPlaceholders(query string) int {
	n := 0
	scanPlaceholders(query, func(int) { n++ })
	return n
}

// scanPlaceholders calls fn with the offset of every ? outside '...' and "..." literals
// and outside --, // and /* */ comments. Inside a literal a doubled quote or a
// backslash escape does not end it.
func scanPlaceholders(query string, fn func(pos int)) {
	var quote byte
	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case quote != 0:
			switch {
			case ch == '\\':
				i++
			case ch != quote:
			case i+1 < len(query) && query[i+1] == quote:
				i++
			default:
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case strings.HasPrefix(query[i:], "--"), strings.HasPrefix(query[i:], "//"):
			if end := strings.IndexByte(query[i:], '\n'); end >= 0 {
				i += end
			} else {
				i = len(query)
			}
		case strings.HasPrefix(query[i:], "/*"):
			if end := strings.Index(query[i+2:], "*/"); end >= 0 {
				i += end + 3
			} else {
				i = len(query)
			}
		case ch == '?':
			fn(i)
		}
	}
}

// Interpolate replaces each ? placeholder with the literal form of the matching argument.
func Interpolate(query string, args []driver.NamedValue) (string, error) {
	if want := countPlaceholders(query); want != len(args) {
		return "", fmt.Errorf("driver: query has %d placeholders but %d arguments were given", want, len(args))
	}
	if len(args) == 0 {
		return query, nil
	}

	var b strings.Builder
	last, next := 0, 0
	var err error
	scanPlaceholders(query, func(pos int) {
		if err != nil {
			return
		}
		arg := args[next]
		next++
		if arg.Name != "" {
			err = fmt.Errorf("driver: named argument %q is not supported", arg.Name)
			return
		}
		var text string
		if text, err = formatValue(arg.Value); err != nil {
			return
		}
		b.WriteString(query[last:pos])
		b.WriteString(text)
		last = pos + 1
	})
	if err != nil {
		return "", err
	}
	b.WriteString(query[last:])
	return b.String(), nil
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func formatValue(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "dynamic(null)", nil
	case string:
		// a bare star selects all columns
		if x == "*" {
			return x, nil
		}
		return quoteString(x), nil
	case []byte:
		return quoteString(string(x)), nil
	case bool:
		return strconv.FormatBool(x), nil
	case time.Time:
		return "datetime(" + x.UTC().Format(time.RFC3339Nano) + ")", nil
	case driver.Valuer:
		inner, err := x.Value()
		if err != nil {
			return "", err
		}
		return formatValue(inner)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return formatValue(rv.String())
	case reflect.Bool:
		return formatValue(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cast.ToStringE(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return cast.ToStringE(rv.Uint())
	case reflect.Float32:
		return cast.ToStringE(float32(rv.Float()))
	case reflect.Float64:
		return cast.ToStringE(rv.Float())
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			text, err := formatValue(rv.Index(i).Interface())
			if err != nil {
				return "", err
			}
			parts[i] = text
		}
		return strings.Join(parts, ", "), nil
	case reflect.Pointer:
		if rv.IsNil() {
			return "dynamic(null)", nil
		}
		return formatValue(rv.Elem().Interface())
	}
	return "", fmt.Errorf("driver: unsupported argument type %T", v)
}
