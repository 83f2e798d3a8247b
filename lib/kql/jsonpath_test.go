package kql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONPathAccess(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw    string
		strict bool
		want   string
	}{
		{raw: "$.user.name", want: "payload.user.name"},
		{raw: "strict $.payload['ip']", strict: true, want: "payload.payload.ip"},
		{raw: `lax $.payload["user name"]`, want: `payload.payload["user name"]`},
		{raw: "$.items[10]", want: "payload.items[10]"},
		{raw: `$.meta["first\"name"]`, want: `payload.meta["first\"name"]`},
		{raw: "  $ . a [ 0 ] . b ", want: "payload.a[0].b"},
	}
	for _, tt := range tests {
		path, err := parseJSONPath(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.strict, path.Strict, tt.raw)
		assert.Equal(t, tt.want, path.Access("payload"), tt.raw)
	}
}

func TestParseJSONPathErrors(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		"",
		"user.name",
		"$",
		"$.",
		"$.items[",
		"$.items[abc]",
		`$.items["unterminated]`,
		"$.items[99999999999999999999]",
		"$#",
	} {
		_, err := parseJSONPath(raw)
		var te *TranslationError
		require.ErrorAs(t, err, &te, "%q", raw)
		assert.Equal(t, 400, te.Code, raw)
	}
}
