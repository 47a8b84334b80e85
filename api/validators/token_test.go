package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAuthToken(t *testing.T) {
	cases := []struct {
		name   string
		header string
		want   Claims
		ok     bool
	}{
		{name: "user and role", header: "Bearer u1|admin", want: Claims{UserID: "u1", Role: "admin"}, ok: true},
		{name: "lowercase scheme", header: "bearer u1|admin", want: Claims{UserID: "u1", Role: "admin"}, ok: true},
		{name: "user only", header: "Bearer u1", want: Claims{UserID: "u1"}, ok: true},
		{name: "no scheme", header: "u1|ops", want: Claims{UserID: "u1", Role: "ops"}, ok: true},
		{name: "empty", header: ""},
		{name: "scheme only", header: "Bearer "},
		{name: "bare scheme", header: "bearer"},
		{name: "padded scheme", header: "  Bearer   "},
		{name: "extra spaces", header: "Bearer   u2|ops ", want: Claims{UserID: "u2", Role: "ops"}, ok: true},
		{name: "role only", header: "Bearer |admin"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseAuthToken(tc.header)
			if !tc.ok {
				require.ErrorIs(t, err, ErrInvalidToken)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
