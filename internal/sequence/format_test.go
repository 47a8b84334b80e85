package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatOrderNumber(t *testing.T) {
	tests := map[int64]string{
		1:    "SK01",
		7:    "SK07",
		10:   "SK10",
		99:   "SK99",
		100:  "SK100",
		1234: "SK1234",
	}
	for n, want := range tests {
		assert.Equal(t, want, FormatOrderNumber(n))
	}
}

func TestParseOrderNumber(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{in: "SK01", want: 1, ok: true},
		{in: "SK100", want: 100, ok: true},
		{in: "SK", ok: false},
		{in: "SK00", ok: false},
		{in: "SK-4", ok: false},
		{in: "SK1a", ok: false},
		{in: "sk12", ok: false},
		{in: "AB12", ok: false},
		{in: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseOrderNumber(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextAfter(t *testing.T) {
	assert.Equal(t, "SK01", NextAfter(nil))
	assert.Equal(t, "SK01", NextAfter([]string{"garbage", "SK00", "SK-3"}))
	assert.Equal(t, "SK11", NextAfter([]string{"SK03", "SK10", "SKxx", "SK09"}))
	assert.Equal(t, "SK100", NextAfter([]string{"SK99"}))
}
