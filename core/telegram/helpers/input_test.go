package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in    string
		want  int64
		valid bool
	}{
		{"150", 15000, true},
		{"149.99", 14999, true},
		{"149,5", 14950, true},
		{"  20  ", 2000, true},
		{"0.5", 50, true},
		{"0", 0, false},
		{"-5", 0, false},
		{"1.234", 0, false},
		{"1.", 0, false},
		{",5", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParsePrice(tc.in)
		assert.Equal(t, tc.valid, ok, "input %q", tc.in)
		if tc.valid {
			assert.Equal(t, tc.want, got, "input %q", tc.in)
		}
	}
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "150", FormatPrice(15000))
	assert.Equal(t, "149.99", FormatPrice(14999))
	assert.Equal(t, "0.50", FormatPrice(50))
	assert.Equal(t, "10.05", FormatPrice(1005))
	assert.Equal(t, "-149.99", FormatPrice(-14999))
	assert.Equal(t, "0", FormatPrice(0))
}

func TestPriceRoundTrip(t *testing.T) {
	for _, in := range []string{"150", "149.99", "0.5"} {
		minor, ok := ParsePrice(in)
		assert.True(t, ok)
		back, ok := ParsePrice(FormatPrice(minor))
		assert.True(t, ok)
		assert.Equal(t, minor, back)
	}
}

func TestParseTelegramID(t *testing.T) {
	id, ok := ParseTelegramID("123456789")
	assert.True(t, ok)
	assert.Equal(t, int64(123456789), id)

	id, ok = ParseTelegramID("  42  ")
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	for _, in := range []string{"0", "-1", "12ab", "", "9999999999999999999999"} {
		_, ok := ParseTelegramID(in)
		assert.False(t, ok, "input %q", in)
	}
}
