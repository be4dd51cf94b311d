package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseYear(t *testing.T) {
	tests := []struct {
		in   string
		want *int
	}{
		{"2019", Int(2019)},
		{"2020-05", Int(2020)},
		{"2020-05-06", Int(2020)},
		{"2019.11.18", Int(2019)},
		{" 1999 ", Int(1999)},
		{"2021-03-04T10:00:00", Int(2021)},
		{"", nil},
		{"unknown", nil},
		{"99", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseYear(tt.in), "ParseYear(%q)", tt.in)
	}
}
