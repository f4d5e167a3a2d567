package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{
			name: "valid",
			raw:  "2024-01-15 10:30:00",
			want: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name: "leap day",
			raw:  "2024-02-29 23:59:59",
			want: time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC),
		},
		{
			name: "invalid month",
			raw:  "2024-13-01 10:00:00",
			want: Unparsed,
		},
		{
			name: "not a leap year",
			raw:  "2023-02-29 10:00:00",
			want: Unparsed,
		},
		{
			name: "empty",
			raw:  "",
			want: Unparsed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(ParseTimestamp(tt.raw)), "ParseTimestamp(%q)", tt.raw)
		})
	}
}

func TestUnparsed_SortsAfterValid(t *testing.T) {
	latest := ParseTimestamp("9999-12-31 23:59:59")
	assert.False(t, IsUnparsed(latest))
	assert.True(t, latest.Before(Unparsed))
	assert.True(t, IsUnparsed(ParseTimestamp("garbage")))
}
