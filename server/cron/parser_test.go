package cron

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchedules(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want []string
	}{
		{
			name: "single schedule",
			spec: "*/5 * * * *",
			want: []string{"*/5 * * * *"},
		},
		{
			name: "multiple schedules",
			spec: "0 8 * * 1-5;*/15 12-14 * * 1-5",
			want: []string{"0 8 * * 1-5", "*/15 12-14 * * 1-5"},
		},
		{
			name: "whitespace is normalised",
			spec: "  0  8 * * *  ;   30 17 * * * ",
			want: []string{"0 8 * * *", "30 17 * * *"},
		},
		{
			name: "trailing semicolon",
			spec: "0 8 * * *;",
			want: []string{"0 8 * * *"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSchedules(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSchedules_Errors(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		wantMsg string
	}{
		{name: "empty", spec: "", wantMsg: "cannot be empty"},
		{name: "whitespace only", spec: "   ", wantMsg: "cannot be empty"},
		{name: "only semicolons", spec: ";;;", wantMsg: "no valid schedules"},
		{name: "invalid expression", spec: "0 8 * * *;not cron", wantMsg: "invalid cron expression"},
		{name: "duplicate", spec: "0 8 * * *; 0 8 * * *", wantMsg: "duplicate schedule"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSchedules(tt.spec)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestParseSchedules_InvalidWrapsSentinel(t *testing.T) {
	_, err := ParseSchedules("99 * * * *")
	assert.ErrorIs(t, err, ErrInvalidCronSpec)
}
