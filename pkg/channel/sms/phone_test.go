package sms_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirewire/notifykit/pkg/channel"
	"github.com/hirewire/notifykit/pkg/channel/sms"
)

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "bare NANP number", raw: "5551234567", want: "+15551234567"},
		{name: "eleven digits with country code", raw: "15551234567", want: "+15551234567"},
		{name: "already E.164", raw: "+966501234567", want: "+966501234567"},
		{name: "formatted US number", raw: "(555) 123-4567", want: "+15551234567"},
		{name: "dots and spaces", raw: "555.123.4567", want: "+15551234567"},
		{name: "plus with separators", raw: "+44 20 7946 0958", want: "+442079460958"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := sms.NormalizePhone(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizePhone_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{name: "too short", raw: "123"},
		{name: "empty", raw: ""},
		{name: "letters", raw: "555CALLNOW"},
		{name: "nine digits", raw: "555123456"},
		{name: "plus but too short", raw: "+1234567"},
		{name: "plus but too long", raw: "+1234567890123456"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := sms.NormalizePhone(tt.raw)
			assert.ErrorIs(t, err, channel.ErrInvalidDestination)
		})
	}
}

func TestSegments(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, sms.Segments(""))
	assert.Equal(t, 1, sms.Segments(strings.Repeat("a", 160)))
	assert.Equal(t, 2, sms.Segments(strings.Repeat("a", 161)))
	assert.Equal(t, 3, sms.Segments(strings.Repeat("a", 400)))
}
