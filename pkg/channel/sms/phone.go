package sms

import (
	"fmt"
	"strings"

	"github.com/hirewire/notifykit/pkg/channel"
)

// NormalizePhone converts a raw phone number into E.164 form.
// Separators are stripped; numbers already carrying a leading + pass
// through; bare 10-digit numbers are assumed NANP and prefixed +1; an
// 11-digit number starting with 1 gets a + prepended. Anything else is
// rejected.
func NormalizePhone(raw string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, raw)

	if cleaned == "" {
		return "", fmt.Errorf("%w: empty phone number", channel.ErrInvalidDestination)
	}

	plus := strings.HasPrefix(cleaned, "+")
	digits := strings.TrimPrefix(cleaned, "+")
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: %q contains non-digit characters", channel.ErrInvalidDestination, raw)
		}
	}

	switch {
	case plus:
		if len(digits) < 8 || len(digits) > 15 {
			return "", fmt.Errorf("%w: %q has an invalid length", channel.ErrInvalidDestination, raw)
		}
		return "+" + digits, nil
	case len(digits) == 10:
		// Assume NANP for bare 10-digit local numbers.
		return "+1" + digits, nil
	case len(digits) == 11 && digits[0] == '1':
		return "+" + digits, nil
	}

	return "", fmt.Errorf("%w: %q is not an E.164 phone number", channel.ErrInvalidDestination, raw)
}

// gsmSegmentSize is the character budget of a single SMS segment.
const gsmSegmentSize = 160

// Segments returns how many SMS segments a body consumes.
func Segments(body string) int {
	if body == "" {
		return 1
	}
	return (len(body) + gsmSegmentSize - 1) / gsmSegmentSize
}
