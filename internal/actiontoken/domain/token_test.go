package domain

import (
	"testing"
	"time"
)

func TestToken_ExpiredAt(t *testing.T) {
	exp := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	tok := &Token{ExpiresAt: exp}

	testCases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"before", exp.Add(-time.Nanosecond), false},
		{"exactly at expiry", exp, true},
		{"after", exp.Add(time.Second), true},
		{"long after", exp.Add(365 * 24 * time.Hour), true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tok.ExpiredAt(tc.now); got != tc.want {
				t.Errorf("ExpiredAt(%v) = %v, want %v", tc.now, got, tc.want)
			}
		})
	}
}

func TestParsePurpose(t *testing.T) {
	for _, s := range []string{"account_activation", "password_change"} {
		if p, err := ParsePurpose(s); err != nil || string(p) != s {
			t.Errorf("ParsePurpose(%q) = %q, %v", s, p, err)
		}
	}
	if _, err := ParsePurpose("login"); err == nil {
		t.Error("ParsePurpose should reject unknown purpose")
	}
}
