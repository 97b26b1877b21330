package domain

import "testing"

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Ana@Example.ORG "); got != "ana@example.org" {
		t.Errorf("NormalizeEmail = %q, want %q", got, "ana@example.org")
	}
}

func TestUser_Validate(t *testing.T) {
	testCases := []struct {
		name string
		u    User
		err  bool
	}{
		{"valid", User{ID: "u1", Email: "a@b.c"}, false},
		{"missing id", User{Email: "a@b.c"}, true},
		{"missing email", User{ID: "u1"}, true},
		{"malformed email", User{ID: "u1", Email: "abc"}, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.u.Validate()
			if (err != nil) != tc.err {
				t.Errorf("Validate() err = %v, want error %v", err, tc.err)
			}
		})
	}
}

func TestUser_DisplayName(t *testing.T) {
	u := User{Email: "a@b.c"}
	if got := u.DisplayName(); got != "a@b.c" {
		t.Errorf("DisplayName = %q, want email fallback", got)
	}
	u.FirstName, u.LastName = "Ana", "Lima"
	if got := u.DisplayName(); got != "Ana Lima" {
		t.Errorf("DisplayName = %q, want %q", got, "Ana Lima")
	}
}
