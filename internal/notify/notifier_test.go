package notify

import (
	"context"
	"testing"
)

func TestRenderLink(t *testing.T) {
	testCases := []struct {
		tmpl string
		want string
	}{
		{"http://localhost:3000/register/activate/{token}", "http://localhost:3000/register/activate/abc123"},
		{"https://app/reset?t={token}&again={token}", "https://app/reset?t=abc123&again=abc123"},
		{"https://app/reset/", "https://app/reset/abc123"},
	}
	for _, tc := range testCases {
		if got := RenderLink(tc.tmpl, "abc123"); got != tc.want {
			t.Errorf("RenderLink(%q) = %q, want %q", tc.tmpl, got, tc.want)
		}
	}
}

func TestLogNotifier(t *testing.T) {
	if err := (LogNotifier{}).Notify(context.Background(), Message{Kind: KindActivation, Email: "a@b.c", Link: "x"}); err != nil {
		t.Errorf("Notify: %v", err)
	}
}
