package policy

import (
	"testing"

	clierr "github.com/rvelasco/routemux/internal/errors"
)

func TestCheckCommandAllowed(t *testing.T) {
	tests := []struct {
		name      string
		allowlist []string
		path      string
		wantErr   bool
	}{
		{name: "empty allowlist permits everything", path: "quote"},
		{name: "exact match", allowlist: []string{"price"}, path: "price"},
		{name: "case and spacing normalized", allowlist: []string{"  Protocols   LIST "}, path: "protocols list"},
		{name: "not listed", allowlist: []string{"price"}, path: "quote", wantErr: true},
		{name: "prefix is not a match", allowlist: []string{"protocols"}, path: "protocols list", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckCommandAllowed(tc.allowlist, tc.path)
			if tc.wantErr {
				if code := clierr.ExitCode(err); code != int(clierr.CodeBlocked) {
					t.Fatalf("exit code = %d, want blocked", code)
				}
				return
			}
			if err != nil {
				t.Fatalf("CheckCommandAllowed: %v", err)
			}
		})
	}
}
