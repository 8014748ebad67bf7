// Package policy gates command execution behind an optional allowlist so
// agent harnesses can expose a narrow surface of the CLI.
package policy

import (
	"strings"

	clierr "github.com/rvelasco/routemux/internal/errors"
)

// CheckCommandAllowed returns nil when allowlist is empty or contains the
// command path. Matching ignores case and collapses whitespace.
func CheckCommandAllowed(allowlist []string, commandPath string) error {
	if len(allowlist) == 0 {
		return nil
	}
	want := canonical(commandPath)
	for _, allowed := range allowlist {
		if canonical(allowed) == want {
			return nil
		}
	}
	return clierr.New(clierr.CodeBlocked, "command blocked by --enable-commands policy")
}

func canonical(v string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(v))), " ")
}
