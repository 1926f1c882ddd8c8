package execenv

import (
	"os"
	"strings"
)

// DefaultSafeAllowlist is the set of variable names inherit_core passes
// through from the host environment. Linux/macOS-flavoured; callers
// targeting another platform should override it rather than patch this
// package.
var DefaultSafeAllowlist = []string{
	"PATH", "HOME", "LANG", "LC_ALL", "TZ", "TMPDIR", "TERM",
	"USER", "SHELL", "PWD", "GOPATH", "GOROOT",
}

var sensitiveSuffixes = []string{
	"_API_KEY", "_SECRET", "_TOKEN", "_PASSWORD", "_CREDENTIAL",
}

func isSensitiveName(name string) bool {
	upper := strings.ToUpper(name)
	for _, suffix := range sensitiveSuffixes {
		if strings.HasSuffix(upper, suffix) {
			return true
		}
	}
	return false
}

func isAllowlisted(name string, allowlist []string) bool {
	for _, allowed := range allowlist {
		if strings.EqualFold(allowed, name) {
			return true
		}
	}
	return false
}

// buildEnvironment derives a child process environment per policy, then
// merges extra (caller-supplied) vars on top — those always take effect
// regardless of policy.
func buildEnvironment(policy EnvPolicy, extra map[string]string) []string {
	var base []string
	switch policy {
	case InheritAll:
		base = os.Environ()
	case InheritNone:
		base = nil
	case InheritCore:
		fallthrough
	default:
		for _, kv := range os.Environ() {
			name, _, found := strings.Cut(kv, "=")
			if !found {
				continue
			}
			if isSensitiveName(name) {
				continue
			}
			if isAllowlisted(name, DefaultSafeAllowlist) {
				base = append(base, kv)
			}
		}
	}

	merged := make(map[string]string, len(base)+len(extra))
	for _, kv := range base {
		name, val, _ := strings.Cut(kv, "=")
		merged[name] = val
	}
	for k, v := range extra {
		merged[k] = v
	}

	out := make([]string, 0, len(merged))
	for k, v := range merged {
		out = append(out, k+"="+v)
	}
	return out
}
