package gitcli

import (
	"os"
	"sort"
	"strings"
)

// criticalEnvironment returns the variables every git child needs to run
// non-interactively with redirected streams.
func criticalEnvironment(base map[string]string) map[string]string {
	env := map[string]string{
		"GIT_TERMINAL_PROMPT": "0",
		"GIT_PAGER":           "cat",
		"TERM":                "dumb",
		"PLINK_PROTOCOL":      "ssh",
	}
	if base["HOME"] == "" {
		if home, err := os.UserHomeDir(); err == nil && home != "" {
			env["HOME"] = home
		}
	}
	return env
}

// buildEnvironment layers the critical variables and then the caller's
// overrides on top of base (a KEY=VALUE list such as os.Environ()).
func buildEnvironment(base []string, overrides map[string]string) []string {
	m := make(map[string]string, len(base)+8)
	for _, kv := range base {
		i := strings.IndexByte(kv, '=')
		if i <= 0 {
			continue
		}
		m[kv[:i]] = kv[i+1:]
	}
	for k, v := range criticalEnvironment(m) {
		m[k] = v
	}
	for k, v := range overrides {
		m[k] = v
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+m[k])
	}
	return out
}
