package gitcli

import (
	"strings"

	"github.com/MyCarrier-DevOps/gitter/internal/domain"
)

const configListFormat = "config --list --null"

// ParseConfig parses the output of "git config --list --null".
//
// Each entry is "key\nvalue" terminated by NUL; a key without a newline is
// a value-less boolean. Blank trailing entries are ignored. Output that
// does not end in NUL was truncated and is rejected.
func ParseConfig(data string, scope domain.ConfigFile, fileName string) ([]domain.ConfigParameterData, error) {
	if strings.TrimSpace(data) == "" {
		return nil, nil
	}
	if !strings.HasSuffix(strings.TrimRight(data, "\r\n"), "\x00") {
		return nil, domain.NewParseError(configListFormat, -1, "output is not NUL-terminated")
	}

	entries := strings.Split(data, "\x00")
	params := make([]domain.ConfigParameterData, 0, len(entries))
	for i, entry := range entries {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		name, value, _ := strings.Cut(entry, "\n")
		if err := validateConfigKey(name); err != "" {
			return nil, domain.NewParseError(configListFormat, i, err)
		}
		params = append(params, domain.ConfigParameterData{
			Name:       name,
			Value:      value,
			ConfigFile: scope,
			FileName:   fileName,
		})
	}
	return params, nil
}

// validateConfigKey returns a reason when name is not "section[.subsection].key".
func validateConfigKey(name string) string {
	switch {
	case name == "":
		return "empty key"
	case strings.TrimSpace(name) != name:
		return "key has surrounding whitespace"
	case !strings.Contains(name, "."):
		return "key " + name + " has no section"
	case strings.HasPrefix(name, ".") || strings.HasSuffix(name, "."):
		return "key " + name + " has an empty section or name"
	}
	return ""
}
