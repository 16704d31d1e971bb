package process

import "strings"

// MatchMode selects how a requested module name is compared to a loaded module.
type MatchMode int

const (
	// MatchPrefix matches when the loaded module name starts with the requested name.
	MatchPrefix MatchMode = iota
	// MatchSubstring matches when the requested name appears anywhere in the loaded path.
	MatchSubstring
	// MatchExact requires equal names.
	MatchExact
)

// MatchModuleName reports whether candidate satisfies want under mode.
// An empty want never matches.
func MatchModuleName(candidate, want string, mode MatchMode) bool {
	if want == "" {
		return false
	}

	switch mode {
	case MatchPrefix:
		return strings.HasPrefix(candidate, want)
	case MatchSubstring:
		return strings.Contains(candidate, want)
	case MatchExact:
		return candidate == want
	}
	return false
}

// FindModule returns the first module in list whose name matches want.
func FindModule(list []Module, want string, mode MatchMode) (Module, bool) {
	for _, m := range list {
		if MatchModuleName(m.Name, want, mode) {
			return m, true
		}
	}
	return Module{}, false
}
