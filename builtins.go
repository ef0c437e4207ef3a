package gojacommonjs

import (
	"fmt"
	"slices"
	"strings"
)

// BuiltinTable maps core module names to replacement specifiers. Lookups
// are exact and case-sensitive. A replacement is resolved like any other
// specifier, relative to the directory of the requiring module.
//
//	BuiltinTable{"path": "./shims/path.js", "fs": "memfs"}
type BuiltinTable map[string]string

// ParseBuiltinReplacements parses a comma separated list of name:specifier
// pairs, e.g. "path:./module,fs:./module.js". Whitespace around pairs is
// ignored. Each name may appear at most once.
func ParseBuiltinReplacements(s string) (BuiltinTable, error) {
	table := make(BuiltinTable)
	if strings.TrimSpace(s) == "" {
		return table, nil
	}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		name, target, ok := strings.Cut(pair, ":")
		if !ok || name == "" || target == "" {
			return nil, fmt.Errorf("invalid builtin replacement %q: expected name:specifier", pair)
		}
		if _, exists := table[name]; exists {
			return nil, fmt.Errorf("duplicate builtin replacement for %q", name)
		}
		table[name] = target
	}
	return table, nil
}

func (x BuiltinTable) validate() error {
	for name, target := range x {
		if name == "" {
			return fmt.Errorf("builtin replacement name must not be empty")
		}
		if target == "" {
			return fmt.Errorf("builtin replacement for %q must not be empty", name)
		}
	}
	return nil
}

// replace returns the replacement for specifier, if any.
func (x BuiltinTable) replace(specifier string) (string, bool) {
	target, ok := x[specifier]
	return target, ok
}

// String formats the table in the form accepted by
// [ParseBuiltinReplacements], sorted by name.
func (x BuiltinTable) String() string {
	names := make([]string, 0, len(x))
	for name := range x {
		names = append(names, name)
	}
	slices.Sort(names)
	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(x[name])
	}
	return b.String()
}
