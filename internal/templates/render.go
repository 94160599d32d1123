// Package templates renders {{key}} placeholders and picks content templates for a topic.
package templates

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
)

// ErrMissingVariable is returned when a placeholder references an unknown key.
var ErrMissingVariable = errors.New("missing template variable")

var placeholderRegex = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.\-]+)\s*\}\}`)

// Render replaces every {{ key }} placeholder in source with vars[key].
func Render(source string, vars map[string]string) (string, error) {
	var missing string
	out := placeholderRegex.ReplaceAllStringFunc(source, func(m string) string {
		key := placeholderRegex.FindStringSubmatch(m)[1]
		v, ok := vars[key]
		if !ok {
			if missing == "" {
				missing = key
			}
			return m
		}
		return v
	})
	if missing != "" {
		return "", fmt.Errorf("%w: %s", ErrMissingVariable, missing)
	}
	return out, nil
}

// Placeholders returns the distinct keys referenced by the sources, sorted.
func Placeholders(sources ...string) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, s := range sources {
		for _, m := range placeholderRegex.FindAllStringSubmatch(s, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				keys = append(keys, m[1])
			}
		}
	}
	sort.Strings(keys)
	return keys
}

// Snapshot records the current value of every key referenced by the sources.
// Keys absent from vars are left out.
func Snapshot(vars map[string]string, sources ...string) map[string]string {
	snap := make(map[string]string)
	for _, key := range Placeholders(sources...) {
		if v, ok := vars[key]; ok {
			snap[key] = v
		}
	}
	return snap
}
