// Package strings provides small string helpers shared by modules and repos
package strings

import std "strings"

// MustPrefix normalizes a route root like /approvals to a single leading slash
// panics if the input is empty after trimming
func MustPrefix(s string) string {
	s = "/" + std.Trim(std.TrimSpace(s), " /")
	if s == "/" {
		panic("root path is required")
	}
	return s
}

// IfEmpty returns def when v has no elements
func IfEmpty[T any](v, def []T) []T {
	if len(v) == 0 {
		return def
	}
	return v
}
