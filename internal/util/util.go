// Package util provides common utility functions used across edmap.
package util

import "strings"

// StripBOM removes a leading UTF-8 byte order mark from a string. Station
// table exports from the web search frontend carry one on the first header
// cell.
func StripBOM(s string) string {
	return strings.TrimPrefix(s, "\uFEFF")
}

// TrimField normalizes a raw tabular field value: BOM stripped, leading and
// trailing whitespace removed.
func TrimField(s string) string {
	return strings.TrimSpace(StripBOM(s))
}
