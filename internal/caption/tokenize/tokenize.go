// Package tokenize splits recognized text segments into word tokens.
package tokenize

import "strings"

// Words returns the ordered sequence of maximal non-whitespace substrings in
// the segment. Empty or all-whitespace input yields an empty sequence.
func Words(segment string) []string {
	return strings.Fields(segment)
}
