// Package utils holds small helpers shared by the HTTP and service layers.
package utils

import "strings"

// ParseCSV reads a comma-separated list such as the ?types= event filter
// ("WAVEFORMS_COMPILED, CACHE_CLEANED"). Items are trimmed and blank items are
// dropped; a list with no items yields nil.
func ParseCSV(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
