package models

import "strings"

// NormalizeMAC canonicalizes a device identifier for comparison: surrounding
// whitespace is dropped and hex digits are uppercased. The same normalization
// must be applied to stored and incoming values, otherwise lookups silently
// miss on case differences.
func NormalizeMAC(mac string) string {
	return strings.ToUpper(strings.TrimSpace(mac))
}
