package protocol

import "sort"

// specialKeys is searched with sort.SearchStrings and must stay in byte order.
var specialKeys = []string{
	"BackSpace",
	"Down",
	"Left",
	"Return",
	"Right",
	"Tab",
	"Up",
	"space",
}

// IsSpecialKey reports whether name is an allowed special key. Matching is exact.
func IsSpecialKey(name string) bool {
	i := sort.SearchStrings(specialKeys, name)
	return i < len(specialKeys) && specialKeys[i] == name
}

// SpecialKeys returns a copy of the allow-list in lookup order.
func SpecialKeys() []string {
	out := make([]string, len(specialKeys))
	copy(out, specialKeys)
	return out
}
