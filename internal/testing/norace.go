//go:build !race

package testing

// RaceEnabled reports whether the binary was built with -race.
const RaceEnabled = false
