// Package motion moves the pointer toward a target with bounded velocity.
package motion

// DefaultMaxDelta is the per-tick step limit in pixels.
const DefaultMaxDelta = 10

// Point is an absolute pointer position in pixels.
type Point struct {
	X, Y int
}

// Size is a screen size in pixels.
type Size struct {
	W, H int
}

// Target is a pointer target as fractions of the screen size.
type Target struct {
	X, Y float64
}

// Center returns the target at the middle of the screen.
func Center() Target {
	return Target{X: 0.5, Y: 0.5}
}

// Clamp limits both fractions to [0,1].
func (t Target) Clamp() Target {
	return Target{X: clampUnit(t.X), Y: clampUnit(t.Y)}
}

// Absolute converts the clamped target to pixels on a screen of the given size.
// A fraction of 1 lands on the last pixel, not one past it.
func (t Target) Absolute(screen Size) Point {
	c := t.Clamp()
	return Point{
		X: toPixel(c.X, screen.W),
		Y: toPixel(c.Y, screen.H),
	}
}

func toPixel(frac float64, dim int) int {
	if dim <= 0 {
		return 0
	}
	return min(int(frac*float64(dim)), dim-1)
}

// Step returns the next pointer position when moving from current toward
// target. Each axis moves at most maxDelta and snaps to the target once within
// reach, so there is no overshoot.
func Step(target Target, current Point, screen Size, maxDelta int) Point {
	if maxDelta < 1 {
		maxDelta = 1
	}
	abs := target.Absolute(screen)
	return Point{
		X: approach(abs.X, current.X, maxDelta),
		Y: approach(abs.Y, current.Y, maxDelta),
	}
}

func approach(target, current, delta int) int {
	diff := target - current
	if diff > delta {
		return current + delta
	}
	if diff < -delta {
		return current - delta
	}
	return target
}

func clampUnit(v float64) float64 {
	// NaN compares false both ways and would escape the range.
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
