// Package mathutil holds the numeric helpers shared across domains.
package mathutil

// ClampInt bounds value to [lo, hi].
func ClampInt(value, lo, hi int) int {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// ClampLimit normalizes a caller-supplied result limit: non-positive
// values take the default, values past the upper bound take the bound.
func ClampLimit(limit, def, upper int) int {
	if limit <= 0 {
		return def
	}
	if limit > upper {
		return upper
	}
	return limit
}
