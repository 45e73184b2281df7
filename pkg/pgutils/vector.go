// Package pgutils holds the small pieces of Postgres plumbing the
// repositories share: pgvector literal formatting and error-code checks.
package pgutils

import "strconv"

// FormatVector renders a float32 slice as a pgvector literal, e.g.
// "[0.1,0.2,0.3]". Values keep their shortest exact float32 form so the
// round trip through the database is lossless.
func FormatVector(v []float32) string {
	if len(v) == 0 {
		return "[]"
	}

	buf := make([]byte, 0, len(v)*12+2)
	buf = append(buf, '[')
	for i, f := range v {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendFloat(buf, float64(f), 'f', -1, 32)
	}
	buf = append(buf, ']')
	return string(buf)
}
