package mathutil

import "testing"

func TestClampInt(t *testing.T) {
	tests := []struct {
		name          string
		value, lo, hi int
		want          int
	}{
		{"within range", 30, 1, 120, 30},
		{"below lower bound", 0, 1, 120, 1},
		{"above upper bound", 600, 1, 120, 120},
		{"at lower bound", 1, 1, 120, 1},
		{"at upper bound", 120, 1, 120, 120},
		{"negative value", -5, 1, 120, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampInt(tt.value, tt.lo, tt.hi); got != tt.want {
				t.Errorf("ClampInt(%d, %d, %d) = %d, want %d", tt.value, tt.lo, tt.hi, got, tt.want)
			}
		})
	}
}

func TestClampLimit(t *testing.T) {
	const (
		def   = 10
		upper = 100
	)

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"zero takes default", 0, def},
		{"negative takes default", -3, def},
		{"ordinary value passes through", 25, 25},
		{"upper bound passes through", upper, upper},
		{"past upper bound is capped", 5000, upper},
		{"one is valid", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampLimit(tt.limit, def, upper); got != tt.want {
				t.Errorf("ClampLimit(%d, %d, %d) = %d, want %d", tt.limit, def, upper, got, tt.want)
			}
		})
	}
}
