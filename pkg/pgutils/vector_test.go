package pgutils

import (
	"strings"
	"testing"
)

func TestFormatVector(t *testing.T) {
	tests := []struct {
		name string
		in   []float32
		want string
	}{
		{
			name: "nil slice",
			in:   nil,
			want: "[]",
		},
		{
			name: "empty slice",
			in:   []float32{},
			want: "[]",
		},
		{
			name: "single value",
			in:   []float32{0.5},
			want: "[0.5]",
		},
		{
			name: "typical embedding prefix",
			in:   []float32{0.1, 0.2, 0.3},
			want: "[0.1,0.2,0.3]",
		},
		{
			name: "negative and zero",
			in:   []float32{-0.25, 0, 1},
			want: "[-0.25,0,1]",
		},
		{
			name: "whole numbers stay short",
			in:   []float32{1, 2, 3},
			want: "[1,2,3]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatVector(tt.in); got != tt.want {
				t.Errorf("FormatVector(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatVectorShortestForm(t *testing.T) {
	// 0.1 has no exact float32 form; the literal must still read back as
	// the same float32, not as a truncated decimal.
	got := FormatVector([]float32{0.1})
	if got != "[0.1]" {
		t.Errorf("FormatVector([0.1]) = %q, want [0.1]", got)
	}
}

func TestFormatVectorFullWidth(t *testing.T) {
	v := make([]float32, 768)
	for i := range v {
		v[i] = float32(i) / 768
	}

	got := FormatVector(v)
	if !strings.HasPrefix(got, "[0,") {
		t.Errorf("literal should start with [0, got %q", got[:8])
	}
	if !strings.HasSuffix(got, "]") {
		t.Error("literal should end with ]")
	}
	if n := strings.Count(got, ","); n != 767 {
		t.Errorf("literal has %d commas, want 767", n)
	}
}
