package utils

import (
	"testing"
)

func TestRandInt(t *testing.T) {
	if got := RandInt(0); got != 0 {
		t.Errorf("RandInt(0) = %d, want 0", got)
	}
	if got := RandInt(-5); got != 0 {
		t.Errorf("RandInt(-5) = %d, want 0", got)
	}
	for i := 0; i < 100; i++ {
		if got := RandInt(10); got < 0 || got >= 10 {
			t.Fatalf("RandInt(10) = %d, out of range", got)
		}
	}
}

func TestSampleIndices(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		k       int
		wantLen int
	}{
		{"subset", 10, 3, 3},
		{"all of them", 5, 5, 5},
		{"k exceeds n", 3, 10, 3},
		{"zero k", 10, 0, 0},
		{"empty pool", 0, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SampleIndices(tt.n, tt.k)
			if len(got) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(got), tt.wantLen)
			}

			seen := map[int]bool{}
			for _, idx := range got {
				if idx < 0 || idx >= tt.n {
					t.Errorf("index %d out of range [0, %d)", idx, tt.n)
				}
				if seen[idx] {
					t.Errorf("duplicate index %d", idx)
				}
				seen[idx] = true
			}
		})
	}
}
