package stats

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPercentile(t *testing.T) {
	cases := []struct {
		name   string
		sorted []float64
		q      float64
		want   float64
	}{
		{"empty", nil, 0.9, 0},
		{"single", []float64{42}, 0.9, 42},
		{"median interpolates", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"p90 of 1..10", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.90, 9.1},
		{"p99 of 1..10", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.99, 9.91},
		{"q=0 is min", []float64{5, 7, 9}, 0, 5},
		{"q=1 is max", []float64{5, 7, 9}, 1, 9},
		{"exact index no interpolation", []float64{10, 20, 30, 40, 50}, 0.25, 20},
	}
	for _, c := range cases {
		if got := Percentile(c.sorted, c.q); !almostEqual(got, c.want) {
			t.Fatalf("%s: Percentile(%v, %v)=%v want %v", c.name, c.sorted, c.q, got, c.want)
		}
	}
}

func TestPercentile_Deterministic(t *testing.T) {
	s := []float64{3, 14, 15, 92, 65, 35}
	SortSamples(s)
	first := Percentile(s, 0.9)
	for i := 0; i < 10; i++ {
		if got := Percentile(s, 0.9); got != first {
			t.Fatalf("non-deterministic percentile: %v then %v", first, got)
		}
	}
}

func TestMean(t *testing.T) {
	if got := Mean(nil); got != 0 {
		t.Fatalf("Mean(nil)=%v want 0", got)
	}
	if got := Mean([]float64{100, 200, 300}); got != 200 {
		t.Fatalf("Mean=%v want 200", got)
	}
}
