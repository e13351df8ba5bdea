package mmdp

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats are descriptive statistics of a set of values.
type Stats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

type Summary struct {
	N        int    `json:"n"`
	Pairs    Stats  `json:"pairs"`
	Weights  *Stats `json:"weights,omitempty"`
	Negative int    `json:"negative_pairs"`
	Zero     int    `json:"zero_pairs"`
}

func describe(xs []float64) Stats {
	s := Stats{Count: len(xs)}
	if len(xs) == 0 {
		return s
	}
	s.Min = floats.Min(xs)
	s.Max = floats.Max(xs)
	if len(xs) == 1 {
		s.Mean = xs[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(xs, nil)
	return s
}

// Summarize computes statistics over the pair values and weights of inst.
func Summarize(inst *Instance) Summary {
	sum := Summary{N: inst.N}
	ds := make([]float64, 0, inst.NumPairs())
	inst.Pairs(func(_, _ int, d float64) bool {
		ds = append(ds, d)
		switch {
		case d < 0:
			sum.Negative++
		case d == 0:
			sum.Zero++
		}
		return true
	})
	sum.Pairs = describe(ds)
	if inst.Weighted() {
		ws := describe(inst.W.RawVector().Data)
		sum.Weights = &ws
	}
	return sum
}

func (s Summary) String() string {
	b := new(strings.Builder)
	fmt.Fprintf(b, "N. nodes: %d\n", s.N)
	fmt.Fprintf(b, "Pairs: %d (negative %d, zero %d)\n", s.Pairs.Count, s.Negative, s.Zero)
	fmt.Fprintf(b, "  min %.2f  max %.2f  mean %.4f  std %.4f\n", s.Pairs.Min, s.Pairs.Max, s.Pairs.Mean, s.Pairs.StdDev)
	if s.Weights != nil {
		fmt.Fprintf(b, "Weights: %d\n", s.Weights.Count)
		fmt.Fprintf(b, "  min %.2f  max %.2f  mean %.4f  std %.4f\n", s.Weights.Min, s.Weights.Max, s.Weights.Mean, s.Weights.StdDev)
	}
	return b.String()
}
