package mmdp

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Instance is one generated problem input: the pairwise dissimilarities D and,
// for weighted sets, the node weights W. Both are nil when N is 0.
type Instance struct {
	N int
	D *mat.SymDense
	W *mat.VecDense
}

func NewInstance(n int, weighted bool) *Instance {
	inst := &Instance{N: n}
	if n == 0 {
		return inst
	}
	inst.D = mat.NewSymDense(n, nil)
	if weighted {
		inst.W = mat.NewVecDense(n, nil)
	}
	return inst
}

// Dist returns D[i][j] for 0-based indices.
func (inst *Instance) Dist(i, j int) float64 {
	return inst.D.At(i, j)
}

func (inst *Instance) Weight(i int) float64 {
	return inst.W.AtVec(i)
}

func (inst *Instance) Weighted() bool {
	return inst.W != nil
}

// NumPairs is the number of unordered pairs i<j.
func (inst *Instance) NumPairs() int {
	return inst.N * (inst.N - 1) / 2
}

// Pairs calls fn for every pair i<j in row-major order until fn returns false.
func (inst *Instance) Pairs(fn func(i, j int, d float64) bool) {
	for i := 0; i < inst.N; i++ {
		for j := i + 1; j < inst.N; j++ {
			if !fn(i, j, inst.D.At(i, j)) {
				return
			}
		}
	}
}

// EstimateBytes is the memory held by one instance buffer of size n. It
// saturates instead of overflowing.
func EstimateBytes(n int, weighted bool) uint64 {
	if n > 1<<30 {
		return math.MaxUint64
	}
	b := 8 * uint64(n) * uint64(n)
	if weighted {
		b += 8 * uint64(n)
	}
	return b
}

func (inst *Instance) String() string {
	s := new(strings.Builder)
	fmt.Fprintf(s, "N. nodes: %d\n", inst.N)
	fmt.Fprintf(s, "N. pairs: %d\n", inst.NumPairs())
	if inst.Weighted() {
		s.WriteString("Weights: [ ")
		for i := range inst.N {
			fmt.Fprintf(s, "%.2f ", inst.Weight(i))
		}
		s.WriteString("]\n")
	}
	inst.Pairs(func(i, j int, d float64) bool {
		fmt.Fprintf(s, "(%d, %d)\t%.2f\n", i+1, j+1, d)
		return true
	})
	return s.String()
}
