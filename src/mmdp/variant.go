package mmdp

import (
	"fmt"
	"strings"
)

// Variant selects one of the three generation policies of the benchmark sets.
type Variant int

const (
	WeightedRandom   Variant = iota + 1 // II
	FixedValue                          // IV
	UnweightedRandom                    // MMDPI
)

// File name patterns of each benchmark set. The argument order differs per
// set and is part of the naming scheme.
const (
	weightedFileFormat   = "II_%d_%d.txt"  // n, trial
	fixedFileFormat      = "IV_%d_%d.txt"  // n, trial
	unweightedFileFormat = "MDPI%d_%d.txt" // trial, n
)

const (
	sizeLineFormat       = "%d\n"
	weightLineFormat     = "%d   %5.2f\n"
	pairLineFormat       = "%d   %d   %5.2f\n"
	paddedPairLineFormat = "%d   %d   %5.2f \n"
)

const (
	// LegacyFixedN is the size the fixed-value generator always used,
	// whatever was passed on the command line.
	LegacyFixedN = 5000

	// DefaultTrials is the number of instances produced per invocation.
	DefaultTrials = 10

	magnitudeSteps = 30000
	weightSpread   = 5.0
)

type layout struct {
	tag        string
	fileFormat string
	trialFirst bool
	pairFormat string
	weighted   bool
	// header and weight lines: always, never, or only when the caller asks
	header headerPolicy
}

type headerPolicy int

const (
	headerNever headerPolicy = iota
	headerAlways
	headerOptional
)

var layouts = map[Variant]layout{
	WeightedRandom: {
		tag:        "II",
		fileFormat: weightedFileFormat,
		pairFormat: pairLineFormat,
		weighted:   true,
		header:     headerOptional,
	},
	FixedValue: {
		tag:        "IV",
		fileFormat: fixedFileFormat,
		pairFormat: pairLineFormat,
		weighted:   true,
		header:     headerAlways,
	},
	UnweightedRandom: {
		tag:        "MDPI",
		fileFormat: unweightedFileFormat,
		trialFirst: true,
		pairFormat: paddedPairLineFormat,
		header:     headerNever,
	},
}

func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(s) {
	case "ii", "weighted", "weighted-random":
		return WeightedRandom, nil
	case "iv", "fixed", "fixed-value":
		return FixedValue, nil
	case "mmdpi", "mdpi", "unweighted", "unweighted-random":
		return UnweightedRandom, nil
	}
	return 0, invalidInput("variant", s, "expected II, IV or MMDPI")
}

func (v Variant) Valid() bool {
	_, ok := layouts[v]
	return ok
}

// Tag is the literal prefix used in file names.
func (v Variant) Tag() string {
	return layouts[v].tag
}

func (v Variant) String() string {
	switch v {
	case WeightedRandom:
		return "II"
	case FixedValue:
		return "IV"
	case UnweightedRandom:
		return "MMDPI"
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

// Weighted reports whether instances of v carry a node weight vector.
func (v Variant) Weighted() bool {
	return layouts[v].weighted
}

// FileName returns the base name of the file holding trial t of size n.
func (v Variant) FileName(n, trial int) string {
	l := layouts[v]
	if l.trialFirst {
		return fmt.Sprintf(l.fileFormat, trial, n)
	}
	return fmt.Sprintf(l.fileFormat, n, trial)
}

// LegacySeed is the seed the published set of v was generated with for size
// n. The fixed-value set was generated without seeding, which leaves glibc in
// the state of srand(1).
func (v Variant) LegacySeed(n int) uint64 {
	switch v {
	case WeightedRandom:
		return uint64(n)
	case UnweightedRandom:
		if n == 3000 {
			return 1000
		}
		return 10000
	}
	return 1
}

// Fill overwrites inst with one trial drawn from s. The draw order is part of
// the contract: pairs in row-major order, then weights.
func (v Variant) Fill(inst *Instance, s Stream) {
	switch v {
	case WeightedRandom:
		fillWeighted(inst, s)
	case FixedValue:
		fillFixed(inst, s)
	case UnweightedRandom:
		fillUnweighted(inst, s)
	default:
		panic(fmt.Sprintf("mmdp: fill with unknown variant %d", int(v)))
	}
}

func drawSign(s Stream) float64 {
	if s.Int31()%2 != 0 {
		return 1
	}
	return -1
}

func drawFraction(s Stream) float64 {
	return float64(s.Int31()%magnitudeSteps) / magnitudeSteps
}

// Explicit float64 conversions keep each product rounded on its own so the
// compiler cannot fuse it into a multiply-add.

func fillWeighted(inst *Instance, s Stream) {
	for i := 0; i < inst.N; i++ {
		for j := i + 1; j < inst.N; j++ {
			sign := drawSign(s)
			d := float64(drawFraction(s)*5.0) + 5.0
			inst.D.SetSym(i, j, sign*d)
		}
	}
	for i := 0; i < inst.N; i++ {
		w := float64(weightSpread*float64(s.Int31()%magnitudeSteps)) / magnitudeSteps
		inst.W.SetVec(i, 1+w)
	}
}

func fillFixed(inst *Instance, s Stream) {
	for i := 0; i < inst.N; i++ {
		for j := i + 1; j < inst.N; j++ {
			inst.D.SetSym(i, j, float64(-1+s.Int31()%3)*10.0)
		}
	}
	for i := 0; i < inst.N; i++ {
		inst.W.SetVec(i, 1.0)
	}
}

func fillUnweighted(inst *Instance, s Stream) {
	for i := 0; i < inst.N; i++ {
		for j := i + 1; j < inst.N; j++ {
			sign := drawSign(s)
			d := float64(sign*drawFraction(s)) * 10.0
			inst.D.SetSym(i, j, d)
		}
	}
}
