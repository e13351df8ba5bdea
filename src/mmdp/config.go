package mmdp

import (
	"math"
	"strconv"
	"strings"
)

type WriteMode int

const (
	Overwrite WriteMode = iota
	Append
)

func (m WriteMode) String() string {
	if m == Append {
		return "append"
	}
	return "overwrite"
}

type Format string

const (
	FormatText  Format = "text"
	FormatArrow Format = "arrow"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatArrow:
		return f, nil
	case "":
		return FormatText, nil
	}
	return "", invalidInput("format", s, "expected text or arrow")
}

// GenerationConfig holds every parameter of one run. It is validated once by
// NewGenerator and not modified afterwards.
type GenerationConfig struct {
	Variant Variant
	N       int
	// Seed is required. Callers that want the historical behaviour pass
	// Variant.LegacySeed(N).
	Seed   *uint64
	Stream StreamKind
	Trials int
	OutDir string
	Mode   WriteMode
	Format Format

	// PrintN and PrintWeights only affect the weighted-random layout; the
	// fixed-value layout always has both and the unweighted one never does.
	PrintN       bool
	PrintWeights bool

	// LegacyFixedN makes the fixed-value variant ignore N and use
	// LegacyFixedN instead.
	LegacyFixedN bool

	// MemoryLimit caps the bytes held by instance buffers. Zero disables it.
	MemoryLimit uint64

	Workers           int
	IndependentTrials bool
}

// ParseSize parses a command line instance size.
func ParseSize(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, invalidInput("N", strconv.Quote(s), "not an integer")
	}
	if n <= 0 {
		return 0, invalidInput("N", n, "must be a positive integer")
	}
	return n, nil
}

// EffectiveN is the instance size actually generated.
func (c *GenerationConfig) EffectiveN() int {
	if c.LegacyFixedN && c.Variant == FixedValue {
		return LegacyFixedN
	}
	return c.N
}

func (c *GenerationConfig) workers() int {
	if c.Workers < 1 {
		return 1
	}
	return c.Workers
}

func (c *GenerationConfig) Validate() error {
	if !c.Variant.Valid() {
		return invalidInput("variant", int(c.Variant), "unknown variant")
	}
	if c.N <= 0 {
		return invalidInput("N", c.N, "must be a positive integer")
	}
	if c.Seed == nil {
		return invalidInput("seed", "<unset>", "an explicit seed is required")
	}
	if _, err := ParseStreamKind(string(c.Stream)); err != nil {
		return err
	}
	if c.Trials <= 0 {
		return invalidInput("trials", c.Trials, "must be positive")
	}
	if _, err := ParseFormat(string(c.Format)); err != nil {
		return err
	}
	if c.Format == FormatArrow && c.Mode == Append {
		return invalidInput("mode", c.Mode, "arrow files cannot be appended to")
	}
	if c.Workers < 0 {
		return invalidInput("workers", c.Workers, "must not be negative")
	}
	if c.workers() > 1 && !c.IndependentTrials {
		return invalidInput("workers", c.Workers, "parallel trials need independent per-trial streams")
	}
	if c.Stream != StreamPCG && *c.Seed > math.MaxUint32 {
		return invalidInput("seed", *c.Seed, "glibc stream takes a 32-bit seed")
	}
	return nil
}

// CheckResources fails before any allocation when the buffers of the run
// would exceed MemoryLimit.
func (c *GenerationConfig) CheckResources() error {
	if c.MemoryLimit == 0 {
		return nil
	}
	n := c.EffectiveN()
	w := c.workers()
	if w > c.Trials {
		w = c.Trials
	}
	per := EstimateBytes(n, c.Variant.Weighted())
	if per > c.MemoryLimit/uint64(w) {
		required := per * uint64(w)
		if required/uint64(w) != per {
			required = math.MaxUint64
		}
		return &ResourceLimitError{N: n, Workers: w, Required: required, Limit: c.MemoryLimit}
	}
	return nil
}
