package mmdp

import (
	"math"
	"strings"

	"golang.org/x/exp/rand"
)

// Stream is the source of every draw made by the generator. Int31 returns a
// non-negative value in [0, 2^31-1], the same range as C's rand().
type Stream interface {
	Int31() int32
}

type StreamKind string

const (
	StreamGlibc StreamKind = "glibc"
	StreamPCG   StreamKind = "pcg"
)

func ParseStreamKind(s string) (StreamKind, error) {
	switch k := StreamKind(strings.ToLower(s)); k {
	case StreamGlibc, StreamPCG:
		return k, nil
	case "":
		return StreamGlibc, nil
	}
	return "", invalidInput("stream", s, "expected glibc or pcg")
}

// NewStream returns a stream of the given kind positioned at the start of the
// sequence for seed.
func NewStream(kind StreamKind, seed uint64) (Stream, error) {
	switch kind {
	case StreamGlibc, "":
		if seed > math.MaxUint32 {
			return nil, invalidInput("seed", seed, "glibc stream takes a 32-bit seed")
		}
		return NewGlibcStream(uint32(seed)), nil
	case StreamPCG:
		return rand.New(rand.NewSource(seed)), nil
	}
	return nil, invalidInput("stream", kind, "expected glibc or pcg")
}

const (
	glibcDegree     = 31
	glibcSeparation = 3
	glibcDiscard    = 10 * glibcDegree
)

// GlibcStream reproduces glibc's srand/rand (the TYPE_3 additive feedback
// generator) so that instances match the published benchmark files.
type GlibcStream struct {
	state [glibcDegree]int32
	front int
	rear  int
}

func NewGlibcStream(seed uint32) *GlibcStream {
	g := new(GlibcStream)
	g.Seed(seed)
	return g
}

// Seed behaves like srand: seed 0 is treated as 1.
func (g *GlibcStream) Seed(seed uint32) {
	if seed == 0 {
		seed = 1
	}
	g.state[0] = int32(seed)
	word := int32(seed)
	for i := 1; i < glibcDegree; i++ {
		hi := word / 127773
		lo := word % 127773
		word = 16807*lo - 2836*hi
		if word < 0 {
			word += math.MaxInt32
		}
		g.state[i] = word
	}
	g.front = glibcSeparation
	g.rear = 0
	for range glibcDiscard {
		g.Int31()
	}
}

func (g *GlibcStream) Int31() int32 {
	v := uint32(g.state[g.front]) + uint32(g.state[g.rear])
	g.state[g.front] = int32(v)
	g.front++
	if g.front >= glibcDegree {
		g.front = 0
		g.rear++
	} else {
		g.rear++
		if g.rear >= glibcDegree {
			g.rear = 0
		}
	}
	return int32(v >> 1)
}

// TrialSeed derives the seed of an independent per-trial stream with the
// SplitMix64 finaliser. The result fits the stream kind's seed width.
func TrialSeed(kind StreamKind, seed uint64, trial int) uint64 {
	z := seed + uint64(trial)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	z ^= z >> 31
	if kind == StreamPCG {
		return z
	}
	return z & math.MaxUint32
}
