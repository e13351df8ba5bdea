package mmdp

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOf(v uint64) *uint64 {
	return &v
}

func runGenerator(t *testing.T, cfg GenerationConfig, opts ...Option) []Record {
	t.Helper()
	g, err := NewGenerator(cfg, opts...)
	require.NoError(t, err)
	records, err := g.Run(context.Background())
	require.NoError(t, err)
	return records
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestGeneratorMatchesReferenceFiles(t *testing.T) {
	tests := []struct {
		name   string
		cfg    GenerationConfig
		golden map[string]string // written file -> testdata file
	}{
		{
			name: "weighted random",
			cfg:  GenerationConfig{Variant: WeightedRandom, N: 4, Seed: seedOf(4), Trials: 2},
			golden: map[string]string{
				"II_4_1.txt": "II_4_1.txt",
				"II_4_2.txt": "II_4_2.txt",
			},
		},
		{
			name: "weighted random with header",
			cfg:  GenerationConfig{Variant: WeightedRandom, N: 4, Seed: seedOf(4), Trials: 1, PrintN: true, PrintWeights: true},
			golden: map[string]string{
				"II_4_1.txt": "II_4_1_weighted.txt",
			},
		},
		{
			name: "weighted random last trial",
			cfg:  GenerationConfig{Variant: WeightedRandom, N: 3, Seed: seedOf(3), Trials: 10},
			golden: map[string]string{
				"II_3_10.txt": "II_3_10.txt",
			},
		},
		{
			name: "fixed value",
			cfg:  GenerationConfig{Variant: FixedValue, N: 4, Seed: seedOf(FixedValue.LegacySeed(4)), Trials: 2},
			golden: map[string]string{
				"IV_4_1.txt": "IV_4_1.txt",
				"IV_4_2.txt": "IV_4_2.txt",
			},
		},
		{
			name: "unweighted random",
			cfg:  GenerationConfig{Variant: UnweightedRandom, N: 4, Seed: seedOf(UnweightedRandom.LegacySeed(4)), Trials: 2},
			golden: map[string]string{
				"MDPI1_4.txt": "MDPI1_4.txt",
				"MDPI2_4.txt": "MDPI2_4.txt",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.OutDir = t.TempDir()
			runGenerator(t, tt.cfg)
			for written, golden := range tt.golden {
				want := readFile(t, filepath.Join("testdata", golden))
				got := readFile(t, filepath.Join(tt.cfg.OutDir, written))
				assert.Equal(t, want, got, written)
			}
		})
	}
}

func TestTrialsInvariants(t *testing.T) {
	const n = 30
	for _, v := range []Variant{WeightedRandom, FixedValue, UnweightedRandom} {
		t.Run(v.String(), func(t *testing.T) {
			for _, inst := range Trials(v, n, NewGlibcStream(11), 3) {
				inst.Pairs(func(i, j int, d float64) bool {
					require.Equal(t, d, inst.Dist(j, i))
					switch v {
					case WeightedRandom:
						require.GreaterOrEqual(t, abs(d), 5.0)
						require.Less(t, abs(d), 10.0)
					case FixedValue:
						require.Contains(t, []float64{-10, 0, 10}, d)
					case UnweightedRandom:
						require.Less(t, abs(d), 10.0)
					}
					return true
				})
				if !v.Weighted() {
					require.Nil(t, inst.W)
					continue
				}
				for i := range n {
					w := inst.Weight(i)
					if v == FixedValue {
						require.Equal(t, 1.0, w)
					} else {
						require.GreaterOrEqual(t, w, 1.0)
						require.Less(t, w, 6.0)
					}
				}
			}
		})
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func TestGeneratorDeterministic(t *testing.T) {
	for _, stream := range []StreamKind{StreamGlibc, StreamPCG} {
		cfg := GenerationConfig{Variant: UnweightedRandom, N: 25, Seed: seedOf(99), Stream: stream, Trials: 3}
		cfg.OutDir = t.TempDir()
		a := runGenerator(t, cfg)
		cfg.OutDir = t.TempDir()
		b := runGenerator(t, cfg)
		require.Len(t, a, 3)
		require.Len(t, b, 3)
		for k := range a {
			assert.Equal(t, a[k].SHA256, b[k].SHA256)
		}
		assert.NotEqual(t, a[0].SHA256, a[1].SHA256, "trials continue the stream")
	}
}

func TestGeneratorLineCounts(t *testing.T) {
	const n = 12
	tests := []struct {
		cfg   GenerationConfig
		lines int
	}{
		{GenerationConfig{Variant: WeightedRandom}, n * (n - 1) / 2},
		{GenerationConfig{Variant: WeightedRandom, PrintN: true}, 1 + n*(n-1)/2},
		{GenerationConfig{Variant: WeightedRandom, PrintWeights: true}, n + n*(n-1)/2},
		{GenerationConfig{Variant: FixedValue}, 1 + n + n*(n-1)/2},
		{GenerationConfig{Variant: UnweightedRandom, PrintN: true, PrintWeights: true}, n * (n - 1) / 2},
	}
	for _, tt := range tests {
		cfg := tt.cfg
		cfg.N = n
		cfg.Seed = seedOf(5)
		cfg.Trials = 1
		cfg.OutDir = t.TempDir()
		recs := runGenerator(t, cfg)
		require.Len(t, recs, 1)
		assert.Equal(t, tt.lines, recs[0].Lines, cfg.Variant.String())

		res, err := ReadInstance(recs[0].Path)
		require.NoError(t, err)
		assert.Equal(t, tt.lines, res.Lines)
		assert.Empty(t, res.Duplicates)
	}
}

func TestGeneratorSizeOne(t *testing.T) {
	cfg := GenerationConfig{Variant: WeightedRandom, N: 1, Seed: seedOf(1), Trials: 2, OutDir: t.TempDir()}
	recs := runGenerator(t, cfg)
	require.Len(t, recs, 2)
	for _, rec := range recs {
		assert.Equal(t, 0, rec.Lines)
		assert.Equal(t, int64(0), rec.Bytes)
		assert.Empty(t, readFile(t, rec.Path))
	}
}

func TestNewGeneratorRejectsInvalidInput(t *testing.T) {
	base := GenerationConfig{Variant: WeightedRandom, N: 4, Seed: seedOf(4), Trials: 1}
	tests := []struct {
		name   string
		mutate func(*GenerationConfig)
	}{
		{"zero size", func(c *GenerationConfig) { c.N = 0 }},
		{"negative size", func(c *GenerationConfig) { c.N = -3 }},
		{"no seed", func(c *GenerationConfig) { c.Seed = nil }},
		{"unknown variant", func(c *GenerationConfig) { c.Variant = 7 }},
		{"no trials", func(c *GenerationConfig) { c.Trials = 0 }},
		{"unknown stream", func(c *GenerationConfig) { c.Stream = "lcg" }},
		{"arrow append", func(c *GenerationConfig) { c.Format = FormatArrow; c.Mode = Append }},
		{"parallel shared stream", func(c *GenerationConfig) { c.Workers = 4 }},
		{"wide glibc seed", func(c *GenerationConfig) { c.Seed = seedOf(1 << 40) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			cfg.OutDir = t.TempDir()
			tt.mutate(&cfg)
			_, err := NewGenerator(cfg)
			require.ErrorIs(t, err, ErrInvalidInput)
			entries, err := os.ReadDir(cfg.OutDir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestParseSize(t *testing.T) {
	n, err := ParseSize(" 1000 ")
	require.NoError(t, err)
	assert.Equal(t, 1000, n)

	for _, s := range []string{"", "abc", "0", "-5", "1.5"} {
		_, err := ParseSize(s)
		assert.ErrorIs(t, err, ErrInvalidInput, s)
	}
}

func TestGeneratorAppendAndOverwrite(t *testing.T) {
	dir := t.TempDir()
	cfg := GenerationConfig{Variant: UnweightedRandom, N: 4, Seed: seedOf(10000), Trials: 1, OutDir: dir}
	runGenerator(t, cfg)
	runGenerator(t, cfg)
	path := filepath.Join(dir, "MDPI1_4.txt")
	assert.Equal(t, readFile(t, "testdata/MDPI1_4.txt"), readFile(t, path))

	cfg.Mode = Append
	recs := runGenerator(t, cfg)
	once := readFile(t, "testdata/MDPI1_4.txt")
	assert.Equal(t, once+once, readFile(t, path))
	assert.Equal(t, int64(len(once)), recs[0].Bytes, "digest covers this run only")

	res, err := ReadInstance(path)
	require.NoError(t, err)
	assert.Len(t, res.Duplicates, 6)
	assert.Equal(t, Pair{I: 1, J: 2}, res.Duplicates[0])
}

func TestGeneratorResourceLimit(t *testing.T) {
	dir := t.TempDir()
	cfg := GenerationConfig{
		Variant:     WeightedRandom,
		N:           1000,
		Seed:        seedOf(1000),
		Trials:      1,
		OutDir:      dir,
		MemoryLimit: 1 << 20,
	}
	_, err := NewGenerator(cfg)
	require.ErrorIs(t, err, ErrResourceLimit)
	var rle *ResourceLimitError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, EstimateBytes(1000, true), rle.Required)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// every worker holds its own buffer
	cfg.MemoryLimit = 2 * EstimateBytes(1000, true)
	cfg.IndependentTrials = true
	cfg.Trials = 4
	cfg.Workers = 2
	_, err = NewGenerator(cfg)
	require.NoError(t, err)
	cfg.Workers = 3
	_, err = NewGenerator(cfg)
	require.ErrorIs(t, err, ErrResourceLimit)

	assert.Equal(t, uint64(math.MaxUint64), EstimateBytes(1<<31, true))
}

func TestGeneratorWriteFailure(t *testing.T) {
	cfg := GenerationConfig{
		Variant: WeightedRandom,
		N:       4,
		Seed:    seedOf(4),
		Trials:  3,
		OutDir:  filepath.Join(t.TempDir(), "missing"),
	}
	g, err := NewGenerator(cfg)
	require.NoError(t, err)
	recs, err := g.Run(context.Background())
	require.ErrorIs(t, err, ErrWriteFailure)
	require.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, recs)

	var wfe *WriteFailureError
	require.ErrorAs(t, err, &wfe)
	assert.Equal(t, filepath.Join(cfg.OutDir, "II_4_1.txt"), wfe.Path)
}

type memRecorder struct {
	mu     sync.Mutex
	trials []int
	failAt int
}

func (m *memRecorder) Record(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.Trial == m.failAt {
		return errors.New("recorder full")
	}
	m.trials = append(m.trials, rec.Trial)
	return nil
}

func TestGeneratorIndependentTrials(t *testing.T) {
	cfg := GenerationConfig{
		Variant:           WeightedRandom,
		N:                 40,
		Seed:              seedOf(40),
		Trials:            10,
		IndependentTrials: true,
		PrintWeights:      true,
	}

	cfg.OutDir = t.TempDir()
	serial := runGenerator(t, cfg)

	cfg.Workers = 4
	cfg.OutDir = t.TempDir()
	rec := new(memRecorder)
	parallel := runGenerator(t, cfg, WithRecorder(rec))

	require.Len(t, parallel, 10)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, rec.trials)
	for k := range serial {
		assert.Equal(t, k+1, parallel[k].Trial)
		assert.Equal(t, serial[k].SHA256, parallel[k].SHA256)
		assert.Equal(t, TrialSeed(StreamGlibc, 40, k+1), parallel[k].Seed)
	}
}

func TestGeneratorRecorderFailure(t *testing.T) {
	for _, workers := range []int{1, 3} {
		cfg := GenerationConfig{
			Variant:           FixedValue,
			N:                 6,
			Seed:              seedOf(1),
			Trials:            5,
			OutDir:            t.TempDir(),
			Workers:           workers,
			IndependentTrials: workers > 1,
		}
		g, err := NewGenerator(cfg, WithRecorder(&memRecorder{failAt: 3}))
		require.NoError(t, err)
		recs, err := g.Run(context.Background())
		require.EqualError(t, err, "recorder full")
		require.Len(t, recs, 2)
		assert.Equal(t, 1, recs[0].Trial)
		assert.Equal(t, 2, recs[1].Trial)
	}
}

func TestGeneratorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := GenerationConfig{Variant: UnweightedRandom, N: 4, Seed: seedOf(1), Trials: 3, OutDir: t.TempDir()}
	g, err := NewGenerator(cfg)
	require.NoError(t, err)
	_, err = g.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestGeneratorLegacyFixedN(t *testing.T) {
	cfg := GenerationConfig{Variant: FixedValue, N: 4, LegacyFixedN: true}
	assert.Equal(t, LegacyFixedN, cfg.EffectiveN())
	cfg.Variant = WeightedRandom
	assert.Equal(t, 4, cfg.EffectiveN())
}
