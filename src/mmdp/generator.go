package mmdp

import (
	"context"
	"iter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gopkg.in/dnaeon/go-priorityqueue.v1"
)

// Record is what the generator reports for every written trial.
type Record struct {
	Variant Variant
	N       int
	Trial   int
	Seed    uint64
	Stream  StreamKind
	Format  Format
	Mode    WriteMode
	WriteResult
}

// Recorder receives records in trial order.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// Trials yields count instances of variant v drawn one after the other from
// s. The same buffer is refilled for every trial, so callers must not keep the
// instance past the next iteration.
func Trials(v Variant, n int, s Stream, count int) iter.Seq2[int, *Instance] {
	return func(yield func(int, *Instance) bool) {
		inst := NewInstance(n, v.Weighted())
		for t := 1; t <= count; t++ {
			v.Fill(inst, s)
			if !yield(t, inst) {
				return
			}
		}
	}
}

type Generator struct {
	cfg      GenerationConfig
	writer   *Writer
	recorder Recorder
}

type Option func(*Generator)

func WithRecorder(r Recorder) Option {
	return func(g *Generator) {
		g.recorder = r
	}
}

// NewGenerator validates cfg and checks the memory ceiling; nothing is
// allocated when either fails.
func NewGenerator(cfg GenerationConfig, opts ...Option) (*Generator, error) {
	if cfg.Stream == "" {
		cfg.Stream = StreamGlibc
	}
	if cfg.Format == "" {
		cfg.Format = FormatText
	}
	if cfg.OutDir == "" {
		cfg.OutDir = "."
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.CheckResources(); err != nil {
		return nil, err
	}
	g := &Generator{
		cfg:    cfg,
		writer: NewWriter(&cfg),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *Generator) Config() GenerationConfig {
	return g.cfg
}

// Run generates and writes every trial. Records are returned in trial order.
// The first failure aborts the run.
func (g *Generator) Run(ctx context.Context) ([]Record, error) {
	n := g.cfg.EffectiveN()
	log.Info().Str("layer", "GEN").
		Str("variant", g.cfg.Variant.String()).
		Int("n", n).
		Uint64("seed", *g.cfg.Seed).
		Str("stream", string(g.cfg.Stream)).
		Int("trials", g.cfg.Trials).
		Str("buffer", humanize.IBytes(EstimateBytes(n, g.cfg.Variant.Weighted()))).
		Msg("Start generation")

	start := time.Now()
	var (
		records []Record
		err     error
	)
	if g.cfg.IndependentTrials {
		records, err = g.runIndependent(ctx, n)
	} else {
		records, err = g.runSequential(ctx, n)
	}
	if err != nil {
		return records, err
	}
	log.Info().Str("layer", "GEN").Int("files", len(records)).Dur("elapsed", time.Since(start)).Msg("Generation finished")
	return records, nil
}

// runSequential shares one stream across trials, so trial t continues where
// trial t-1 stopped drawing.
func (g *Generator) runSequential(ctx context.Context, n int) ([]Record, error) {
	seed := *g.cfg.Seed
	stream, err := NewStream(g.cfg.Stream, seed)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, g.cfg.Trials)
	for trial, inst := range Trials(g.cfg.Variant, n, stream, g.cfg.Trials) {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		rec, err := g.write(inst, trial, seed)
		if err != nil {
			return records, err
		}
		if err := g.emit(ctx, rec); err != nil {
			return records, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// runIndependent seeds every trial on its own, which lets trials run on
// separate workers.
func (g *Generator) runIndependent(ctx context.Context, n int) ([]Record, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.workers())

	done := make(chan Record)
	collected := make(chan []Record, 1)
	var emitErr error
	go func() {
		recs, err := g.collect(ctx, done)
		if err != nil {
			emitErr = err
			cancel()
		}
		collected <- recs
	}()

	for trial := 1; trial <= g.cfg.Trials; trial++ {
		eg.Go(func() error {
			if err := ectx.Err(); err != nil {
				return err
			}
			seed := TrialSeed(g.cfg.Stream, *g.cfg.Seed, trial)
			stream, err := NewStream(g.cfg.Stream, seed)
			if err != nil {
				return err
			}
			inst := NewInstance(n, g.cfg.Variant.Weighted())
			g.cfg.Variant.Fill(inst, stream)
			rec, err := g.write(inst, trial, seed)
			if err != nil {
				return err
			}
			select {
			case done <- rec:
				return nil
			case <-ectx.Done():
				return ectx.Err()
			}
		})
	}
	err := eg.Wait()
	close(done)
	records := <-collected
	if emitErr != nil {
		return records, emitErr
	}
	return records, err
}

// collect re-orders records arriving from workers so that they are emitted
// in trial order. After a failed emit it keeps draining without emitting.
func (g *Generator) collect(ctx context.Context, in <-chan Record) ([]Record, error) {
	pending := priorityqueue.New[int, int64](priorityqueue.MinHeap)
	byTrial := make(map[int]Record)
	records := make([]Record, 0, g.cfg.Trials)
	next := 1
	var firstErr error
	for rec := range in {
		byTrial[rec.Trial] = rec
		pending.Put(rec.Trial, int64(rec.Trial))
		for pending.Len() > 0 {
			item := pending.Get()
			if item.Value != next {
				pending.Put(item.Value, int64(item.Value))
				break
			}
			r := byTrial[next]
			delete(byTrial, next)
			if firstErr == nil {
				firstErr = g.emit(ctx, r)
			}
			if firstErr == nil {
				records = append(records, r)
			}
			next++
		}
	}
	return records, firstErr
}

func (g *Generator) write(inst *Instance, trial int, seed uint64) (Record, error) {
	res, err := g.writer.Write(inst, trial)
	if err != nil {
		return Record{}, err
	}
	return Record{
		Variant:     g.cfg.Variant,
		N:           inst.N,
		Trial:       trial,
		Seed:        seed,
		Stream:      g.cfg.Stream,
		Format:      g.cfg.Format,
		Mode:        g.cfg.Mode,
		WriteResult: res,
	}, nil
}

func (g *Generator) emit(ctx context.Context, rec Record) error {
	log.Debug().Str("layer", "WRITE").
		Int("trial", rec.Trial).
		Str("path", rec.Path).
		Int("lines", rec.Lines).
		Str("size", humanize.IBytes(uint64(rec.Bytes))).
		Msg("Instance written")
	if g.recorder == nil {
		return nil
	}
	return g.recorder.Record(ctx, rec)
}
