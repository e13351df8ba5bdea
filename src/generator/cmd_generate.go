package main

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"mmdp_instances/src/catalog"
	"mmdp_instances/src/config"
	"mmdp_instances/src/mmdp"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <N>",
		Short: "Generate the benchmark instances of size N",
		Long: `Generate writes one file per trial into the output directory, named after
the benchmark set: II_{N}_{t}.txt, IV_{N}_{t}.txt or MDPI{t}_{N}.txt.

Without --seed the historical seed of the set is used: N for II,
1000 (N=3000) or 10000 for MMDPI, and glibc's default state for IV.`,
		Args: cobra.ExactArgs(1),
		RunE: runGenerate,
	}

	cmd.Flags().String("variant", "II", "Benchmark set: II, IV or MMDPI")
	cmd.Flags().Uint64("seed", 0, "Seed of the random stream (default: the variant's historical seed)")
	cmd.Flags().String("stream", string(mmdp.StreamGlibc), "Random stream: glibc or pcg")
	cmd.Flags().Int("trials", mmdp.DefaultTrials, "Number of instances to generate")
	cmd.Flags().String("out", ".", "Output directory")
	cmd.Flags().Bool("append", false, "Append to existing files instead of overwriting them")
	cmd.Flags().String("format", string(mmdp.FormatText), "Output format: text or arrow")
	cmd.Flags().Bool("print-n", false, "II only: write the size line")
	cmd.Flags().Bool("print-weights", false, "II only: write the node weights")
	cmd.Flags().Bool("legacy-n", false, "IV only: ignore N and generate size 5000")
	cmd.Flags().String("memory-limit", "2GiB", "Refuse runs whose matrices exceed this size (0 disables)")
	cmd.Flags().Int("workers", 1, "Trials generated in parallel (needs --independent-trials)")
	cmd.Flags().Bool("independent-trials", false, "Seed every trial on its own instead of one shared stream")
	cmd.Flags().String("catalog", "", "SQLite catalog recording every written file")

	return cmd
}

// runGenerate writes the instances of size args[0]. It also serves the root
// command, where only the configuration file and environment apply.
func runGenerate(cmd *cobra.Command, args []string) error {
	n, err := mmdp.ParseSize(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyGenerateFlags(cmd, cfg)

	gen, err := cfg.GenerationFor(n)
	if err != nil {
		return err
	}
	if cfg.Generation.Seed == nil {
		log.Info().Str("layer", "MAIN").Uint64("seed", *gen.Seed).Msg("Using the historical seed of the variant")
	}

	var opts []mmdp.Option
	if cfg.Catalog.Path != "" {
		cat, err := catalog.Open(cmd.Context(), cfg.Catalog.Path)
		if err != nil {
			return err
		}
		defer cat.Close()
		opts = append(opts, mmdp.WithRecorder(cat))
	}

	g, err := mmdp.NewGenerator(gen, opts...)
	if err != nil {
		return err
	}
	records, err := g.Run(cmd.Context())
	if err != nil {
		return err
	}

	jsonOut, _ := cmd.Flags().GetBool("json")
	if jsonOut {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(generateOutput(gen, records))
	}
	for _, rec := range records {
		fmt.Fprintln(cmd.OutOrStdout(), rec.Path)
	}
	return nil
}

// applyGenerateFlags overrides cfg with the flags given on the command line.
func applyGenerateFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("variant") {
		cfg.Generation.Variant, _ = flags.GetString("variant")
	}
	if flags.Changed("seed") {
		seed, _ := flags.GetUint64("seed")
		cfg.Generation.Seed = &seed
	}
	if flags.Changed("stream") {
		cfg.Generation.Stream, _ = flags.GetString("stream")
	}
	if flags.Changed("trials") {
		cfg.Generation.Trials, _ = flags.GetInt("trials")
	}
	if flags.Changed("legacy-n") {
		cfg.Generation.LegacyFixedN, _ = flags.GetBool("legacy-n")
	}
	if flags.Changed("memory-limit") {
		cfg.Generation.MemoryLimit, _ = flags.GetString("memory-limit")
	}
	if flags.Changed("workers") {
		cfg.Generation.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("independent-trials") {
		cfg.Generation.IndependentTrials, _ = flags.GetBool("independent-trials")
	}
	if flags.Changed("out") {
		cfg.Output.Dir, _ = flags.GetString("out")
	}
	if flags.Changed("append") {
		cfg.Output.Append, _ = flags.GetBool("append")
	}
	if flags.Changed("format") {
		cfg.Output.Format, _ = flags.GetString("format")
	}
	if flags.Changed("print-n") {
		cfg.Output.PrintN, _ = flags.GetBool("print-n")
	}
	if flags.Changed("print-weights") {
		cfg.Output.PrintWeights, _ = flags.GetBool("print-weights")
	}
	if flags.Changed("catalog") {
		cfg.Catalog.Path, _ = flags.GetString("catalog")
	}
}

type generatedFile struct {
	Trial       int    `json:"trial"`
	Path        string `json:"path"`
	WeightsPath string `json:"weights_path,omitempty"`
	Seed        uint64 `json:"seed"`
	Lines       int    `json:"lines"`
	Bytes       int64  `json:"bytes"`
	SHA256      string `json:"sha256"`
}

func generateOutput(gen mmdp.GenerationConfig, records []mmdp.Record) map[string]any {
	files := make([]generatedFile, 0, len(records))
	for _, rec := range records {
		files = append(files, generatedFile{
			Trial:       rec.Trial,
			Path:        rec.Path,
			WeightsPath: rec.WeightsPath,
			Seed:        rec.Seed,
			Lines:       rec.Lines,
			Bytes:       rec.Bytes,
			SHA256:      rec.SHA256,
		})
	}
	return map[string]any{
		"variant": gen.Variant.String(),
		"n":       gen.EffectiveN(),
		"seed":    *gen.Seed,
		"stream":  string(gen.Stream),
		"mode":    gen.Mode.String(),
		"files":   files,
	}
}
