package main

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"mmdp_instances/src/mmdp"
)

type inspectReport struct {
	Path       string       `json:"path"`
	Lines      int          `json:"lines"`
	HeaderN    int          `json:"header_n,omitempty"`
	Duplicates int          `json:"duplicate_pairs"`
	Summary    mmdp.Summary `json:"summary"`
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>...",
		Short: "Print statistics of instance files",
		Long: `Inspect reads instance files in any of the three text layouts and prints
the size, pair and weight statistics. Pairs listed more than once, as left
behind by runs in append mode, are reported. Files declaring an instance
larger than the memory limit are rejected.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			limit, err := cfg.MemoryLimitBytes()
			if err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")

			reports := make([]inspectReport, 0, len(args))
			for _, p := range args {
				res, err := mmdp.ReadInstance(p, mmdp.WithMemoryLimit(limit))
				if err != nil {
					return fmt.Errorf("instance %q: %w", p, err)
				}
				if len(res.Duplicates) > 0 {
					log.Warn().Str("layer", "MAIN").Str("path", p).Int("duplicates", len(res.Duplicates)).
						Msg("File repeats pairs, it was probably written in append mode")
				}
				reports = append(reports, inspectReport{
					Path:       p,
					Lines:      res.Lines,
					HeaderN:    res.HeaderN,
					Duplicates: len(res.Duplicates),
					Summary:    mmdp.Summarize(res.Instance),
				})
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(reports)
			}
			for _, r := range reports {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%d lines, %d duplicate pairs)\n%v\n", r.Path, r.Lines, r.Duplicates, r.Summary)
			}
			return nil
		},
	}
}
