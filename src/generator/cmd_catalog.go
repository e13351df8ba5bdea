package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mmdp_instances/src/catalog"
	"mmdp_instances/src/mmdp"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the instance files recorded in a catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("catalog") {
				cfg.Catalog.Path, _ = cmd.Flags().GetString("catalog")
			}
			if cfg.Catalog.Path == "" {
				return fmt.Errorf("no catalog configured, pass --catalog")
			}

			var filter catalog.Filter
			if v, _ := cmd.Flags().GetString("variant"); v != "" {
				variant, err := mmdp.ParseVariant(v)
				if err != nil {
					return err
				}
				filter.Variant = variant.String()
			}
			filter.N, _ = cmd.Flags().GetInt("n")

			cat, err := catalog.Open(cmd.Context(), cfg.Catalog.Path)
			if err != nil {
				return err
			}
			defer cat.Close()

			entries, err := cat.List(cmd.Context(), filter)
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(entries)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VARIANT\tN\tTRIAL\tSEED\tSTREAM\tLINES\tPATH")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%d\t%s\n", e.Variant, e.N, e.Trial, e.Seed, e.Stream, e.Lines, e.Path)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().String("catalog", "", "SQLite catalog path")
	cmd.Flags().String("variant", "", "Only list this benchmark set")
	cmd.Flags().Int("n", 0, "Only list this instance size")
	return cmd
}
