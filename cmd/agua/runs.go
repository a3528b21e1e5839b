package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jcm204/APD-Proyecto-Agua-Cultivos/store"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent enrichment runs from the cache database",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.CacheDBPath == "" {
			return fmt.Errorf("no cache database configured (set cache_db_path or AGUA_CACHE_DB)")
		}
		s, err := store.New(cfg.CacheDBPath)
		if err != nil {
			return fmt.Errorf("opening cache store: %w", err)
		}
		defer s.Close()

		runs, err := s.ListRuns(cmd.Context(), runsLimit)
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "STARTED\tFACTS\tPLACES\tCROPS\tQUERIES\tCACHE HITS\tINTERRUPTED\tID")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%v\t%s\n",
				r.StartedAt, r.GraphFacts, r.Places, r.Crops, r.Queries, r.CacheHits, r.Interrupted, r.ID)
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		counts, err := s.CountResolutions(cmd.Context())
		if err != nil {
			return fmt.Errorf("counting cached resolutions: %w", err)
		}
		fmt.Printf("\nCached resolutions: %d matched, %d not found\n",
			counts["matched"], counts["not_found"])
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum runs to list")
	rootCmd.AddCommand(runsCmd)
}
