package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	agua "github.com/jcm204/APD-Proyecto-Agua-Cultivos"
)

var (
	enrichGraph       string
	enrichOut         string
	enrichMaxPlaces   int
	enrichMaxCrops    int
	enrichConcurrency int
	enrichTimeout     time.Duration
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Resolve places and crops against Wikidata and link the matches",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := agua.New(cfg)
		if err != nil {
			return err
		}
		defer p.Close()

		if err := p.ImportFile(enrichGraph); err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()
		if enrichTimeout > 0 {
			var tcancel context.CancelFunc
			ctx, tcancel = context.WithTimeout(ctx, enrichTimeout)
			defer tcancel()
		}

		var opts []agua.EnrichOption
		if enrichMaxPlaces > 0 {
			opts = append(opts, agua.WithMaxPlaces(enrichMaxPlaces))
		}
		if enrichMaxCrops > 0 {
			opts = append(opts, agua.WithMaxCrops(enrichMaxCrops))
		}
		if enrichConcurrency > 0 {
			opts = append(opts, agua.WithConcurrency(enrichConcurrency))
		}

		sum, err := p.Enrich(ctx, opts...)
		if err != nil {
			return err
		}

		out := enrichOut
		if out == "" {
			out = withSuffix(enrichGraph, "_enriquecido")
		}
		if err := p.ExportFile(out); err != nil {
			return err
		}

		data, err := json.MarshalIndent(sum, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		fmt.Printf("Wrote %s\n", out)
		return nil
	},
}

// withSuffix inserts a suffix between the file name and its extension.
func withSuffix(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + suffix + ext
}

func init() {
	enrichCmd.Flags().StringVar(&enrichGraph, "graph", "outputs/datos_agricolas.ttl", "Graph file to enrich")
	enrichCmd.Flags().StringVar(&enrichOut, "out", "", "Output path (default: the input with an _enriquecido suffix)")
	enrichCmd.Flags().IntVar(&enrichMaxPlaces, "max-places", 0, "Cap on place lookups for this run")
	enrichCmd.Flags().IntVar(&enrichMaxCrops, "max-crops", 0, "Cap on crop lookups for this run")
	enrichCmd.Flags().IntVar(&enrichConcurrency, "concurrency", 0, "Parallel resolver queries")
	enrichCmd.Flags().DurationVar(&enrichTimeout, "timeout", 0, "Overall deadline for the run")
	rootCmd.AddCommand(enrichCmd)
}
