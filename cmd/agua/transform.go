package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	agua "github.com/jcm204/APD-Proyecto-Agua-Cultivos"
)

var (
	transformInput   string
	transformOut     string
	transformFormats []string
)

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Build the entity graph from a tabular source file",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := agua.New(cfg)
		if err != nil {
			return err
		}
		defer p.Close()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		stats, err := p.Transform(ctx, transformInput)
		if err != nil {
			return err
		}

		fmt.Printf("Rows: %d processed, %d skipped\n", stats.RowsProcessed, stats.RowsSkipped)
		fmt.Printf("Entities: %d places, %d crops, %d records\n",
			stats.Places, stats.Crops, stats.Records)
		if stats.NegativeValues > 0 {
			fmt.Printf("Warning: %d negative measurement values\n", stats.NegativeValues)
		}

		for _, format := range transformFormats {
			path := withExtension(transformOut, format)
			if err := p.ExportFile(path); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
		}
		return nil
	},
}

// withExtension swaps the extension of path for the named format.
func withExtension(path, format string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + "." + strings.TrimPrefix(format, ".")
}

func init() {
	transformCmd.Flags().StringVar(&transformInput, "input", "", "Tabular source file (csv or xlsx)")
	transformCmd.Flags().StringVar(&transformOut, "out", "outputs/datos_agricolas.ttl", "Output graph path")
	transformCmd.Flags().StringSliceVar(&transformFormats, "formats", []string{"ttl"}, "Serialization formats to write (ttl, nt, jsonld)")
	transformCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(transformCmd)
}
