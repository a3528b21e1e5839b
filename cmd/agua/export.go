package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jcm204/APD-Proyecto-Agua-Cultivos/graph"
)

var (
	exportGraph string
	exportOut   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Convert a graph file to another serialization",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := graph.ReadFile(exportGraph)
		if err != nil {
			return err
		}
		if err := graph.WriteFile(exportOut, g); err != nil {
			return err
		}
		fmt.Printf("Wrote %s (%d facts)\n", exportOut, g.Len())
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportGraph, "graph", "", "Graph file to convert (ttl or nt)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output path; the extension picks the format")
	exportCmd.MarkFlagRequired("graph")
	exportCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(exportCmd)
}
