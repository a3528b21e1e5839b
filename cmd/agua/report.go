package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jcm204/APD-Proyecto-Agua-Cultivos/graph"
	"github.com/jcm204/APD-Proyecto-Agua-Cultivos/reports"
)

var (
	reportGraph    string
	reportTop      int
	reportProvince string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Validate a graph file and print the analytic tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := graph.ReadFile(reportGraph)
		if err != nil {
			return err
		}

		if err := reports.Validate(g).Render(os.Stdout); err != nil {
			return err
		}

		fmt.Printf("\nTop %d municipalities by cultivated area\n", reportTop)
		if err := reports.RenderMunicipalities(os.Stdout, reports.TopMunicipalitiesByArea(g, reportTop)); err != nil {
			return err
		}

		fmt.Println("\nWater consumption by crop group")
		if err := reports.RenderGroups(os.Stdout, reports.ConsumptionByCropGroup(g, reportTop)); err != nil {
			return err
		}

		if comarcas := reports.ComarcaStats(g, reportProvince, reportTop); comarcas != nil {
			fmt.Printf("\nComarcas of %s\n", reportProvince)
			if err := reports.RenderComarcas(os.Stdout, comarcas); err != nil {
				return err
			}
		} else {
			fmt.Printf("\nProvince %q not found in the graph\n", reportProvince)
		}
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportGraph, "graph", "outputs/datos_agricolas.ttl", "Graph file to report on")
	reportCmd.Flags().IntVar(&reportTop, "top", 10, "Rows per table")
	reportCmd.Flags().StringVar(&reportProvince, "province", "VALENCIA", "Province for the comarca table")
	rootCmd.AddCommand(reportCmd)
}
