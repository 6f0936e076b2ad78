package main

import (
	"context"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sells-group/catchment-cli/internal/colour"
	"github.com/sells-group/catchment-cli/internal/export"
	"github.com/sells-group/catchment-cli/internal/geo"
	"github.com/sells-group/catchment-cli/internal/model"
	"github.com/sells-group/catchment-cli/internal/pipeline"
)

var colourCmd = &cobra.Command{
	Use:     "colour",
	Aliases: []string{"color"},
	Short:   "Colour regions so that neighbours never share a colour",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("colour"); err != nil {
			return err
		}
		boundaries, err := pipeline.LoadBoundaries(cfg.Inputs)
		if err != nil {
			return err
		}

		regions, err := colourRegions(cmd.Context(), boundaries, cfg.Concurrency)
		if err != nil {
			return err
		}

		out, _ := cmd.Flags().GetString("out")
		paths, err := export.WriteAll(outputDir(out), cfg.Output.Formats, export.RegionRecords(regions, nil))
		if err != nil {
			return err
		}
		printPaths(paths)
		return nil
	},
}

// colourRegions returns one region per boundary, sorted by code, with its
// colour index set.
func colourRegions(ctx context.Context, boundaries []geo.Boundary, concurrency int) ([]model.Region, error) {
	neighbours, err := geo.NeighboursContext(ctx, boundaries, concurrency)
	if err != nil {
		return nil, err
	}
	regions := make([]model.Region, 0, len(boundaries))
	codes := make([]string, 0, len(boundaries))
	for _, b := range boundaries {
		regions = append(regions, model.Region{Code: b.Code, Name: b.Name})
		codes = append(codes, b.Code)
	}
	colours := colour.Assign(codes, neighbours)
	for i := range regions {
		regions[i].ColorIndex = colours[regions[i].Code]
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].Code < regions[j].Code })
	return regions, nil
}

func init() {
	colourCmd.Flags().String("out", "", "output directory (default output.dir)")
	rootCmd.AddCommand(colourCmd)
}
