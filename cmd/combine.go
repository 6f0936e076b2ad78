package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/catchment-cli/internal/export"
	"github.com/sells-group/catchment-cli/internal/pipeline"
	"github.com/sells-group/catchment-cli/internal/scenario"
)

var combineCmd = &cobra.Command{
	Use:   "combine",
	Short: "Combine per-scenario output tables and add difference scenarios",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("combine"); err != nil {
			return err
		}

		units, areas, err := pipeline.LoadScenarios(ctx, cfg.Scenarios, cfg.Combine.Depth, cfg.Combine.Flags, cfg.Concurrency)
		if err != nil {
			return err
		}

		opts := pipeline.OptionsFromConfig(cfg, "combine")
		var sets []export.Records
		for _, kind := range []struct {
			name   string
			inputs map[string]*scenario.Table
		}{{"units", units}, {"areas", areas}} {
			if len(kind.inputs) == 0 {
				continue
			}
			t, err := combineAndDiff(ctx, kind.inputs, opts)
			if err != nil {
				return eris.Wrapf(err, "combine %s", kind.name)
			}
			sets = append(sets, export.Flatten(kind.name, t))
		}

		out, _ := cmd.Flags().GetString("out")
		paths, err := export.WriteAll(outputDir(out), cfg.Output.Formats, sets...)
		if err != nil {
			return err
		}
		printPaths(paths)
		return nil
	},
}

func combineAndDiff(ctx context.Context, inputs map[string]*scenario.Table, opts pipeline.Options) (*scenario.Table, error) {
	t, err := scenario.Combine(inputs, opts.Combine)
	if err != nil {
		return nil, err
	}
	t.SortColumns()
	if len(opts.DiffProperties) == 0 {
		return t, nil
	}
	return scenario.DiffContext(ctx, t, opts.DiffProperties, scenario.DiffOptions{Concurrency: opts.Concurrency})
}

func init() {
	combineCmd.Flags().String("out", "", "output directory (default output.dir)")
	rootCmd.AddCommand(combineCmd)
}
