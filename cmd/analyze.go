package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/catchment-cli/internal/pipeline"
	"github.com/sells-group/catchment-cli/internal/store"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the full catchment analysis and record it as a run",
	Long: "Resolves transfers, assigns areas, combines and diffs scenarios, links periphery regions " +
		"and colours the region map. Results are exported to output.dir and saved to the store.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		label, _ := cmd.Flags().GetString("label")
		noStore, _ := cmd.Flags().GetBool("no-store")

		var st store.Store
		if !noStore {
			s, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close() //nolint:errcheck
			if err := s.Migrate(ctx); err != nil {
				return err
			}
			st = s
		}

		in, err := pipeline.LoadInputs(ctx, cfg)
		if err != nil {
			return err
		}

		res, err := pipeline.New(pipeline.OptionsFromConfig(cfg, label), st).Run(ctx, in)
		if err != nil {
			return err
		}

		out, _ := cmd.Flags().GetString("out")
		paths, err := res.Export(outputDir(out), cfg.Output.Formats)
		if err != nil {
			return err
		}
		printPaths(paths)

		zap.L().Info("analysis finished",
			zap.String("run_id", res.RunID),
			zap.Int("warnings", len(res.Errors)),
		)
		if res.RunID != "" {
			fmt.Fprintf(os.Stderr, "run %s complete\n", res.RunID)
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().String("label", "analysis", "label recorded with the run")
	analyzeCmd.Flags().Bool("no-store", false, "skip recording the run")
	analyzeCmd.Flags().String("out", "", "output directory (default output.dir)")
	rootCmd.AddCommand(analyzeCmd)
}
