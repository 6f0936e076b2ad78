package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/catchment-cli/internal/export"
	"github.com/sells-group/catchment-cli/internal/pipeline"
)

var assignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Resolve transfer units and assign areas to their nearest unit",
	Long: "Reads the unit list, area list and both travel-time matrices, gives every primary unit its " +
		"nearest hub (or its override) and every area its nearest primary unit, and writes the units and areas tables.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("assign"); err != nil {
			return err
		}

		cfgCopy := *cfg
		cfgCopy.Scenarios = nil
		cfgCopy.Inputs.Boundaries = ""
		in, err := pipeline.LoadInputs(ctx, &cfgCopy)
		if err != nil {
			return err
		}

		res, err := pipeline.New(pipeline.OptionsFromConfig(cfg, "assign"), nil).Run(ctx, in)
		if err != nil {
			return eris.Wrap(err, "assign")
		}
		for _, e := range res.Errors {
			zap.L().Warn("assign: unresolved", zap.Error(e))
		}

		out, _ := cmd.Flags().GetString("out")
		paths, err := export.WriteAll(outputDir(out), cfg.Output.Formats,
			export.UnitRecords(res.Units),
			export.AreaRecords(res.Areas),
		)
		if err != nil {
			return err
		}
		printPaths(paths)
		if len(res.Errors) > 0 {
			fmt.Fprintf(os.Stderr, "%d units or areas could not be resolved; see log\n", len(res.Errors))
		}
		return nil
	},
}

func init() {
	assignCmd.Flags().String("out", "", "output directory (default output.dir)")
	rootCmd.AddCommand(assignCmd)
}

func printPaths(paths []string) {
	for _, p := range paths {
		fmt.Fprintln(os.Stdout, p)
	}
}
