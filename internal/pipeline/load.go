package pipeline

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/catchment-cli/internal/catchment"
	"github.com/sells-group/catchment-cli/internal/config"
	"github.com/sells-group/catchment-cli/internal/geo"
	"github.com/sells-group/catchment-cli/internal/scenario"
	"github.com/sells-group/catchment-cli/internal/tabular"
)

// OptionsFromConfig maps configuration onto pipeline options.
func OptionsFromConfig(cfg *config.Config, label string) Options {
	return Options{
		Label: label,
		Depth: cfg.Combine.Depth,
		Combine: scenario.CombineOptions{
			Shared: cfg.Combine.Shared,
			Flags:  cfg.Combine.Flags,
			AddUse: cfg.Combine.AddUse,
		},
		DiffProperties:        cfg.Combine.DiffProperties,
		ExcludeRegionPrefixes: cfg.Selection.ExcludeRegionPrefixes,
		Concurrency:           cfg.Concurrency,
	}
}

// LoadInputs reads every input file named in cfg. Files are read
// concurrently; blank paths are skipped.
func LoadInputs(ctx context.Context, cfg *config.Config) (*Inputs, error) {
	in := &Inputs{}
	ic := cfg.Inputs

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Concurrency, 1))

	load := func(path string, fn func(string) error) {
		if path == "" {
			return
		}
		g.Go(func() error { return fn(path) })
	}

	load(ic.Units, func(path string) error {
		ut, err := tabular.LoadUnits(gctx, path)
		if err != nil {
			return err
		}
		in.Units, in.Transfers = ut.Units, ut.Transfers
		return nil
	})
	load(ic.Areas, func(path string) (err error) {
		in.Areas, err = tabular.LoadAreas(gctx, path)
		return err
	})
	load(ic.Regions, func(path string) (err error) {
		in.Regions, err = tabular.LoadRegions(gctx, path)
		return err
	})
	load(ic.AreaRegions, func(path string) (err error) {
		in.AreaRegions, err = tabular.LoadAreaRegions(gctx, path)
		return err
	})
	load(ic.UnitTimes, func(path string) (err error) {
		in.UnitTimes, err = tabular.LoadMatrix(gctx, "unit_times", path)
		return err
	})
	load(ic.AreaTimes, func(path string) (err error) {
		in.AreaTimes, err = tabular.LoadMatrix(gctx, "area_times", path)
		return err
	})
	load(ic.Overrides, func(path string) (err error) {
		in.Overrides, err = catchment.LoadOverrides(path)
		return err
	})
	load(ic.Boundaries, func(path string) (err error) {
		in.Boundaries, err = LoadBoundaries(ic)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "pipeline: load inputs")
	}

	var err error
	in.UnitScenarios, in.AreaScenarios, err = LoadScenarios(ctx, cfg.Scenarios, cfg.Combine.Depth, cfg.Combine.Flags, cfg.Concurrency)
	if err != nil {
		return nil, err
	}

	zap.L().Info("pipeline: inputs loaded",
		zap.Int("units", len(in.Units)),
		zap.Int("areas", len(in.Areas)),
		zap.Int("regions", len(in.Regions)),
		zap.Int("boundaries", len(in.Boundaries)),
		zap.Int("unit_scenarios", len(in.UnitScenarios)),
		zap.Int("area_scenarios", len(in.AreaScenarios)),
	)
	return in, nil
}

// LoadScenarios reads the unit and area table of every scenario, up to
// concurrency files at a time. Results are keyed by scenario name; a
// scenario without a units or areas path is absent from that map.
func LoadScenarios(ctx context.Context, sources []config.ScenarioInput, depth int, flags []string, concurrency int) (units, areas map[string]*scenario.Table, err error) {
	type slot struct {
		units, areas *scenario.Table
	}
	slots := make([]slot, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for i, src := range sources {
		if src.Units != "" {
			g.Go(func() error {
				t, err := tabular.LoadScenarioTable(gctx, src.Units, src.Name, depth, flags)
				if err != nil {
					return eris.Wrapf(err, "pipeline: scenario %s units", src.Name)
				}
				slots[i].units = t
				return nil
			})
		}
		if src.Areas != "" {
			g.Go(func() error {
				t, err := tabular.LoadScenarioTable(gctx, src.Areas, src.Name, depth, flags)
				if err != nil {
					return eris.Wrapf(err, "pipeline: scenario %s areas", src.Name)
				}
				slots[i].areas = t
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	units = make(map[string]*scenario.Table)
	areas = make(map[string]*scenario.Table)
	for i, src := range sources {
		if slots[i].units != nil {
			units[src.Name] = slots[i].units
		}
		if slots[i].areas != nil {
			areas[src.Name] = slots[i].areas
		}
	}
	return units, areas, nil
}

// LoadBoundaries reads region boundaries in the configured format.
func LoadBoundaries(ic config.InputsConfig) ([]geo.Boundary, error) {
	switch ic.BoundaryFormat {
	case "shapefile":
		return geo.LoadShapefile(ic.Boundaries, ic.BoundaryCodeField, ic.BoundaryNameField, ic.BoundaryCharset)
	case "geojson", "":
		f, err := os.Open(ic.Boundaries)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: open boundaries")
		}
		defer f.Close() //nolint:errcheck
		return geo.LoadGeoJSON(f, ic.BoundaryCodeField, ic.BoundaryNameField)
	default:
		return nil, eris.Errorf("pipeline: unknown boundary format %q", ic.BoundaryFormat)
	}
}
