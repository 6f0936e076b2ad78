// Package pipeline runs a complete catchment analysis: transfer resolution,
// area assignment, scenario combining and diffing, periphery linking and
// region colouring, optionally recording the run in a store.
package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/catchment-cli/internal/catchment"
	"github.com/sells-group/catchment-cli/internal/colour"
	"github.com/sells-group/catchment-cli/internal/geo"
	"github.com/sells-group/catchment-cli/internal/model"
	"github.com/sells-group/catchment-cli/internal/periphery"
	"github.com/sells-group/catchment-cli/internal/scenario"
	"github.com/sells-group/catchment-cli/internal/store"
	"github.com/sells-group/catchment-cli/internal/traveltime"
)

// Options configures a Pipeline.
type Options struct {
	Label                 string
	Depth                 int
	Combine               scenario.CombineOptions
	DiffProperties        []string
	ExcludeRegionPrefixes []string
	Concurrency           int
}

// Inputs holds everything one analysis reads. Only Units and Areas are
// required; each missing optional input skips the stage that needs it.
type Inputs struct {
	Units []model.Unit
	// Transfers holds raw transfer column values keyed by unit id.
	Transfers map[string]string
	// Overrides are file overrides; they win over Transfers.
	Overrides   map[string]catchment.Override
	Areas       []model.Area
	Regions     []model.Region
	AreaRegions map[string]string
	UnitTimes   *traveltime.Matrix
	AreaTimes   *traveltime.Matrix
	Boundaries  []geo.Boundary

	UnitScenarios map[string]*scenario.Table
	AreaScenarios map[string]*scenario.Table
}

// Result is the outcome of Run.
type Result struct {
	RunID string

	Units   []model.Unit
	Areas   []model.Area
	Regions []model.Region

	UnitTable   *scenario.Table
	AreaTable   *scenario.Table
	RegionTable *scenario.Table

	Scenarios     []string
	DiffScenarios []string

	RegionColours map[string]int
	// Catchments holds the coloured unit catchments of every raw
	// scenario, sorted by scenario then unit id.
	Catchments []model.Catchment

	// Errors are per-unit and per-area failures that did not stop the run.
	Errors []error
}

// Summary returns the headline counts of r.
func (r *Result) Summary() *model.RunSummary {
	s := &model.RunSummary{
		Units:         len(r.Units),
		Areas:         len(r.Areas),
		Regions:       len(r.Regions),
		Colours:       colour.Count(r.RegionColours),
		DiffScenarios: r.DiffScenarios,
	}
	for _, err := range r.Errors {
		s.Warnings = append(s.Warnings, err.Error())
	}
	return s
}

// Pipeline orchestrates the analysis stages.
type Pipeline struct {
	opts  Options
	store store.Store
}

// New creates a Pipeline. st may be nil, in which case runs are not
// recorded.
func New(opts Options, st store.Store) *Pipeline {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Depth == 0 {
		opts.Depth = scenario.DepthStats
	}
	return &Pipeline{opts: opts, store: st}
}

// Run executes the full analysis. With a store, the run is recorded and its
// tables and colours are saved; a failed analysis marks the run failed.
func (p *Pipeline) Run(ctx context.Context, in *Inputs) (*Result, error) {
	log := zap.L().With(zap.String("component", "pipeline"), zap.String("label", p.opts.Label))
	log.Info("pipeline: starting analysis")

	if p.store == nil {
		return p.analyze(ctx, in, log)
	}

	run, err := p.store.CreateRun(ctx, p.opts.Label, inputScenarios(in))
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}
	log = log.With(zap.String("run_id", run.ID))

	fail := func(cause error) {
		if failErr := p.store.FailRun(ctx, run.ID, cause.Error()); failErr != nil {
			log.Warn("pipeline: failed to mark run failed", zap.Error(failErr))
		}
	}

	res, err := p.analyze(ctx, in, log)
	if err != nil {
		fail(err)
		return nil, err
	}
	res.RunID = run.ID

	if err := p.persist(ctx, run.ID, res); err != nil {
		fail(err)
		return nil, err
	}
	if err := p.store.CompleteRun(ctx, run.ID, res.Summary()); err != nil {
		return nil, eris.Wrap(err, "pipeline: complete run")
	}
	log.Info("pipeline: analysis complete",
		zap.Int("scenarios", len(res.Scenarios)),
		zap.Int("warnings", len(res.Errors)),
	)
	return res, nil
}

func (p *Pipeline) analyze(ctx context.Context, in *Inputs, log *zap.Logger) (*Result, error) {
	if in == nil {
		return nil, eris.New("pipeline: no inputs")
	}

	phase := func(name string, fn func() error) error {
		start := time.Now()
		err := fn()
		duration := time.Since(start).Milliseconds()
		if err != nil {
			log.Error("pipeline: phase failed", zap.String("phase", name), zap.Int64("duration_ms", duration), zap.Error(err))
			return err
		}
		log.Info("pipeline: phase complete", zap.String("phase", name), zap.Int64("duration_ms", duration))
		return nil
	}

	res := &Result{}
	sel := newSelection(p.opts.ExcludeRegionPrefixes)

	units, droppedUnits := sel.units(in.Units)
	areas, droppedAreas := sel.areas(fillAreaRegions(in.Areas, in.AreaRegions))
	regions := sel.regions(in.Regions)
	boundaries := sel.boundaries(in.Boundaries)
	if len(droppedUnits)+len(droppedAreas) > 0 {
		log.Info("pipeline: selection applied",
			zap.Int("units_dropped", len(droppedUnits)),
			zap.Int("areas_dropped", len(droppedAreas)),
		)
	}

	if err := phase("transfers", func() error {
		if in.UnitTimes == nil {
			log.Warn("pipeline: no unit travel-time matrix, only override transfers resolved")
		}
		overrides := catchment.MergeOverrides(ColumnOverrides(in.Transfers), in.Overrides)
		r, err := catchment.NewResolver(in.UnitTimes).Resolve(units, overrides)
		if err != nil {
			return err
		}
		units = r.Units
		res.Errors = append(res.Errors, r.Errors...)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := phase("assign_areas", func() error {
		if in.AreaTimes == nil {
			log.Warn("pipeline: no area travel-time matrix, areas keep their input assignment")
			return nil
		}
		r, err := catchment.AssignAreas(in.AreaTimes, catchment.PrimaryUnits(units))
		if err != nil {
			return err
		}
		areas = catchment.ApplyAssignments(areas, r.Assignments)
		res.Errors = append(res.Errors, r.Errors...)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := phase("combine", func() error {
		var err error
		res.UnitTable, err = p.buildTable(ctx, "units", in.UnitScenarios, unitBase(units), droppedUnits)
		if err != nil {
			return err
		}
		res.AreaTable, err = p.buildTable(ctx, "areas", in.AreaScenarios, areaBase(areas), droppedAreas)
		return err
	}); err != nil {
		return nil, err
	}

	if len(regions) == 0 {
		regions = regionsFromBoundaries(boundaries)
	}

	if err := phase("periphery", func() error {
		lt, err := periphery.LinkTables(res.UnitTable, res.AreaTable, regionCodes(regions))
		if err != nil {
			return err
		}
		if len(regions) == 0 {
			for _, code := range lt.Regions.Rows() {
				regions = append(regions, model.Region{Code: code})
			}
		}
		names := make([]string, 0, len(lt.Results))
		for s := range lt.Results {
			names = append(names, s)
		}
		sort.Strings(names)
		for _, s := range names {
			lt.Results[s].Annotate(units, regions)
		}
		res.UnitTable = lt.Units
		res.RegionTable = lt.Regions
		res.Scenarios = names
		return nil
	}); err != nil {
		return nil, err
	}

	if err := phase("colour", func() error {
		if len(boundaries) == 0 {
			log.Warn("pipeline: no boundaries, regions left uncoloured")
			return nil
		}
		neighbours, err := geo.NeighboursContext(ctx, boundaries, p.opts.Concurrency)
		if err != nil {
			return err
		}
		res.RegionColours = colour.Assign(regionCodes(regions), neighbours)
		for i := range regions {
			regions[i].ColorIndex = res.RegionColours[regions[i].Code]
		}
		if err := addColourColumn(res.RegionTable, res.RegionColours); err != nil {
			return err
		}


		for _, s := range res.Scenarios {
			cs, err := ColourCatchments(res.UnitTable, res.AreaTable, s, neighbours)
			if err != nil {
				return err
			}
			if err := addCatchmentColumns(res.UnitTable, s, cs); err != nil {
				return err
			}
			res.Catchments = append(res.Catchments, cs...)
		}
		res.UnitTable.SortColumns()
		log.Info("pipeline: regions coloured",
			zap.Int("regions", len(res.RegionColours)),
			zap.Int("colours", colour.Count(res.RegionColours)),
			zap.Int("catchments", len(res.Catchments)),
		)
		return nil
	}); err != nil {
		return nil, err
	}

	res.Units, res.Areas, res.Regions = units, areas, regions
	res.DiffScenarios = diffScenarios(res.UnitTable, res.AreaTable)
	return res, nil
}

// persist saves the result tables and colours of a run.
func (p *Pipeline) persist(ctx context.Context, runID string, res *Result) error {
	var cells []store.Cell
	cells = append(cells, store.CellsFromTable("units", res.UnitTable)...)
	cells = append(cells, store.CellsFromTable("areas", res.AreaTable)...)
	cells = append(cells, store.CellsFromTable("regions", res.RegionTable)...)
	n, err := p.store.SaveCells(ctx, runID, cells)
	if err != nil {
		return eris.Wrap(err, "pipeline: save cells")
	}
	if err := p.store.SaveRegionColours(ctx, runID, res.RegionColours); err != nil {
		return eris.Wrap(err, "pipeline: save region colours")
	}
	zap.L().Debug("pipeline: results saved", zap.String("run_id", runID), zap.Int64("cells", n))
	return nil
}

// ColumnOverrides parses transfer column values into overrides. Blank and
// "nearest" values produce no override.
func ColumnOverrides(transfers map[string]string) map[string]catchment.Override {
	out := make(map[string]catchment.Override)
	for id, v := range transfers {
		if ov, ok := catchment.ParseOverride(v); ok {
			out[id] = ov
		}
	}
	return out
}

func inputScenarios(in *Inputs) []string {
	if in == nil {
		return nil
	}
	seen := make(map[string]bool)
	for name := range in.UnitScenarios {
		seen[name] = true
	}
	for name := range in.AreaScenarios {
		seen[name] = true
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func diffScenarios(tables ...*scenario.Table) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, s := range t.Scenarios() {
			if model.IsDiffScenario(s) && !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	sort.Strings(out)
	return out
}
