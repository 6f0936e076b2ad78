package scenario

import (
	"context"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/catchment-cli/internal/model"
)

// Statistic subtypes with a defined difference rule.
const (
	SubtypeMean   = "mean"
	SubtypeMedian = "median"
	SubtypeStd    = "std"
)

// DiffOptions configures Diff.
type DiffOptions struct {
	// Concurrency bounds how many scenario pairs are computed at once.
	// Zero or less means one at a time.
	Concurrency int
}

// Diff returns a copy of t with a derived scenario diff_{A}_minus_{B} for
// every pair of raw scenarios A < B. Only the listed properties are
// differenced. Existing diff columns are kept and never recomputed.
func Diff(t *Table, properties []string) (*Table, error) {
	return DiffContext(context.Background(), t, properties, DiffOptions{})
}

// DiffContext is Diff with cancellation and bounded parallelism. Results are
// merged back in pair order so output does not depend on scheduling.
func DiffContext(ctx context.Context, t *Table, properties []string, opts DiffOptions) (*Table, error) {
	if t == nil {
		return nil, eris.New("scenario: diff of nil table")
	}
	out := t.Clone()

	var labels []string
	for _, k := range t.Keys() {
		labels = append(labels, k.Scenario)
	}
	scenarios := model.RawScenarios(labels)
	if len(scenarios) < 2 {
		zap.L().Debug("scenario: fewer than two scenarios, nothing to diff", zap.Strings("scenarios", scenarios))
		return out, nil
	}

	// Validate every requested column up front so errors do not depend on
	// goroutine scheduling.
	for _, s := range scenarios {
		for _, prop := range properties {
			for _, c := range t.PropertyColumns(s, prop) {
				if err := checkDiffable(c); err != nil {
					return nil, err
				}
			}
		}
	}

	type pair struct{ a, b string }
	var pairs []pair
	for i := 0; i < len(scenarios); i++ {
		for j := i + 1; j < len(scenarios); j++ {
			pairs = append(pairs, pair{scenarios[i], scenarios[j]})
		}
	}

	results := make([][]*Column, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	limit := opts.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)
	for i, p := range pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = diffPair(t, p.a, p.b, properties)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "scenario: diff")
	}

	added := 0
	for _, cols := range results {
		for _, c := range cols {
			if _, exists := out.Column(c.key); exists {
				continue
			}
			if err := out.Add(c); err != nil {
				return nil, eris.Wrap(err, "scenario: diff")
			}
			added++
		}
	}
	out.SortColumns()

	zap.L().Debug("scenario: diffed scenarios",
		zap.Strings("scenarios", scenarios),
		zap.Int("pairs", len(pairs)),
		zap.Int("columns_added", added),
	)
	return out, nil
}

func checkDiffable(c *Column) error {
	switch c.key.Subtype {
	case "", SubtypeMean, SubtypeMedian, SubtypeStd:
	default:
		return &model.UnsupportedStatisticError{Property: c.key.Property, Subtype: c.key.Subtype}
	}
	if !c.Numeric() {
		return &model.SchemaMismatchError{
			Scenario: c.key.Scenario,
			Property: c.key.Property,
			Detail:   "cannot difference a " + c.kind.String() + " column",
		}
	}
	return nil
}

// diffPair computes the diff columns for one scenario pair. A column present
// in only one scenario of the pair is skipped, except std where the missing
// side counts as zero.
func diffPair(t *Table, a, b string, properties []string) []*Column {
	name := model.DiffScenarioName(a, b)
	var out []*Column
	for _, prop := range properties {
		for _, ca := range t.PropertyColumns(a, prop) {
			cb, ok := t.Column(Key{Scenario: b, Property: prop, Subtype: ca.key.Subtype})
			if !ok {
				continue
			}
			key := Key{Scenario: name, Property: prop, Subtype: ca.key.Subtype}
			out = append(out, diffColumn(key, ca, cb))
		}
	}
	return out
}

func diffColumn(key Key, a, b *Column) *Column {
	values := make([]float64, a.Len())
	for i := range values {
		va, okA := a.Float(i)
		vb, okB := b.Float(i)
		if key.Subtype == SubtypeStd {
			if !okA && !okB {
				values[i] = math.NaN()
				continue
			}
			values[i] = math.Sqrt(va*va + vb*vb)
			continue
		}
		if !okA || !okB {
			values[i] = math.NaN()
			continue
		}
		values[i] = va - vb
	}
	return NewFloatColumn(key, values)
}
