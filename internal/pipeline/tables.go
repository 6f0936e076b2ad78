package pipeline

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/catchment-cli/internal/geo"
	"github.com/sells-group/catchment-cli/internal/model"
	"github.com/sells-group/catchment-cli/internal/periphery"
	"github.com/sells-group/catchment-cli/internal/scenario"
)

// Property names of the geography columns added under "any".
const (
	PropAreaCode           = "area_code"
	PropUnitTravelTime     = "unit_travel_time"
	PropTransferUnitID     = "transfer_unit_id"
	PropTransferTravelTime = "transfer_unit_travel_time"
	PropColourIndex        = "colour_ind"
)

// base is the geography of one table: its row ids and the "any" columns
// derived from the unit or area list.
type base struct {
	ids  []string
	text map[string]map[string]string
	num  map[string]map[string]float64
}

func unitBase(units []model.Unit) base {
	b := base{
		text: map[string]map[string]string{periphery.PropRegionCode: {}, PropTransferUnitID: {}},
		num:  map[string]map[string]float64{PropTransferTravelTime: {}},
	}
	for _, u := range units {
		b.ids = append(b.ids, u.ID)
		b.text[periphery.PropRegionCode][u.ID] = u.RegionCode
		b.text[PropTransferUnitID][u.ID] = u.TransferUnitID
		if u.TransferMinutes != nil {
			b.num[PropTransferTravelTime][u.ID] = *u.TransferMinutes
		}
	}
	return b
}

func areaBase(areas []model.Area) base {
	b := base{
		text: map[string]map[string]string{periphery.PropRegionCode: {}, periphery.PropUnitID: {}, PropAreaCode: {}},
		num:  map[string]map[string]float64{PropUnitTravelTime: {}},
	}
	for _, a := range areas {
		b.ids = append(b.ids, a.ID)
		b.text[periphery.PropRegionCode][a.ID] = a.RegionCode
		b.text[periphery.PropUnitID][a.ID] = a.AssignedUnitID
		b.text[PropAreaCode][a.ID] = a.Code
		if a.AssignedUnitID != "" {
			b.num[PropUnitTravelTime][a.ID] = a.Minutes
		}
	}
	return b
}

// columns builds the "any" columns over rows, in property name order.
func (b base) columns(rows []string) []*scenario.Column {
	var out []*scenario.Column
	for _, prop := range sortedKeys(b.text) {
		values := make([]string, len(rows))
		valid := make([]bool, len(rows))
		for i, id := range rows {
			values[i] = b.text[prop][id]
			valid[i] = values[i] != ""
		}
		out = append(out, scenario.NewTextColumn(scenario.Key{Scenario: model.ScenarioAny, Property: prop}, values, valid))
	}
	for _, prop := range sortedKeys(b.num) {
		values := make([]float64, len(rows))
		for i, id := range rows {
			v, ok := b.num[prop][id]
			if !ok {
				v = math.NaN()
			}
			values[i] = v
		}
		out = append(out, scenario.NewFloatColumn(scenario.Key{Scenario: model.ScenarioAny, Property: prop}, values))
	}
	return out
}

// buildTable combines the scenario inputs of one kind, aligns them with the
// base rows and adds the base geography where the scenarios do not supply
// it. Rows of dropped ids are removed. Diff scenarios are added last.
func (p *Pipeline) buildTable(ctx context.Context, kind string, inputs map[string]*scenario.Table, b base, dropped map[string]bool) (*scenario.Table, error) {
	var combined *scenario.Table
	if len(inputs) > 0 {
		c, err := scenario.Combine(inputs, p.opts.Combine)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: combine %s", kind)
		}
		combined = c
	}

	seen := make(map[string]bool, len(b.ids))
	var rows []string
	add := func(id string) {
		if !seen[id] && !dropped[id] {
			seen[id] = true
			rows = append(rows, id)
		}
	}
	for _, id := range b.ids {
		add(id)
	}
	if combined != nil {
		for _, id := range combined.Rows() {
			add(id)
		}
	}
	sort.Strings(rows)

	var t *scenario.Table
	var err error
	if combined != nil {
		t, err = combined.Reindex(rows, p.opts.Combine.Flags)
	} else {
		t, err = scenario.NewTable(p.opts.Depth, rows)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: %s table", kind)
	}

	for _, c := range b.columns(rows) {
		if _, exists := t.Column(c.Key()); exists {
			continue
		}
		if err := t.Add(c); err != nil {
			return nil, eris.Wrapf(err, "pipeline: %s table", kind)
		}
	}
	t.SortColumns()

	if len(p.opts.DiffProperties) == 0 {
		return t, nil
	}
	diffed, err := scenario.DiffContext(ctx, t, p.opts.DiffProperties, scenario.DiffOptions{Concurrency: p.opts.Concurrency})
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: diff %s", kind)
	}
	return diffed, nil
}

func addColourColumn(t *scenario.Table, colours map[string]int) error {
	if t == nil {
		return nil
	}
	rows := t.Rows()
	values := make([]float64, len(rows))
	for i, code := range rows {
		c, ok := colours[code]
		if !ok {
			values[i] = math.NaN()
			continue
		}
		values[i] = float64(c)
	}
	key := scenario.Key{Scenario: model.ScenarioAny, Property: PropColourIndex}
	if _, exists := t.Column(key); exists {
		return nil
	}
	if err := t.Add(scenario.NewFloatColumn(key, values)); err != nil {
		return eris.Wrap(err, "pipeline: region colours")
	}
	t.SortColumns()
	return nil
}

// selection drops records whose region code starts with an excluded prefix.
// Units and areas use the same test so both sides of a catchment agree.
type selection struct {
	prefixes []string
}

func newSelection(prefixes []string) selection {
	var ps []string
	for _, p := range prefixes {
		if p = strings.TrimSpace(p); p != "" {
			ps = append(ps, p)
		}
	}
	return selection{prefixes: ps}
}

func (s selection) excluded(code string) bool {
	for _, p := range s.prefixes {
		if strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}

func (s selection) units(in []model.Unit) ([]model.Unit, map[string]bool) {
	dropped := make(map[string]bool)
	out := make([]model.Unit, 0, len(in))
	for _, u := range in {
		if s.excluded(u.RegionCode) {
			dropped[u.ID] = true
			continue
		}
		out = append(out, u.Clone())
	}
	return out, dropped
}

func (s selection) areas(in []model.Area) ([]model.Area, map[string]bool) {
	dropped := make(map[string]bool)
	out := make([]model.Area, 0, len(in))
	for _, a := range in {
		if s.excluded(a.RegionCode) {
			dropped[a.ID] = true
			continue
		}
		out = append(out, a)
	}
	return out, dropped
}

func (s selection) regions(in []model.Region) []model.Region {
	out := make([]model.Region, 0, len(in))
	for _, r := range in {
		if !s.excluded(r.Code) {
			out = append(out, r.Clone())
		}
	}
	return out
}

func (s selection) boundaries(in []geo.Boundary) []geo.Boundary {
	out := make([]geo.Boundary, 0, len(in))
	for _, b := range in {
		if !s.excluded(b.Code) {
			out = append(out, b)
		}
	}
	return out
}

// fillAreaRegions copies areas, taking a blank region code from lookup.
func fillAreaRegions(areas []model.Area, lookup map[string]string) []model.Area {
	out := make([]model.Area, len(areas))
	for i, a := range areas {
		if a.RegionCode == "" {
			a.RegionCode = lookup[a.ID]
		}
		out[i] = a
	}
	return out
}

func regionsFromBoundaries(boundaries []geo.Boundary) []model.Region {
	out := make([]model.Region, 0, len(boundaries))
	for _, b := range boundaries {
		out = append(out, model.Region{Code: b.Code, Name: b.Name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func regionCodes(regions []model.Region) []string {
	seen := make(map[string]bool, len(regions))
	codes := make([]string, 0, len(regions))
	for _, r := range regions {
		if r.Code != "" && !seen[r.Code] {
			seen[r.Code] = true
			codes = append(codes, r.Code)
		}
	}
	sort.Strings(codes)
	return codes
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
