package pipeline

import (
	"github.com/sells-group/catchment-cli/internal/export"
)

// Records returns the exportable record sets of a result: the unit, area
// and region tables, the region summary and, when coloured, the catchments.
func (r *Result) Records() []export.Records {
	var sets []export.Records
	if r.UnitTable != nil {
		sets = append(sets, export.Flatten("units", r.UnitTable))
	}
	if r.AreaTable != nil {
		sets = append(sets, export.Flatten("areas", r.AreaTable))
	}
	sets = append(sets, export.RegionRecords(r.Regions, r.Scenarios))
	if len(r.Catchments) > 0 {
		sets = append(sets, export.CatchmentRecords(r.Catchments))
	}
	return sets
}

// Export writes the result to dir in each format and returns the paths
// written.
func (r *Result) Export(dir string, formats []string) ([]string, error) {
	return export.WriteAll(dir, formats, r.Records()...)
}
