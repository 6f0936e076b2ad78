package geo

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy/lineintersector"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Neighbours returns, for every boundary code, the sorted codes of the
// boundaries it intersects. Touching edges or corners count. A boundary
// lying wholly inside another also counts.
func Neighbours(boundaries []Boundary) map[string][]string {
	out, _ := NeighboursContext(context.Background(), boundaries, 1)
	return out
}

// NeighboursContext is Neighbours with cancellation. Pair tests run on up to
// concurrency goroutines; the result does not depend on scheduling.
func NeighboursContext(ctx context.Context, boundaries []Boundary, concurrency int) (map[string][]string, error) {
	type prepared struct {
		code   string
		bounds *geom.Bounds
		parts  []polygon
	}
	items := make([]prepared, 0, len(boundaries))
	for _, b := range boundaries {
		if b.Geom == nil {
			continue
		}
		items = append(items, prepared{code: b.Code, bounds: b.Geom.Bounds(), parts: polygons(b.Geom)})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].code < items[j].code })

	found := make([][]string, len(items))
	if concurrency < 1 {
		concurrency = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for j := i + 1; j < len(items); j++ {
				if !items[i].bounds.Overlaps(geom.XY, items[j].bounds) {
					continue
				}
				if partsTouch(items[i].parts, items[j].parts) {
					found[i] = append(found[i], items[j].code)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "geo: neighbours")
	}

	out := make(map[string][]string, len(items))
	for _, it := range items {
		out[it.code] = []string{}
	}
	pairs := 0
	for i, ns := range found {
		for _, code := range ns {
			out[items[i].code] = append(out[items[i].code], code)
			out[code] = append(out[code], items[i].code)
			pairs++
		}
	}
	for code := range out {
		sort.Strings(out[code])
	}
	zap.L().Debug("geo: computed neighbours", zap.Int("boundaries", len(items)), zap.Int("pairs", pairs))
	return out, nil
}

// partsTouch reports whether any edge of a meets any edge of b, or some
// part of one lies inside a part of the other. A part sitting in a hole
// without touching its edge is not inside.
func partsTouch(a, b []polygon) bool {
	for _, pa := range a {
		for _, pb := range b {
			for _, ra := range pa {
				for _, rb := range pb {
					if segmentsIntersect(ra, rb) {
						return true
					}
				}
			}
		}
	}
	return anyPartInside(a, b) || anyPartInside(b, a)
}

// anyPartInside reports whether an outer ring of inner lies in a part of
// outer. With no edges crossing, one vertex decides for the whole ring.
func anyPartInside(inner, outer []polygon) bool {
	for _, p := range inner {
		if len(p) == 0 || len(p[0]) < 2 {
			continue
		}
		c := geom.Coord{p[0][0], p[0][1]}
		for _, q := range outer {
			if q.contains(c) {
				return true
			}
		}
	}
	return false
}

func segmentsIntersect(ra, rb []float64) bool {
	strategy := lineintersector.RobustLineIntersector{}
	for i := 0; i+3 < len(ra); i += 2 {
		a1 := geom.Coord{ra[i], ra[i+1]}
		a2 := geom.Coord{ra[i+2], ra[i+3]}
		for j := 0; j+3 < len(rb); j += 2 {
			b1 := geom.Coord{rb[j], rb[j+1]}
			b2 := geom.Coord{rb[j+2], rb[j+3]}
			if !segmentBoxesOverlap(a1, a2, b1, b2) {
				continue
			}
			res := lineintersector.LineIntersectsLine(strategy, a1, a2, b1, b2)
			if res.HasIntersection() {
				return true
			}
		}
	}
	return false
}

func segmentBoxesOverlap(a1, a2, b1, b2 geom.Coord) bool {
	return max(a1[0], a2[0]) >= min(b1[0], b2[0]) &&
		max(b1[0], b2[0]) >= min(a1[0], a2[0]) &&
		max(a1[1], a2[1]) >= min(b1[1], b2[1]) &&
		max(b1[1], b2[1]) >= min(a1[1], a2[1])
}
