package patches

import (
	"errors"
	"fmt"

	"github.com/erick-otenyo/gisflow/vector"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/twpayne/go-geos"
)

// minMergeArea drops small polygons before simplification.
const minMergeArea = 0.1

var ErrMixedCRS = errors.New("tiles have different coordinate reference systems")

// union is replaced in tests to simulate GEOS failures.
var union = unionChunk

// Merge unions the polygons of every tile into one set of non-overlapping
// polygons. Each tile's polygons above 0.1 area units are simplified with
// tolerance (topology preserving), then unioned chunkSize at a time into a
// running result. A chunk whose union fails is merged again polygon by
// polygon; polygons that still fail are returned unmerged.
func Merge(results []*TileResult, tolerance float64, chunkSize int) ([]*geos.Geom, error) {
	if len(results) == 0 {
		return nil, nil
	}
	if err := checkCRS(results); err != nil {
		return nil, err
	}
	if chunkSize <= 0 {
		chunkSize = 1000
	}

	var all []*geos.Geom
	for _, r := range results {
		for _, p := range r.Polygons {
			if p.Area() > minMergeArea {
				all = append(all, p.TopologyPreserveSimplify(tolerance))
			}
		}
	}
	if len(all) == 0 {
		return nil, nil
	}

	chunks := (len(all) + chunkSize - 1) / chunkSize
	bar := progressbar.Default(int64(chunks), "merging")
	var merged *geos.Geom
	var unmerged []*geos.Geom
	for i := 0; i < chunks; i++ {
		start := i * chunkSize
		end := min(start+chunkSize, len(all))
		next, err := union(merged, all[start:end])
		if err == nil {
			merged = next
			_ = bar.Add(1)
			continue
		}
		logrus.Warnf("error merging chunk %d: %v, merging its polygons one at a time", i+1, err)
		for _, p := range all[start:end] {
			next, err := union(merged, []*geos.Geom{p})
			if err != nil {
				unmerged = append(unmerged, p)
				continue
			}
			merged = next
		}
		_ = bar.Add(1)
	}
	if len(unmerged) > 0 {
		logrus.Warnf("%d polygons could not be merged and are kept as they are", len(unmerged))
	}

	var out []*geos.Geom
	if merged != nil {
		out = append(out, vector.Explode(merged)...)
	}
	out = append(out, unmerged...)
	valid := out[:0]
	for _, p := range out {
		if p.IsValid() && !p.IsEmpty() {
			valid = append(valid, p)
		}
	}
	if len(valid) == 0 {
		return nil, nil
	}
	return valid, nil
}

// unionChunk folds the union of chunk into merged. GEOS failures surface
// as panics from go-geos and are returned as errors.
func unionChunk(merged *geos.Geom, chunk []*geos.Geom) (result *geos.Geom, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	parts := make([]*geos.Geom, len(chunk))
	for i, p := range chunk {
		parts[i] = p.Clone()
	}
	u := geos.NewCollection(geos.TypeIDGeometryCollection, parts).UnaryUnion()
	if merged == nil {
		return u, nil
	}
	return merged.Union(u), nil
}

func checkCRS(results []*TileResult) error {
	first := results[0].SRS
	for _, r := range results[1:] {
		same, err := vector.SameCRS(first, r.SRS)
		if err != nil {
			return fmt.Errorf("%s: %w", r.Path, err)
		}
		if !same {
			return fmt.Errorf("%w: %s differs from %s", ErrMixedCRS, r.Path, results[0].Path)
		}
	}
	return nil
}
