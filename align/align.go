// Package align merges one vector file into the attribute structure of
// another.
package align

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/erick-otenyo/gisflow/vector"
	"github.com/sirupsen/logrus"
)

var ErrGeometryMismatch = errors.New("geometry type mismatch")

// shapefile field names are truncated beyond this length
const maxShapefileField = 10

// Align returns the features of one, shaped like to, followed by those of
// to. With convertPolygons a polygon layer paired with a point layer is
// reduced to centroids first. Columns of to missing from one are added as
// nulls; columns only in one are dropped.
func Align(one, to *vector.Layer, convertPolygons bool) (*vector.Layer, error) {
	typesOne := vector.GeometryTypes(one)
	typesTo := vector.GeometryTypes(to)

	if convertPolygons && len(typesOne) == 1 && len(typesTo) == 1 {
		switch {
		case typesOne[0] == "Polygon" && typesTo[0] == "Point":
			logrus.Info("converting polygon features to points (centroids)")
			toCentroids(one)
			typesOne = []string{"Point"}
		case typesOne[0] == "Point" && typesTo[0] == "Polygon":
			logrus.Info("converting polygon features to points (centroids)")
			toCentroids(to)
			typesTo = []string{"Point"}
		}
	}

	setOne := mapset.NewThreadUnsafeSet(typesOne...)
	setTo := mapset.NewThreadUnsafeSet(typesTo...)
	if !setOne.Equal(setTo) {
		return nil, fmt.Errorf("%w: ONE contains %v, TO contains %v", ErrGeometryMismatch, typesOne, typesTo)
	}

	same, err := vector.SameCRS(one.SRS, to.SRS)
	if err != nil {
		return nil, err
	}
	if !same {
		if to.SRS == "" {
			return nil, fmt.Errorf("cannot transform %s into %s: target has no CRS", one.Name, to.Name)
		}
		logrus.Info("transforming CRS of ONE to match TO")
		if err := vector.Reproject(one, to.SRS); err != nil {
			return nil, err
		}
	}

	colsOne := mapset.NewThreadUnsafeSet(one.FieldNames()...)
	colsTo := mapset.NewThreadUnsafeSet(to.FieldNames()...)
	if missing := colsTo.Difference(colsOne).ToSlice(); len(missing) > 0 {
		sort.Strings(missing)
		logrus.Infof("adding missing columns to ONE: %s", strings.Join(missing, ", "))
	}
	if dropped := colsOne.Difference(colsTo).ToSlice(); len(dropped) > 0 {
		sort.Strings(dropped)
		logrus.Debugf("dropping columns not in TO: %s", strings.Join(dropped, ", "))
	}

	merged := &vector.Layer{
		Name:     to.Name,
		SRS:      to.SRS,
		Fields:   append([]vector.Field(nil), to.Fields...),
		Features: make([]vector.Feature, 0, len(one.Features)+len(to.Features)),
	}
	for _, f := range one.Features {
		props := make(map[string]any, len(to.Fields))
		for _, fld := range to.Fields {
			props[fld.Name] = f.Props[fld.Name]
		}
		merged.Features = append(merged.Features, vector.Feature{Geom: f.Geom, Props: props})
	}
	merged.Features = append(merged.Features, to.Features...)
	return merged, nil
}

func toCentroids(l *vector.Layer) {
	for i, f := range l.Features {
		if f.Geom != nil {
			l.Features[i].Geom = f.Geom.Centroid()
		}
	}
}

// Run aligns the file at pathOne to the file at pathTo. When output is not
// empty the merged layer is written there.
func Run(pathOne, pathTo, output string, convertPolygons bool) (*vector.Layer, error) {
	one, err := vector.Read(pathOne)
	if err != nil {
		return nil, fmt.Errorf("failed to read input files: %w", err)
	}
	to, err := vector.Read(pathTo)
	if err != nil {
		return nil, fmt.Errorf("failed to read input files: %w", err)
	}

	merged, err := Align(one, to, convertPolygons)
	if err != nil {
		return nil, err
	}
	if output == "" {
		return merged, nil
	}

	shp := strings.EqualFold(filepath.Ext(output), ".shp")
	if shp {
		if long := LongFieldNames(merged); len(long) > 0 {
			logrus.Warnf("these field names exceed %d characters and may be truncated in shapefiles: %s; "+
				"consider GeoPackage (.gpkg) to preserve full field names", maxShapefileField, strings.Join(long, ", "))
		}
	}
	merged.Name = vector.Stem(output)
	if err := vector.Write(output, merged); err != nil {
		return nil, fmt.Errorf("failed to write output file: %w", err)
	}
	logrus.Infof("successfully wrote output to %s", output)

	if shp {
		written, err := vector.Read(output)
		if err != nil {
			return nil, err
		}
		logrus.Infof("output field names: %v", written.FieldNames())
	}
	return merged, nil
}

// LongFieldNames lists the columns whose names a shapefile cannot hold.
func LongFieldNames(l *vector.Layer) []string {
	var out []string
	for _, f := range l.Fields {
		if len(f.Name) > maxShapefileField {
			out = append(out, f.Name)
		}
	}
	return out
}
