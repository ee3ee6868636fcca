package vector

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/airbusgeo/godal"
	"github.com/sirupsen/logrus"
)

var ErrNoLayers = errors.New("dataset has no layers")

// Read loads the first layer of a vector file.
func Read(path string) (*Layer, error) {
	layers, err := ReadAll(path)
	if err != nil {
		return nil, err
	}
	return layers[0], nil
}

// ReadAll loads every layer of a vector file.
func ReadAll(path string) ([]*Layer, error) {
	ds, err := godal.Open(path, godal.VectorOnly())
	if err != nil {
		return nil, fmt.Errorf("gdal could not open dataset %s: %w", path, err)
	}
	defer ds.Close()

	var out []*Layer
	for _, l := range ds.Layers() {
		layer, err := readLayer(l)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, layer)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoLayers)
	}
	return out, nil
}

func readLayer(l godal.Layer) (*Layer, error) {
	layer := &Layer{Name: l.Name()}
	if sr := l.SpatialRef(); sr != nil {
		if wkt, err := sr.WKT(); err == nil {
			layer.SRS = wkt
		}
	}

	seen := map[string]bool{}
	l.ResetReading()
	for {
		feat := l.NextFeature()
		if feat == nil {
			break
		}
		f, err := readFeature(feat)
		feat.Close()
		if err != nil {
			return nil, err
		}
		for name, ft := range f.types {
			if !seen[name] {
				seen[name] = true
				layer.Fields = append(layer.Fields, Field{Name: name, Type: ft})
			}
		}
		layer.Features = append(layer.Features, f.Feature)
	}
	// godal exposes attributes as a map, so columns come out sorted by name
	sortFields(layer.Fields)
	return layer, nil
}

type typedFeature struct {
	Feature
	types map[string]godal.FieldType
}

func readFeature(feat *godal.Feature) (typedFeature, error) {
	tf := typedFeature{
		Feature: Feature{Props: map[string]any{}},
		types:   map[string]godal.FieldType{},
	}
	if g := feat.Geometry(); g != nil && !g.Empty() {
		geom, err := FromGodal(g)
		if err != nil {
			return tf, fmt.Errorf("decode feature geometry: %w", err)
		}
		tf.Geom = geom
	}
	for name, fld := range feat.Fields() {
		tf.types[name] = fld.Type()
		if !fld.IsSet() {
			tf.Props[name] = nil
			continue
		}
		tf.Props[name] = propValue(fld)
	}
	return tf, nil
}

// propValue returns a field value as the Go type SetFieldValue takes back
// for the same field type.
func propValue(fld godal.Field) any {
	switch fld.Type() {
	case godal.FTInt:
		return int(fld.Int())
	case godal.FTInt64:
		return fld.Int()
	case godal.FTReal:
		return fld.Float()
	case godal.FTDate, godal.FTTime, godal.FTDateTime:
		if t := fld.DateTime(); t != nil {
			return *t
		}
		return nil
	case godal.FTIntList:
		l := fld.IntList()
		out := make([]int, len(l))
		for i, n := range l {
			out[i] = int(n)
		}
		return out
	case godal.FTInt64List:
		return fld.IntList()
	case godal.FTRealList:
		return fld.FloatList()
	case godal.FTStringList:
		return fld.StringList()
	case godal.FTBinary:
		return fld.Bytes()
	}
	return fld.String()
}

// Write replaces path with a vector file holding the given layers. The
// driver follows the extension; missing directories are created.
func Write(path string, layers ...*Layer) error {
	driver, err := DriverFromPath(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := Remove(path); err != nil {
		return err
	}

	// features are assembled in memory, where they can be updated in place,
	// then translated to the output driver in one pass
	mem, err := godal.CreateVector(godal.Memory, "")
	if err != nil {
		return fmt.Errorf("create memory dataset: %w", err)
	}
	defer mem.Close()
	for _, l := range layers {
		if err := writeLayer(mem, l, path); err != nil {
			return err
		}
	}

	out, err := mem.VectorTranslate(path, []string{"-f", string(driver)})
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return out.Close()
}

// Remove deletes a vector file along with shapefile sidecars.
func Remove(path string) error {
	paths := []string{path}
	if strings.EqualFold(filepath.Ext(path), ".shp") {
		base := strings.TrimSuffix(path, filepath.Ext(path))
		for _, ext := range []string{".shx", ".dbf", ".prj", ".cpg", ".qix"} {
			paths = append(paths, base+ext)
		}
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func writeLayer(ds *godal.Dataset, l *Layer, path string) error {
	var sr *godal.SpatialRef
	if l.SRS != "" {
		s, err := godal.NewSpatialRefFromWKT(l.SRS)
		if err != nil {
			return fmt.Errorf("layer %s srs: %w", l.Name, err)
		}
		defer s.Close()
		sr = s
	}
	name := l.Name
	if name == "" {
		name = Stem(path)
	}

	opts := make([]godal.CreateLayerOption, 0, len(l.Fields))
	for _, f := range l.Fields {
		opts = append(opts, godal.NewFieldDefinition(f.Name, f.Type))
	}
	out, err := ds.CreateLayer(name, sr, layerGeometryType(l), opts...)
	if err != nil {
		return fmt.Errorf("create layer %s: %w", name, err)
	}

	for i, f := range l.Features {
		if err := writeFeature(out, f, sr); err != nil {
			return fmt.Errorf("layer %s feature %d: %w", name, i, err)
		}
	}
	logrus.Debugf("prepared %d features for %s:%s", len(l.Features), path, name)
	return nil
}

func writeFeature(out godal.Layer, f Feature, sr *godal.SpatialRef) error {
	if f.Geom == nil {
		logrus.Warn("feature without geometry skipped")
		return nil
	}
	g, err := ToGodal(f.Geom, sr)
	if err != nil {
		return err
	}
	defer g.Close()
	feat, err := out.NewFeature(g)
	if err != nil {
		return err
	}
	defer feat.Close()
	if len(f.Props) == 0 {
		return nil
	}

	fields := feat.Fields()
	for name, v := range f.Props {
		if v == nil {
			continue
		}
		fld, ok := fields[name]
		if !ok {
			logrus.Debugf("field %s not in output layer, skipped", name)
			continue
		}
		val, err := fieldValue(v, fld.Type())
		if err != nil {
			logrus.Warnf("field %s left unset: %v", name, err)
			continue
		}
		if err := feat.SetFieldValue(fld, val); err != nil {
			return fmt.Errorf("set %s: %w", name, err)
		}
	}
	return out.UpdateFeature(feat)
}

func layerGeometryType(l *Layer) godal.GeometryType {
	types := GeometryTypes(l)
	switch {
	case len(types) == 1 && types[0] == "Point":
		return godal.GTPoint
	case len(types) == 1 && types[0] == "MultiPoint":
		return godal.GTMultiPoint
	case len(types) == 1 && types[0] == "Polygon":
		return godal.GTPolygon
	case len(types) > 0 && allPolygonal(types):
		return godal.GTMultiPolygon
	}
	return godal.GTUnknown
}

func allPolygonal(types []string) bool {
	for _, t := range types {
		if t != "Polygon" && t != "MultiPolygon" {
			return false
		}
	}
	return true
}
