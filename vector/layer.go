package vector

import (
	"sort"

	"github.com/airbusgeo/godal"
	"github.com/twpayne/go-geos"
)

// Field is an attribute column.
type Field struct {
	Name string
	Type godal.FieldType
}

// Feature is a geometry with its attribute values. A missing or nil
// property is written as an unset field.
type Feature struct {
	Geom  *geos.Geom
	Props map[string]any
}

// Layer is an in-memory vector layer. SRS is WKT, empty when unknown.
type Layer struct {
	Name     string
	SRS      string
	Fields   []Field
	Features []Feature
}

// Field returns the column called name.
func (l *Layer) Field(name string) (Field, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldNames lists the column names in layer order.
func (l *Layer) FieldNames() []string {
	out := make([]string, len(l.Fields))
	for i, f := range l.Fields {
		out[i] = f.Name
	}
	return out
}

// AddField appends a column unless it exists.
func (l *Layer) AddField(name string, ft godal.FieldType) {
	if _, ok := l.Field(name); ok {
		return
	}
	l.Fields = append(l.Fields, Field{Name: name, Type: ft})
}

// Bounds is the total envelope of the layer as minx, miny, maxx, maxy.
func (l *Layer) Bounds() ([4]float64, bool) {
	var b [4]float64
	found := false
	for _, f := range l.Features {
		if f.Geom == nil || f.Geom.IsEmpty() {
			continue
		}
		fb := f.Geom.Bounds()
		if !found {
			b = [4]float64{fb.MinX, fb.MinY, fb.MaxX, fb.MaxY}
			found = true
			continue
		}
		b[0], b[1] = min(b[0], fb.MinX), min(b[1], fb.MinY)
		b[2], b[3] = max(b[2], fb.MaxX), max(b[3], fb.MaxY)
	}
	return b, found
}

func sortFields(fields []Field) {
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
}
