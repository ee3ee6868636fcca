// Package kmlstyle restyles the placemarks of a KML file as pushpins
// coloured by the category of one attribute.
package kmlstyle

import (
	"encoding/xml"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sirupsen/logrus"
)

const pushpin = "http://maps.google.com/mapfiles/kml/pushpin/wht-pushpin.png"

var ErrNoValues = errors.New("no values found for attribute")

// Assignment is the style given to one attribute value.
type Assignment struct {
	Value   string
	R, G, B uint8
	Scale   float64
}

// Color is the KML aabbggrr form of the assignment's colour.
func (a Assignment) Color() string {
	return fmt.Sprintf("ff%02x%02x%02x", a.B, a.G, a.R)
}

type Options struct {
	Attribute string
	// Seed drives the colour draw; zero picks a time based seed.
	Seed int64
}

func DefaultOptions() Options {
	return Options{Attribute: "ET"}
}

// Style reads the KML at input and writes the restyled points to output.
func Style(input, output string, opts Options) ([]Assignment, error) {
	f, err := os.Open(input)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var root node
	if err := xml.NewDecoder(f).Decode(&root); err != nil {
		return nil, fmt.Errorf("parse %s: %w", input, err)
	}

	attr := opts.Attribute
	if attr == "" {
		attr = "ET"
	}
	placemarks := root.findAll("Placemark")

	values := mapset.NewThreadUnsafeSet[string]()
	for _, pm := range placemarks {
		if sd := schemaData(pm); sd != nil {
			for _, d := range sd.findAll("SimpleData") {
				if name, _ := d.attr("name"); name == strings.ToUpper(attr) {
					if v := strings.TrimSpace(d.innerText()); v != "" {
						values.Add(strings.ToLower(v))
					}
				}
			}
		}
	}
	logrus.Debugf("found values: %v", values)
	if values.Cardinality() == 0 {
		return nil, fmt.Errorf("%w %q", ErrNoValues, attr)
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	assignments := assignColors(values.ToSlice(), rand.New(rand.NewSource(seed)))

	doc := kmlDoc{Xmlns: "http://www.opengis.net/kml/2.2"}
	styleIDs := map[string]string{}
	for i, a := range assignments {
		id := fmt.Sprintf("style_%d", i)
		styleIDs[a.Value] = id
		doc.Document.Styles = append(doc.Document.Styles, style{
			ID:        id,
			IconStyle: iconStyle{Color: a.Color(), Scale: a.Scale, Icon: icon{Href: pushpin}},
		})
	}
	for _, pm := range placemarks {
		p, ok := restyle(pm, attr, styleIDs)
		if ok {
			doc.Document.Placemarks = append(doc.Document.Placemarks, p)
		}
	}

	if err := writeKML(output, doc); err != nil {
		return nil, err
	}
	logrus.Infof("styled KML with %d points saved to %s", len(doc.Document.Placemarks), output)
	for _, a := range assignments {
		logrus.Infof("%s: RGB(%d, %d, %d)", a.Value, a.R, a.G, a.B)
	}
	return assignments, nil
}

// assignColors draws a distinct colour with channels in [50, 200] for each
// value in sorted order; icons grow by 0.1 per value.
func assignColors(values []string, rng *rand.Rand) []Assignment {
	sort.Strings(values)
	used := map[[3]uint8]bool{}
	out := make([]Assignment, 0, len(values))
	for i, v := range values {
		var c [3]uint8
		for {
			c = [3]uint8{channel(rng), channel(rng), channel(rng)}
			if !used[c] {
				used[c] = true
				break
			}
		}
		out = append(out, Assignment{
			Value: v,
			R:     c[0], G: c[1], B: c[2],
			Scale: math.Round((1+float64(i)*0.1)*10) / 10,
		})
	}
	return out
}

func channel(rng *rand.Rand) uint8 {
	return uint8(50 + rng.Intn(151))
}

func schemaData(pm *node) *node {
	ext := pm.find("ExtendedData")
	if ext == nil {
		return nil
	}
	return ext.find("SchemaData")
}

// restyle turns a placemark into a styled point at its first coordinate.
func restyle(pm *node, attr string, styleIDs map[string]string) (outPlacemark, bool) {
	sd := schemaData(pm)
	if sd == nil {
		return outPlacemark{}, false
	}
	// only the first SimpleData named after the attribute counts, blank or not
	var value string
	found := false
	var ext extendedData
	for _, d := range sd.findAll("SimpleData") {
		name, ok := d.attr("name")
		if !ok {
			continue
		}
		if !found && name == strings.ToUpper(attr) {
			found = true
			value = strings.ToLower(strings.TrimSpace(d.innerText()))
		}
		ext.Data = append(ext.Data, data{Name: name, Value: d.innerText()})
	}
	if value == "" {
		return outPlacemark{}, false
	}
	coords := pm.find("coordinates")
	if coords == nil {
		return outPlacemark{}, false
	}
	lon, lat, err := firstCoordinate(coords.innerText())
	if err != nil {
		logrus.Debugf("placemark %s skipped: %v", value, err)
		return outPlacemark{}, false
	}

	return outPlacemark{
		Name:         fmt.Sprintf("%s: %s", attr, value),
		StyleURL:     "#" + styleIDs[value],
		ExtendedData: &ext,
		Point:        point{Coordinates: fmt.Sprintf("%s,%s,0", formatCoord(lon), formatCoord(lat))},
	}, true
}

func firstCoordinate(s string) (float64, float64, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, 0, errors.New("empty coordinates")
	}
	parts := strings.Split(fields[0], ",")
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("invalid coordinate %q", fields[0])
	}
	lon, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, err
	}
	lat, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, err
	}
	return lon, lat, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeKML(path string, doc kmlDoc) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := out.WriteString(xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(out)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return out.Close()
}
