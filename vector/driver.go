package vector

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/airbusgeo/godal"
)

var ErrUnsupportedFormat = errors.New("unsupported output format")

var drivers = map[string]godal.DriverName{
	".gpkg":    godal.GeoPackage,
	".geojson": godal.GeoJSON,
	".shp":     godal.Shapefile,
	".fgb":     godal.DriverName("FlatGeobuf"),
}

// DriverFromPath picks the OGR driver for a file from its extension.
func DriverFromPath(path string) (godal.DriverName, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if d, ok := drivers[ext]; ok {
		return d, nil
	}
	supported := make([]string, 0, len(drivers))
	for k := range drivers {
		supported = append(supported, k)
	}
	sort.Strings(supported)
	return "", fmt.Errorf("%w %q, supported: %s", ErrUnsupportedFormat, ext, strings.Join(supported, ", "))
}

// Stem is the file name without directory and extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
