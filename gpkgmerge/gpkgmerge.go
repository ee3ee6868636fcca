// Package gpkgmerge collects the layers of a folder of vector files into a
// single GeoPackage.
package gpkgmerge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/airbusgeo/godal"
	"github.com/erick-otenyo/gisflow/vector"
	"github.com/sirupsen/logrus"
)

// MergeToGPKG copies every shapefile and GeoJSON of inputDir into output as
// a layer named after the file, and every layer of each GeoPackage under
// its own name. It returns the names of the layers written.
func MergeToGPKG(inputDir, output string) ([]string, error) {
	return merge(inputDir, output, []string{".shp", ".geojson", ".gpkg"}, func(file string, l godal.Layer) string {
		if strings.EqualFold(filepath.Ext(file), ".gpkg") {
			return l.Name()
		}
		return vector.Stem(file)
	})
}

// PrefixedGPKG copies the layers of every GeoPackage of inputDir into
// output, renamed <file>_<layer> so that equal layer names do not clash.
func PrefixedGPKG(inputDir, output string) ([]string, error) {
	return merge(inputDir, output, []string{".gpkg"}, func(file string, l godal.Layer) string {
		return vector.Stem(file) + "_" + l.Name()
	})
}

func merge(inputDir, output string, exts []string, name func(file string, l godal.Layer) string) ([]string, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, err
	}
	if err := os.RemoveAll(output); err != nil {
		return nil, err
	}
	out, err := godal.CreateVector(godal.GeoPackage, output)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", output, err)
	}

	absOut, _ := filepath.Abs(output)
	var names []string
	for _, e := range entries {
		if e.IsDir() || !hasExt(e.Name(), exts) {
			continue
		}
		path := filepath.Join(inputDir, e.Name())
		if abs, _ := filepath.Abs(path); abs == absOut {
			continue
		}
		copied, err := copyLayers(out, path, e.Name(), name)
		if err != nil {
			out.Close()
			return nil, err
		}
		names = append(names, copied...)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("close %s: %w", output, err)
	}
	logrus.Infof("success, %d layers written to %s", len(names), output)
	return names, nil
}

func copyLayers(out *godal.Dataset, path, file string, name func(string, godal.Layer) string) ([]string, error) {
	src, err := godal.Open(path, godal.VectorOnly())
	if err != nil {
		return nil, fmt.Errorf("gdal could not open dataset %s: %w", path, err)
	}
	defer src.Close()

	layers := src.Layers()
	// single layer formats contribute their first layer only
	if !strings.EqualFold(filepath.Ext(file), ".gpkg") && len(layers) > 1 {
		layers = layers[:1]
	}
	var names []string
	for _, l := range layers {
		n := name(file, l)
		if _, err := out.CopyLayer(l, n); err != nil {
			return nil, fmt.Errorf("copy layer %s of %s: %w", l.Name(), path, err)
		}
		logrus.Debugf("copied %s:%s as %s", file, l.Name(), n)
		names = append(names, n)
	}
	return names, nil
}

// ToFileGDB converts every layer of a GeoPackage into an ESRI File
// Geodatabase with GDAL's OpenFileGDB driver, which writes from GDAL 3.6.
func ToFileGDB(gpkg, gdb string) error {
	if !strings.EqualFold(filepath.Ext(gpkg), ".gpkg") {
		return fmt.Errorf("input must be a GeoPackage (.gpkg file): %s", gpkg)
	}
	src, err := godal.Open(gpkg, godal.VectorOnly())
	if err != nil {
		return fmt.Errorf("input GeoPackage not found: %w", err)
	}
	defer src.Close()
	if len(src.Layers()) == 0 {
		logrus.Warnf("no feature classes found in %s", gpkg)
		return nil
	}
	if err := os.RemoveAll(gdb); err != nil {
		return err
	}
	dst, err := src.VectorTranslate(gdb, []string{"-f", "OpenFileGDB"})
	if err != nil {
		return fmt.Errorf("convert %s to %s: %w", gpkg, gdb, err)
	}
	for _, l := range dst.Layers() {
		logrus.Infof("converted %s -> %s", l.Name(), filepath.Join(gdb, l.Name()))
	}
	return dst.Close()
}

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
