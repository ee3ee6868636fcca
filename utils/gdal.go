package utils

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/sirupsen/logrus"
)

var initOnce sync.Once

// InitGdal sets GDAL environment defaults and registers the drivers. It is
// safe to call more than once.
func InitGdal() {
	initOnce.Do(func() {
		setDefaultEnv("GDAL_PAM_ENABLED", "NO")
		setDefaultEnv("GDAL_DISABLE_READDIR_ON_OPEN", "EMPTY_DIR")
		setDefaultEnv("GDAL_MAX_DATASET_POOL_SIZE", "10")
		setDefaultEnv("OGR_SQLITE_SYNCHRONOUS", "OFF")
		setDefaultEnv("SHAPE_RESTORE_SHX", "YES")

		exeFilePath, err := os.Executable()
		if err == nil {
			setDefaultEnv("GDAL_DRIVER_PATH", filepath.Dir(exeFilePath))
		}

		registerGDALDrivers()
	})
}

func setDefaultEnv(envVar string, defaultVal string) {
	if _, ok := os.LookupEnv(envVar); !ok {
		os.Setenv(envVar, defaultVal)
	}
}

func registerGDALDrivers() {
	// Drivers are interrogated in a linear scan when opening files, so the
	// ones used by every command go to the front of the list.
	if err := godal.RegisterRaster(godal.GTiff); err != nil {
		logrus.Debugf("GTiff driver: %v", err)
	}
	if err := godal.RegisterVector(godal.GeoPackage, godal.GeoJSON, godal.Shapefile); err != nil {
		logrus.Debugf("vector drivers: %v", err)
	}

	// Now register everything else
	godal.RegisterAll()
}
