package cmd

import (
	"fmt"

	"github.com/erick-otenyo/gisflow/raster"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var clipCmd = &cobra.Command{
	Use:   "clip",
	Short: "Clip a GeoTIFF to the first feature of a GeoJSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		filePath := viper.GetString(key(cmd, "file"))
		geomPath := viper.GetString(key(cmd, "geom"))
		outPath := viper.GetString(key(cmd, "out"))
		if filePath == "" {
			return fmt.Errorf("file required")
		}
		if geomPath == "" {
			return fmt.Errorf("geojson required")
		}
		if outPath == "" {
			return fmt.Errorf("out file required")
		}
		return raster.Clip(filePath, geomPath, outPath)
	},
}

func init() {
	rootCmd.AddCommand(clipCmd)
	clipCmd.Flags().StringP("file", "f", "", "raster file path")
	clipCmd.Flags().StringP("geom", "g", "", "GeoJSON geometry path")
	clipCmd.Flags().StringP("out", "o", "", "output file path")
	bindFlags(clipCmd)
}
