package cmd

import (
	"fmt"

	"github.com/erick-otenyo/gisflow/patches"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var patchesCmd = &cobra.Command{
	Use:   "patches <tile-dir> <output>",
	Short: "Polygonize a directory of raster tiles into one merged layer",
	Long: `Polygonize every *.tif of a directory into exterior-ring polygons,
merge them with chunked unions and write them with an AREA attribute.

The output format follows the extension: .shp, .gpkg, .geojson or .fgb.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := patches.Options{
			Workers:   viper.GetInt(key(cmd, "workers")),
			BatchSize: viper.GetInt(key(cmd, "batch-size")),
			Tolerance: viper.GetFloat64(key(cmd, "tolerance")),
			ChunkSize: viper.GetInt(key(cmd, "chunk-size")),
		}
		s, err := patches.Run(args[0], args[1], opts)
		if err != nil {
			return err
		}
		fmt.Printf("%d features from %d of %d tiles written to %s\n", s.Features, s.TilesUsed, s.Tiles, s.Output)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(patchesCmd)
	d := patches.DefaultOptions()
	patchesCmd.Flags().IntP("workers", "n", 0, "number of workers, at most 10 (default one per CPU)")
	patchesCmd.Flags().Int("batch-size", d.BatchSize, "tiles per batch")
	patchesCmd.Flags().Float64("tolerance", d.Tolerance, "simplification tolerance in CRS units")
	patchesCmd.Flags().Int("chunk-size", d.ChunkSize, "polygons per union chunk")
	bindFlags(patchesCmd)
}
