package cmd

import (
	"fmt"

	"github.com/erick-otenyo/gisflow/clump"
	"github.com/erick-otenyo/gisflow/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var clumpCmd = &cobra.Command{
	Use:   "clump <raster>",
	Short: "Group null cells of a raster into distance based clumps",
	Long: `Relabel the zero cells of a raster: cells whose focal window holds
another zero are grouped into 8-connected clumps labelled 1..n, and every
other cell is shifted up by the number of clumps.

Large rasters are processed in tiles. Results are written next to the input
as <name>_CLUMP_<distance>.tif, or as per-tile files plus a _FULL mosaic.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := clump.Options{
			Distance:  viper.GetInt(key(cmd, "distance")),
			TileW:     viper.GetInt(key(cmd, "tile-width")),
			TileH:     viper.GetInt(key(cmd, "tile-height")),
			WriteTo:   !viper.GetBool(key(cmd, "no-write")),
			OutputDir: viper.GetString(key(cmd, "output-dir")),
			Workers:   viper.GetInt(key(cmd, "workers")),
		}
		if name := viper.GetString(key(cmd, "dtype")); name != "" {
			dt, err := utils.ParseDataType(name)
			if err != nil {
				return err
			}
			opts.DataType = dt
		}
		res, err := clump.Run(args[0], opts)
		if err != nil {
			return err
		}
		fmt.Printf("unique values: %v\n", res.Values)
		if res.Output != "" {
			fmt.Printf("written to %s in %.2fs\n", res.Output, res.Elapsed.Seconds())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clumpCmd)
	d := clump.DefaultOptions()
	clumpCmd.Flags().IntP("distance", "d", d.Distance, "focal window size in pixels")
	clumpCmd.Flags().Int("tile-width", d.TileW, "tile width in pixels")
	clumpCmd.Flags().Int("tile-height", d.TileH, "tile height in pixels")
	clumpCmd.Flags().Bool("no-write", false, "only report the unique values")
	clumpCmd.Flags().String("output-dir", "", "directory for the results (default next to the input)")
	clumpCmd.Flags().String("dtype", "", "output data type, e.g. UInt16 or Float32 (default Int32 when the input fits)")
	clumpCmd.Flags().IntP("workers", "n", 0, "number of tile workers (default one per CPU)")
	bindFlags(clumpCmd)
}
