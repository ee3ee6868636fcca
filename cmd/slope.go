package cmd

import (
	"fmt"

	"github.com/erick-otenyo/gisflow/slope"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var slopeCmd = &cobra.Command{
	Use:   "slope <dem> <output>",
	Short: "Compute slope in degrees with Horn's method",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := slope.Options{
			Resolution: viper.GetFloat64(key(cmd, "resolution")),
			TileSize:   viper.GetInt(key(cmd, "tile-size")),
			Workers:    viper.GetInt(key(cmd, "workers")),
		}
		elapsed, err := slope.Run(args[0], args[1], opts)
		if err != nil {
			return err
		}
		fmt.Printf("slope written to %s in %.2fs\n", args[1], elapsed.Seconds())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(slopeCmd)
	d := slope.DefaultOptions()
	slopeCmd.Flags().Float64P("resolution", "r", d.Resolution, "pixel size in elevation units, 0 takes the DEM pixel width")
	slopeCmd.Flags().Int("tile-size", d.TileSize, "tile size in pixels")
	slopeCmd.Flags().IntP("workers", "n", 0, "number of tile workers (default one per CPU)")
	bindFlags(slopeCmd)
}
