package cmd

import (
	"fmt"

	"github.com/erick-otenyo/gisflow/intersect"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var intersectCmd = &cobra.Command{
	Use:   "intersect <large> <small> <output>",
	Short: "Intersect two polygon layers tile by tile",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := intersect.Options{
			TilesX:   viper.GetInt(key(cmd, "tiles-x")),
			TilesY:   viper.GetInt(key(cmd, "tiles-y")),
			Parallel: !viper.GetBool(key(cmd, "sequential")),
		}
		n, err := intersect.Run(args[0], args[1], args[2], opts)
		if err != nil {
			return err
		}
		if n == 0 {
			fmt.Println("no intersections found")
			return nil
		}
		fmt.Printf("%d intersections written to %s\n", n, args[2])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(intersectCmd)
	d := intersect.DefaultOptions()
	intersectCmd.Flags().Int("tiles-x", d.TilesX, "tiles along x")
	intersectCmd.Flags().Int("tiles-y", d.TilesY, "tiles along y")
	intersectCmd.Flags().Bool("sequential", false, "process tiles one at a time")
	bindFlags(intersectCmd)
}
