package cmd

import (
	"fmt"

	"github.com/erick-otenyo/gisflow/crowns"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var crownsCmd = &cobra.Command{
	Use:   "crowns <image> <output>",
	Short: "Detect tree crowns in a single band image",
	Long: `Detect tree crowns as external contours of pixels that are both
within a brightness range and above a Sobel edge threshold. Contours are
filtered by area and written as polygons in the target CRS.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := crowns.Options{
			AOIPath:        viper.GetString(key(cmd, "aoi")),
			TargetCRS:      viper.GetString(key(cmd, "crs")),
			BrightnessLow:  viper.GetFloat64(key(cmd, "brightness-low")),
			BrightnessHigh: viper.GetFloat64(key(cmd, "brightness-high")),
			MinArea:        viper.GetFloat64(key(cmd, "min-area")),
			SobelThreshold: viper.GetFloat64(key(cmd, "sobel-threshold")),
		}
		n, err := crowns.Run(args[0], args[1], opts)
		if err != nil {
			return err
		}
		fmt.Printf("%d crowns written to %s\n", n, args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(crownsCmd)
	d := crowns.DefaultOptions()
	crownsCmd.Flags().String("aoi", "", "vector file limiting the detection")
	crownsCmd.Flags().String("crs", d.TargetCRS, "target CRS")
	crownsCmd.Flags().Float64("brightness-low", d.BrightnessLow, "lowest crown brightness")
	crownsCmd.Flags().Float64("brightness-high", d.BrightnessHigh, "highest crown brightness")
	crownsCmd.Flags().Float64("min-area", d.MinArea, "minimum contour area in square pixels")
	crownsCmd.Flags().Float64("sobel-threshold", d.SobelThreshold, "minimum Sobel response")
	bindFlags(crownsCmd)
}
