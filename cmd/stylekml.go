package cmd

import (
	"fmt"

	"github.com/erick-otenyo/gisflow/kmlstyle"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var stylekmlCmd = &cobra.Command{
	Use:   "stylekml <input.kml> <output.kml>",
	Short: "Colour and scale KML point icons by an attribute",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := kmlstyle.Options{
			Attribute: viper.GetString(key(cmd, "attribute")),
			Seed:      viper.GetInt64(key(cmd, "seed")),
		}
		assigned, err := kmlstyle.Style(args[0], args[1], opts)
		if err != nil {
			return err
		}
		for _, a := range assigned {
			fmt.Printf("%s\t%s\tscale %.1f\n", a.Value, a.Color(), a.Scale)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stylekmlCmd)
	d := kmlstyle.DefaultOptions()
	stylekmlCmd.Flags().StringP("attribute", "a", d.Attribute, "extended data field to style by")
	stylekmlCmd.Flags().Int64("seed", 0, "colour seed (default time based)")
	bindFlags(stylekmlCmd)
}
