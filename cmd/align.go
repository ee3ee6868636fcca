package cmd

import (
	"fmt"

	"github.com/erick-otenyo/gisflow/align"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var alignCmd = &cobra.Command{
	Use:   "align <file-one> <file-to> <output>",
	Short: "Append one vector file to another using the latter's attributes",
	Long: `Align the attribute table and CRS of <file-one> to <file-to> and write
both feature sets to <output>. Columns missing from <file-one> are left
empty and extra ones are dropped. With --centroids, polygons of <file-one>
are replaced by their centroids first.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		merged, err := align.Run(args[0], args[1], args[2], viper.GetBool(key(cmd, "centroids")))
		if err != nil {
			return err
		}
		fmt.Printf("%d features written to %s\n", len(merged.Features), args[2])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(alignCmd)
	alignCmd.Flags().Bool("centroids", false, "convert polygons of the first file to centroids")
	bindFlags(alignCmd)
}
