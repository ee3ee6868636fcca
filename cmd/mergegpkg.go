package cmd

import (
	"fmt"

	"github.com/erick-otenyo/gisflow/gpkgmerge"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var mergegpkgCmd = &cobra.Command{
	Use:   "mergegpkg <input-dir> <output.gpkg>",
	Short: "Merge the vector files of a directory into one GeoPackage",
	Long: `Copy every shapefile, GeoJSON and GeoPackage layer of a directory into
one GeoPackage. With --prefixed only GeoPackages are read and their layers
are renamed <file>_<layer>. With --gdb the result is also converted to a
File Geodatabase.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		merge := gpkgmerge.MergeToGPKG
		if viper.GetBool(key(cmd, "prefixed")) {
			merge = gpkgmerge.PrefixedGPKG
		}
		layers, err := merge(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("%d layers merged into %s\n", len(layers), args[1])
		if gdb := viper.GetString(key(cmd, "gdb")); gdb != "" {
			if err := gpkgmerge.ToFileGDB(args[1], gdb); err != nil {
				return err
			}
			fmt.Printf("converted to %s\n", gdb)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mergegpkgCmd)
	mergegpkgCmd.Flags().Bool("prefixed", false, "merge GeoPackage layers as <file>_<layer>")
	mergegpkgCmd.Flags().String("gdb", "", "also write a File Geodatabase")
	bindFlags(mergegpkgCmd)
}
