package cmd

import (
	"github.com/erick-otenyo/gisflow/fileserver"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve [dir]",
	Short: "Serve a directory over HTTP with CORS enabled",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}
		return fileserver.ListenAndServe(viper.GetString(key(cmd, "addr")), root)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", fileserver.DefaultAddr, "listen address")
	bindFlags(serveCmd)
}
