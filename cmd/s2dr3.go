package cmd

import (
	"encoding/json"
	"os"

	"github.com/erick-otenyo/gisflow/s2dr3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var s2dr3Cmd = &cobra.Command{
	Use:   "s2dr3 <user-id>",
	Short: "Fetch the S2DR3 job data of a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := s2dr3.NewClient()
		c.BaseURL = viper.GetString(key(cmd, "base-url"))
		c.Job = viper.GetString(key(cmd, "job"))
		c.HTTP.Timeout = viper.GetDuration(key(cmd, "timeout"))

		data, err := c.Fetch(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	},
}

func init() {
	rootCmd.AddCommand(s2dr3Cmd)
	d := s2dr3.NewClient()
	s2dr3Cmd.Flags().String("base-url", d.BaseURL, "API base URL")
	s2dr3Cmd.Flags().String("job", d.Job, "job identifier")
	s2dr3Cmd.Flags().Duration("timeout", d.HTTP.Timeout, "request timeout")
	bindFlags(s2dr3Cmd)
}
