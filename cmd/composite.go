package cmd

import (
	"fmt"

	"github.com/erick-otenyo/gisflow/composite"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var compositeCmd = &cobra.Command{
	Use:   "composite <catalog.csv> <output-dir>",
	Short: "Build vegetation cover or land surface temperature composites",
	Long: `Composite Sentinel-2 scenes listed in a catalog CSV
(id,date,cloud,red,nir,qa) into vegetation cover rasters over bi-weekly,
monthly or continuous n-day periods. Cloudy pixels (QA60 bits 10 and 11)
are masked, NDVI is thresholded and the latest clear observation wins.

With --product lst, Landsat 8 scenes (id,date,cloud,st,qa) are turned into
monthly mean land surface temperature in degrees Celsius, masking QA_PIXEL
cloud and shadow. A metadata CSV describes every run.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := composite.Options{
			Mode:       composite.Mode(viper.GetString(key(cmd, "mode"))),
			Product:    composite.Product(viper.GetString(key(cmd, "product"))),
			Year:       viper.GetInt(key(cmd, "year")),
			Months:     viper.GetInt(key(cmd, "months")),
			StartMonth: viper.GetInt(key(cmd, "start-month")),
			EndMonth:   viper.GetInt(key(cmd, "end-month")),
			Window:     viper.GetInt(key(cmd, "window")),
			Days:       viper.GetInt(key(cmd, "days")),
			Threshold:  viper.GetFloat64(key(cmd, "threshold")),
			CloudMax:   viper.GetFloat64(key(cmd, "cloud-max")),
			AOIPath:    viper.GetString(key(cmd, "aoi")),
			ExportNDVI: viper.GetBool(key(cmd, "ndvi")),
			Workers:    viper.GetInt(key(cmd, "workers")),
		}
		s, err := composite.Run(args[0], args[1], opts)
		if err != nil {
			return err
		}
		for _, f := range s.Files {
			fmt.Println(f)
		}
		fmt.Printf("metadata: %s\n", s.Metadata)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compositeCmd)
	d := composite.DefaultOptions()
	compositeCmd.Flags().String("mode", string(d.Mode), "biweekly, monthly or continuous")
	compositeCmd.Flags().String("product", string(d.Product), "vc or lst (monthly only)")
	compositeCmd.Flags().Int("year", d.Year, "year to composite")
	compositeCmd.Flags().Int("months", d.Months, "months covered by bi-weekly periods")
	compositeCmd.Flags().Int("start-month", d.StartMonth, "first month of monthly composites")
	compositeCmd.Flags().Int("end-month", d.EndMonth, "last month of monthly composites")
	compositeCmd.Flags().Int("window", d.Window, "bi-weekly acquisition window in days")
	compositeCmd.Flags().Int("days", d.Days, "length of continuous periods in days")
	compositeCmd.Flags().Float64("threshold", d.Threshold, "NDVI threshold for vegetation")
	compositeCmd.Flags().Float64("cloud-max", d.CloudMax, "maximum scene cloud cover in percent")
	compositeCmd.Flags().String("aoi", "", "GeoJSON area of interest")
	compositeCmd.Flags().Bool("ndvi", false, "also export mean NDVI rasters")
	compositeCmd.Flags().IntP("workers", "n", d.Workers, "number of period workers")
	bindFlags(compositeCmd)
}
