// Package cmd wires the gisflow tools into a cobra command tree. Every flag
// is bound into viper under "<command>.<flag>" so that it can also come
// from the config file or a GISFLOW_<COMMAND>_<FLAG> environment variable.
package cmd

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/erick-otenyo/gisflow/utils"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "gisflow",
	Short: "Raster and vector processing tools built on GDAL",
	Long: `gisflow bundles raster to polygon conversion, clumping, slope,
tree crown detection, attribute alignment, KML styling, tiled intersection,
GeoPackage merging, vegetation cover compositing, a small file server and
the GeoTIFF clipper.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setLogLevels()
		utils.InitGdal()
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default .gisflow.yaml in $HOME or the working directory)")
	rootCmd.PersistentFlags().Bool("debug", false, "debug logging")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "info logging")
	rootCmd.PersistentFlags().Bool("log-json", false, "log as JSON")
	for _, name := range []string{"debug", "verbose", "log-json"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			logrus.Exit(1)
		}
	}
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logrus.Warnf("error loading .env file: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".gisflow")
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("GISFLOW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		logrus.Debugf("using config file %s", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		logrus.Warnf("reading config %s: %v", cfgFile, err)
	}
}

func setLogLevels() {
	if viper.GetBool("log-json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	if viper.GetBool("debug") {
		logrus.SetLevel(logrus.DebugLevel)
	} else if viper.GetBool("verbose") {
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		logrus.SetLevel(logrus.WarnLevel)
	}
}

// bindFlags binds every local flag of c to viper as "<c.Name()>.<flag>".
func bindFlags(c *cobra.Command) {
	c.Flags().VisitAll(func(f *pflag.Flag) {
		if err := viper.BindPFlag(key(c, f.Name), f); err != nil {
			logrus.Exit(1)
		}
	})
}

func key(c *cobra.Command, flag string) string {
	return c.Name() + "." + flag
}
