package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ttlcache/internal/config"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ttlcache",
	Short: "In-process cache whose entries expire after a per-key TTL",
	Long: `ttlcache stores values under keys with a time-to-live. Each entry is
removed by its own timer when the TTL elapses, or earlier by any read that
finds it expired.

Run "ttlcache demo" to walk the entry lifecycle, or "ttlcache serve" to
inspect the shared cache over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(demoCmd, serveCmd)
}

// initConfig reads the config file (if any) and fills config.AppConfig.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}
	config.InitConfig()
	return nil
}
