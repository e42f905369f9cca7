package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	ListenAddr string
	LogLevel   string
	// DefaultTTL applies to HTTP puts that carry no ttl_ms; 0 means never expire.
	DefaultTTL time.Duration
	CacheName  string
}

var AppConfig Config

// InitConfig initializes the application configuration
func InitConfig() {
	viper.SetEnvPrefix("ttlcache")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("listen_addr", ":8080")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("default_ttl", "0s")
	viper.SetDefault("cache_name", "shared")

	AppConfig = Config{
		ListenAddr: viper.GetString("listen_addr"),
		LogLevel:   strings.ToLower(viper.GetString("log_level")),
		DefaultTTL: viper.GetDuration("default_ttl"),
		CacheName:  viper.GetString("cache_name"),
	}

	if AppConfig.DefaultTTL < 0 {
		AppConfig.DefaultTTL = 0
	}
	if AppConfig.LogLevel == "" {
		AppConfig.LogLevel = "info"
	}
}
