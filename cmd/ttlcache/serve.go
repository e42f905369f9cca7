package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"ttlcache/internal/cache"
	"ttlcache/internal/config"
	"ttlcache/internal/logging"
	"ttlcache/internal/metrics"
	"ttlcache/internal/server"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the shared cache over HTTP",
	Long: `Start an HTTP server exposing the process-wide shared cache:
entry get/put/delete, counters, and Prometheus metrics at /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.AppConfig

		logger, err := logging.New(cfg.LogLevel)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		if cfg.LogLevel != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}

		metrics.Register()
		if !cache.ConfigureShared(cache.Config{
			Name:     cfg.CacheName,
			Logger:   logger,
			Observer: metrics.NewObserver(cfg.CacheName),
		}) {
			logger.Warn("shared cache was built before configuration; metrics disabled for it")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("starting ttlcache server",
			zap.String("addr", cfg.ListenAddr),
			zap.Duration("default_ttl", cfg.DefaultTTL),
			zap.String("cache", cfg.CacheName),
		)
		return server.NewServer(cache.Shared(), cfg, logger).Start(ctx)
	},
}

func init() {
	serveCmd.Flags().String("listen", ":8080", "address to listen on")
	serveCmd.Flags().Duration("default-ttl", 0, "TTL for puts without ttl_ms (0 = never expire)")
	_ = viper.BindPFlag("listen_addr", serveCmd.Flags().Lookup("listen"))
	_ = viper.BindPFlag("default_ttl", serveCmd.Flags().Lookup("default-ttl"))
}
