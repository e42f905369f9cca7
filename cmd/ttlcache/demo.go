package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ttlcache/internal/cache"
	"ttlcache/internal/config"
	"ttlcache/internal/logging"
)

// demoCmd walks one cache through the entry lifecycle
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Walk a cache through put, overwrite, expiry and counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := logging.New(config.AppConfig.LogLevel)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		// Signal-aware context is the root of ownership for the waits below.
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := runDemo(ctx, logger); err != nil {
			if ctx.Err() != nil {
				logger.Info("received shutdown signal")
				return nil
			}
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Done.")
		return nil
	},
}

func runDemo(ctx context.Context, logger *zap.Logger) error {
	c := cache.New[string, string](cache.Config{Name: "demo", Logger: logger})
	defer c.Clear()

	logger.Info("ttlcache demo starting")

	// -------------------------------------------------------------------
	// 1) Round trip
	// -------------------------------------------------------------------
	c.Put("greeting", "hello", time.Minute)
	if v, ok := c.Get("greeting"); ok {
		logger.Info("GET greeting", zap.String("value", v))
	}
	if _, ok := c.Get("absent"); !ok {
		logger.Info("GET absent: miss")
	}

	// -------------------------------------------------------------------
	// 2) Overwrite rearms the timer
	// -------------------------------------------------------------------
	// The first TTL ends at 200ms. The overwrite at 100ms moves the deadline
	// to 400ms, so the value must still be there at 300ms.
	c.Put("session", "v1", 200*time.Millisecond)
	if err := sleep(ctx, 100*time.Millisecond); err != nil {
		return err
	}
	c.Put("session", "v2", 300*time.Millisecond)
	if err := sleep(ctx, 200*time.Millisecond); err != nil {
		return err
	}
	if v, ok := c.Get("session"); ok {
		logger.Info("GET session after old deadline", zap.String("value", v))
	} else {
		return errors.New("session was deleted by a stale timer")
	}

	// -------------------------------------------------------------------
	// 3) Timer expiry without any read
	// -------------------------------------------------------------------
	c.Put("short", "gone soon", 50*time.Millisecond)
	logger.Info("stored short-lived key", zap.Int("mem_size", c.MemSize()))
	if err := sleep(ctx, 150*time.Millisecond); err != nil {
		return err
	}
	logger.Info("after short TTL", zap.Int("mem_size", c.MemSize()), zap.Strings("keys", c.Keys()))

	// -------------------------------------------------------------------
	// 4) Counters. Size runs Get over every key, so it adds hits.
	// -------------------------------------------------------------------
	before := c.Hits()
	live := c.Len()
	size := c.Size()
	logger.Info("counters",
		zap.Int("len", live),
		zap.Int("size", size),
		zap.Uint64("hits_added_by_size", c.Hits()-before),
		zap.Uint64("hits", c.Hits()),
		zap.Uint64("misses", c.Misses()),
	)
	return nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
