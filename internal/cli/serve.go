package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowc/pkg/cache"
	"github.com/matzehuels/flowc/pkg/observability"
	"github.com/matzehuels/flowc/pkg/server"
	"github.com/matzehuels/flowc/pkg/session"
)

// redisURLEnv supplies --redis-url when the flag is not set.
const redisURLEnv = "FLOWC_REDIS_URL"

type serveOptions struct {
	addr       string
	redisURL   string
	cacheSize  int
	sessionDir string
	sessionTTL time.Duration
	metrics    bool
	store      storeOptions
}

// serveCommand serves bundled flows over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve bundled flows over HTTP",
		Long: `Serve the bundles in the output directory:

  GET  /health
  GET  /v2/flows?name=<alias>
  POST /sessions
  GET  /sessions/{id}
  GET  /metrics

Responses are cached in memory, or in Redis with --redis-url.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), &opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", server.DefaultAddr, "listen address")
	cmd.Flags().StringVar(&opts.redisURL, "redis-url", "", "Redis URL for the response cache (default $"+redisURLEnv+")")
	cmd.Flags().IntVar(&opts.cacheSize, "cache-size", cache.DefaultMemoryEntries, "in-memory cache entries when Redis is not used")
	cmd.Flags().StringVar(&opts.sessionDir, "session-dir", "", "persist sessions as files in this directory")
	cmd.Flags().DurationVar(&opts.sessionTTL, "session-ttl", session.DefaultTTL, "session lifetime")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", true, "expose Prometheus metrics on /metrics")
	opts.store.register(cmd)
	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts *serveOptions) error {
	cfg, err := c.loadProject()
	if err != nil {
		return err
	}

	respCache, err := c.serveCache(ctx, opts)
	if err != nil {
		return err
	}
	defer respCache.Close()

	versions, err := opts.store.open(ctx, cfg)
	if err != nil {
		return err
	}
	defer versions.Close()

	var sessions session.Store = session.NewMemoryStore()
	if opts.sessionDir != "" {
		if sessions, err = session.NewFileStore(opts.sessionDir); err != nil {
			return err
		}
	}
	defer sessions.Close()
	go cleanupSessions(ctx, sessions, c)

	var metrics *observability.Prometheus
	if opts.metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = observability.NewPrometheus(reg)
		observability.SetCacheHooks(metrics)
		observability.SetServerHooks(metrics)
		observability.SetEngineHooks(metrics)
		defer observability.Reset()
	}

	srv := server.New(server.Options{
		Project:    cfg,
		Versions:   versions,
		Cache:      cache.WithHooks(respCache),
		Sessions:   sessions,
		SessionTTL: opts.sessionTTL,
		Metrics:    metrics,
		Logger:     c.Logger,
	})
	printInfo("Serving %d flows from %s on %s", len(cfg.Flows()), cfg.OutputDir(), StyleValue.Render(opts.addr))
	return srv.ListenAndServe(ctx, opts.addr)
}

// serveCache connects to Redis when a URL is configured and falls back to
// an in-memory LRU otherwise.
func (c *CLI) serveCache(ctx context.Context, opts *serveOptions) (cache.Cache, error) {
	url := opts.redisURL
	if url == "" {
		url = os.Getenv(redisURLEnv)
	}
	if url == "" {
		c.Logger.Debug("using in-memory response cache", "size", opts.cacheSize)
		return cache.NewMemoryCache(opts.cacheSize)
	}
	rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{URL: url, Prefix: appName + ":"})
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	c.Logger.Info("using redis response cache")
	return rc, nil
}

// cleanupSessions drops expired sessions every hour until ctx ends.
func cleanupSessions(ctx context.Context, store session.Store, c *CLI) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := store.Cleanup(ctx); err != nil {
				c.Logger.Warn("session cleanup failed", "error", err)
			}
		}
	}
}
