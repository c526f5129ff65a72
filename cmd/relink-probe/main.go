// relink-probe connects to a WebSocket endpoint through the relink state
// machine and streams inbound messages and lifecycle events to the console.
// Useful for watching reconnect behavior against a flaky endpoint.
//
// Usage: go run ./cmd/relink-probe --config configs/probe.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/relinkio/relink"
	"github.com/relinkio/relink/internal/config"
	"github.com/relinkio/relink/internal/version"
	"github.com/relinkio/relink/router"
	"github.com/relinkio/relink/wstransport"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional when --url is set)")
	endpoint := flag.String("url", "", "endpoint URL, overrides config")
	routeKeys := flag.String("route", "", "comma-separated message types to demux into per-type streams")
	routeField := flag.String("route-field", "type", "JSON envelope field used as the routing key")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := loadConfig(*configPath, *endpoint)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	transport := wstransport.New(cfg.Endpoint.URL, wstransport.Options{
		HandshakeTimeout: cfg.Connection.ConnectionTimeout.Std(),
		WriteTimeout:     cfg.Connection.WriteTimeout.Std(),
		Logger:           logger,
	})

	conn := relink.New(transport, relink.Options{
		InitialReconnectDelay: cfg.Connection.InitialReconnectDelay.Std(),
		MaxReconnectDelay:     cfg.Connection.MaxReconnectDelay.Std(),
		MaxReconnectAttempts:  cfg.Connection.MaxReconnectAttempts,
		HeartbeatInterval:     cfg.Connection.HeartbeatInterval.Std(),
		ConnectionTimeout:     cfg.Connection.ConnectionTimeout.Std(),
		MaxBufferedMessages:   cfg.Connection.MaxBufferedMessages,
		Logger:                logger,
	})
	defer conn.Destroy()

	logger.Info("probing endpoint", "url", cfg.Endpoint.URL, "version", version.String())

	if err := conn.Connect(ctx); err != nil {
		// First attempt failed; automatic reconnection keeps going, so
		// keep watching unless we were asked to stop.
		if ctx.Err() != nil {
			return
		}
		logger.Warn("initial connect failed, reconnecting in background", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if *routeKeys != "" {
		if err := runRouted(gctx, g, logger, conn, *routeField, *routeKeys); err != nil {
			logger.Error("failed to start router", "error", err)
			os.Exit(1)
		}
	} else {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case msg, ok := <-conn.Messages():
					if !ok {
						return nil
					}
					logger.Info("message", "bytes", len(msg), "payload", string(msg))
				}
			}
		})
	}

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case ev, ok := <-conn.Events():
				if !ok {
					return nil
				}
				logEvent(logger, ev)
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("probe loop failed", "error", err)
		os.Exit(1)
	}
}

// runRouted demuxes inbound messages by their envelope type and logs each
// stream separately, with anything unmatched landing in an "other" stream.
func runRouted(ctx context.Context, g *errgroup.Group, logger *slog.Logger, conn *relink.Conn, field, keys string) error {
	r := router.New(router.Options{
		Key:    router.JSONTypeKey(field),
		Logger: logger,
	})

	watch := func(name string, sub *router.Subscription) {
		g.Go(func() error {
			for {
				msg, ok := sub.Next()
				if !ok {
					return nil
				}
				logger.Info("message", "route", name, "bytes", len(msg), "payload", string(msg))
			}
		})
	}

	for _, key := range strings.Split(keys, ",") {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		watch(key, r.Subscribe(key))
	}
	watch("other", r.Default())

	if err := r.Start(ctx, conn.Messages()); err != nil {
		return err
	}
	g.Go(func() error {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return r.Stop(stopCtx)
	})
	return nil
}

func loadConfig(path, endpoint string) (*config.ProbeConfig, error) {
	if path != "" {
		cfg, err := config.LoadAndValidate(path)
		if err != nil {
			return nil, err
		}
		if endpoint != "" {
			cfg.Endpoint.URL = endpoint
		}
		return cfg, nil
	}
	if endpoint == "" {
		return nil, fmt.Errorf("either --config or --url is required")
	}
	return config.FromEndpoint(endpoint)
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func logEvent(logger *slog.Logger, ev relink.Event) {
	switch ev.Kind {
	case relink.EventStateChange:
		logger.Info("state change", "old", ev.Old, "new", ev.New, "cause", ev.Cause)
	case relink.EventReconnecting:
		logger.Info("reconnecting", "attempt", ev.Attempt, "delay", ev.Delay, "cause", ev.Cause)
	case relink.EventOnline:
		logger.Info("network online")
	case relink.EventOffline:
		logger.Info("network offline")
	}
}
