// Command reactord runs the reactor-based HTTP/1.x origin server from
// internal/reactor. Flag parsing, signal handling, and logger
// construction live here; everything that actually coordinates
// connections lives in internal/.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/reactord/internal/config"
	"github.com/yourusername/reactord/internal/reactor"
)

func main() {
	cfg := config.DefaultConfig()

	flag.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "TCP address to listen on")
	flag.IntVar(&cfg.MaxConnections, "max-connections", cfg.MaxConnections, "maximum concurrent connections")
	flag.IntVar(&cfg.PoolSize, "pool-size", cfg.PoolSize, "worker pool size (0 = GOMAXPROCS)")
	flag.IntVar(&cfg.DefaultMaxRequests, "max-requests", cfg.DefaultMaxRequests, "default max requests per keep-alive connection")
	flag.DurationVar(&cfg.DefaultKeepAliveTimeout, "keep-alive-timeout", cfg.DefaultKeepAliveTimeout, "default idle timeout (0 disables)")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	entry := logrus.NewEntry(log)

	r, err := reactor.New(cfg, entry)
	if err != nil {
		entry.WithField("error", err).Fatal("reactor: startup failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() { done <- r.Run() }()

	entry.WithField("addr", cfg.ListenAddr).Info("reactord: listening")

	select {
	case <-ctx.Done():
		entry.Info("reactord: shutdown signal received")
		r.Shutdown()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			entry.Warn("reactord: shutdown timed out waiting for reactor loop to exit")
		}
	case err := <-done:
		if err != nil {
			entry.WithField("error", err).Error("reactord: reactor loop exited")
			os.Exit(1)
		}
	}
}
