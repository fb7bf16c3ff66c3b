package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/emberkv/emberkv/internal/logging"
	"github.com/emberkv/emberkv/internal/metrics"
	"github.com/emberkv/emberkv/internal/server"
	"github.com/emberkv/emberkv/internal/store"
	"github.com/emberkv/emberkv/pkg/config"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "emberkv: %v\n", err)
		return 1
	}
	if cfg.Help {
		fmt.Println("usage: emberkv-server [-p port] [-m pool_megabytes] [-shards n] [-log-level level] [-metrics-addr addr]")
		return 0
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "emberkv: invalid configuration: %v\n", err)
		return 1
	}

	log := logging.New(logging.ParseLevel(cfg.LogLevel))
	log.Infof("starting emberkv: port=%d pool_mb=%d shards=%d", cfg.Port, cfg.PoolMB, cfg.Shards)

	s, err := store.Open(store.Config{ShardCount: cfg.Shards, PoolBytes: cfg.PoolBytes()})
	if err != nil {
		log.Errorf("failed to open store: %v", err)
		return 1
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.MetricsAddr != "" {
		m := metrics.New(s)
		go func() {
			if err := metrics.ListenAndServe(ctx, cfg.MetricsAddr, m); err != nil {
				log.Warnf("metrics server stopped: %v", err)
			}
		}()
		log.Infof("metrics listening on %s", cfg.MetricsAddr)
	}

	srv := server.New(cfg.Address(), s, uint64(cfg.PoolBytes()), log)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Infof("shutting down")
		cancel()
		<-serveErr
		return 0
	case err := <-serveErr:
		if err != nil {
			log.Errorf("server stopped: %v", err)
			return 1
		}
		return 0
	}
}
