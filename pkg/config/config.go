// Package config loads the emberkv server's settings from command-line
// flags and environment variables, following the same flags-then-env
// precedence and EMBERKV_-prefixed variable naming the rest of this
// project's ambient tooling uses.
//
// Configuration sources (in order of precedence):
//  1. Command-line flags
//  2. Environment variables
//  3. Default values
//
// Example:
//
//	cfg, err := config.Load(os.Args[1:])
//	if err != nil || cfg.Validate() != nil {
//		log.Fatal(err)
//	}
//	srv := server.New(cfg.Address(), s, uint64(cfg.PoolBytes()), logger)
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
)

// Default server configuration constants.
const (
	DefaultPort       = 11211
	DefaultPoolMB     = 64
	DefaultShardCount = 64
	DefaultLogLevel   = "info"
)

// Config holds every setting the server binary needs to start: the
// listen port, the total memory pool size, the shard count, the log
// level, and an optional Prometheus metrics listen address.
type Config struct {
	Port        int    // TCP port to listen on
	PoolMB      int    // total memory pool size, in megabytes, split evenly across shards
	Shards      int    // shard count, must be a power of two
	LogLevel    string // debug, info, warn, error
	MetricsAddr string // address for the Prometheus /metrics exporter; empty disables it
	Help        bool
}

// Load builds a Config from command-line flags and EMBERKV_-prefixed
// environment variables, flags taking precedence over environment
// variables, which take precedence over the package defaults.
//
// Flags:
//
//	-p: server port (default 11211)
//	-m: memory pool size in megabytes (default 64)
//	-shards: shard count, must be a power of two (default 64)
//	-log-level: debug|info|warn|error (default info)
//	-metrics-addr: Prometheus exporter address, e.g. ":9121" (default disabled)
//	-h: print usage and exit
//
// Environment variables:
//
//	EMBERKV_PORT, EMBERKV_POOL_MB, EMBERKV_SHARDS, EMBERKV_LOG_LEVEL,
//	EMBERKV_METRICS_ADDR
func Load(args []string) (*Config, error) {
	cfg := &Config{
		Port:        DefaultPort,
		PoolMB:      DefaultPoolMB,
		Shards:      DefaultShardCount,
		LogLevel:    DefaultLogLevel,
		MetricsAddr: "",
	}

	if port := os.Getenv("EMBERKV_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if poolMB := os.Getenv("EMBERKV_POOL_MB"); poolMB != "" {
		if p, err := strconv.Atoi(poolMB); err == nil {
			cfg.PoolMB = p
		}
	}
	if shards := os.Getenv("EMBERKV_SHARDS"); shards != "" {
		if s, err := strconv.Atoi(shards); err == nil {
			cfg.Shards = s
		}
	}
	if logLevel := os.Getenv("EMBERKV_LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if metricsAddr := os.Getenv("EMBERKV_METRICS_ADDR"); metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}

	fs := flag.NewFlagSet("emberkv-server", flag.ContinueOnError)
	fs.IntVar(&cfg.Port, "p", cfg.Port, "server port")
	fs.IntVar(&cfg.PoolMB, "m", cfg.PoolMB, "total memory pool size, in megabytes")
	fs.IntVar(&cfg.Shards, "shards", cfg.Shards, "shard count, must be a power of two")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus /metrics listen address; empty disables it")
	fs.BoolVar(&cfg.Help, "h", false, "print usage and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Address returns the "host:port" string to pass to net.Listen.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// PoolBytes returns the configured pool size in bytes.
func (c *Config) PoolBytes() int {
	return c.PoolMB << 20
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.PoolMB < 1 {
		return fmt.Errorf("pool size must be positive: %d", c.PoolMB)
	}
	if c.Shards < 1 || c.Shards&(c.Shards-1) != 0 {
		return fmt.Errorf("shard count must be a power of two: %d", c.Shards)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	return nil
}
