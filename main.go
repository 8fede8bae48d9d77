package main

import (
	"context"
	"flag"
	"log"
	"mesh_relay/internal/config"
	"mesh_relay/internal/server"
	"os/signal"
	"strings"
	"syscall"
)

func main() {
	var (
		basePath string
		host     string
		port     int
		peers    string
		ttl      int
		seenTTL  int
	)
	flag.StringVar(&basePath, "prefix", "", "Config file base path")
	flag.StringVar(&host, "host", "", "Host address to bind to")
	flag.IntVar(&port, "port", 0, "Port number to bind to")
	flag.StringVar(&peers, "peers", "", "Comma separated peer addresses (host:port)")
	flag.IntVar(&ttl, "ttl", 0, "Default TTL for originated messages")
	flag.IntVar(&seenTTL, "seen-ttl", 0, "Seconds to remember seen message IDs")
	flag.Parse()

	cfg, err := config.LoadMainConfig(basePath)
	if err != nil {
		log.Fatalf("Load config failed: %v", err)
	}

	// Flags override file values.
	if host != "" {
		cfg.Host = host
	}
	if port != 0 {
		cfg.Port = port
	}
	if peers != "" {
		cfg.Peers = strings.Split(peers, ",")
	}
	if ttl != 0 {
		cfg.TTLDefault = ttl
	}
	if seenTTL != 0 {
		cfg.SeenTTLSec = seenTTL
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.StartNode(ctx, cfg); err != nil {
		log.Fatalf("Failed to start node: %v", err)
	}
}
