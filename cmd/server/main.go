package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"velha/internal/auth"
	"velha/internal/network"
	"velha/internal/presence"
	"velha/internal/services/cluster"
	"velha/internal/session"
	"velha/internal/store"
)

const releaseVersion = "1.0.0"

func main() {
	cfg := &Config{}
	if err := newCmd(cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(cfg *Config) error {
	if cfg.verbose {
		log.Printf("[Server] Config: redis=%q nats=%q consul=%q session-timeout=%s",
			cfg.redisAddr, cfg.natsURL, cfg.consulAddr, cfg.sessionTimeout)
	}

	health := cluster.NewHealthAggregator()

	// Arquivo de partidas encerradas. Sem Redis o diretório usa um
	// arquivador nulo e o servidor segue operando normalmente.
	var archiver store.Archiver
	if cfg.redisAddr != "" {
		ra := store.NewRedisArchiver(cfg.redisAddr)
		if err := ra.Ping(); err != nil {
			log.Printf("[Server] WARN: redis unreachable at startup, archiving will retry: %v", err)
		}
		go ra.Run()
		defer ra.Close()
		health.AddCheck("redis", ra.Ping)
		archiver = ra
	}

	registry := session.NewRegistry()
	directory := session.NewDirectory(archiver)
	matchmaker := session.NewMatchmaker(directory)

	var notifier *presence.Notifier
	if cfg.natsURL != "" {
		var err error
		notifier, err = presence.Connect(cfg.natsURL, cfg.natsPrefix)
		if err != nil {
			return fmt.Errorf("failed to connect to nats: %w", err)
		}
		defer notifier.Close()
		health.AddCheck("nats", notifier.Ping)
	}

	verifier := auth.NewJWTVerifier(cfg.jwtSecret)
	gateway := session.NewGateway(registry, matchmaker, directory, verifier, notifier, cfg.gracePeriod)

	server := network.NewServer(gateway)
	hub := server.Hub()
	gateway.SetScheduler(hub.Schedule)

	if cfg.natsURL != "" {
		// Atualizações de presença vindas de outros nós entram na mesma
		// fila de eventos das conexões locais.
		err := notifier.SubscribeStatus(func(evt presence.StatusEvent) {
			hub.Schedule(func() { gateway.DeliverRemoteStatus(evt) })
		})
		if err != nil {
			return fmt.Errorf("failed to subscribe to presence events: %w", err)
		}
	}

	server.Handle("/health", health.Handler())

	if cfg.consulAddr != "" {
		if err := cluster.RegisterService(cfg.consulAddr, cfg.serviceName, cfg.port); err != nil {
			return fmt.Errorf("failed to register with consul: %w", err)
		}
	}

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			hub.Schedule(func() { gateway.SweepStale(cfg.sessionTimeout) })
		}
	}()

	address := fmt.Sprintf("%s:%d", cfg.bind, cfg.port)
	log.Printf("[Server] Listening on %s (grace period %s)", address, cfg.gracePeriod)
	return server.Listen(address)
}
