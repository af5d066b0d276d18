package main

import (
	"context"
	"fmt"

	"github.com/sweetpotato0/mcpx-agents/config"
	"github.com/sweetpotato0/mcpx-agents/session"
	"github.com/sweetpotato0/mcpx-agents/session/store"
)

// newStore opens the configured history backend. The returned func closes it.
func newStore(ctx context.Context, cfg config.HistoryConfig) (session.Store, func(), error) {
	switch cfg.Backend {
	case "redis":
		s := store.NewRedisStore(&store.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
			TTL:      cfg.TTL,
		})
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("connect redis history: %w", err)
		}
		return s, func() { _ = s.Close() }, nil
	case "postgres":
		s, err := store.NewPostgresStore(ctx, &store.PostgresConfig{DSN: cfg.PostgresDSN, Table: cfg.PostgresTable})
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres history: %w", err)
		}
		return s, func() { _ = s.Close() }, nil
	case "mongo":
		s, err := store.NewMongoStore(ctx, &store.MongoConfig{
			URI:        cfg.MongoURI,
			Database:   cfg.MongoDatabase,
			Collection: cfg.MongoCollection,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo history: %w", err)
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return store.NewMemoryStore(cfg.MaxItems), func() {}, nil
	}
}
