package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/99minutos/user-service/internal/core/ports"
	"github.com/99minutos/user-service/internal/core/service"
	"github.com/99minutos/user-service/internal/infrastructure/db/memory"
	"github.com/99minutos/user-service/internal/infrastructure/db/mongo"
	"github.com/99minutos/user-service/internal/infrastructure/db/redis"
	"github.com/99minutos/user-service/internal/pkg/config"
	"github.com/99minutos/user-service/pkg/logger"
)

// app holds the long-lived collaborators shared by the subcommands.
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	store     ports.UserStore
	health    map[string]ports.Pinger
	tokens    *service.JWTTokens
	processor *service.UserProcessor
	closers   []func(context.Context) error
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "usersvc",
	})

	a := &app{cfg: cfg, log: log, health: make(map[string]ports.Pinger)}
	if err := a.openStore(ctx); err != nil {
		_ = a.close(context.Background())
		return nil, err
	}

	a.tokens = service.NewJWTTokens(cfg.Token.Key)
	a.processor, err = service.NewUserProcessor(a.store, service.NewBcryptHasher(), a.tokens, service.ProcessorConfig{
		TokenIssuer:   cfg.Token.Issuer,
		TokenValidity: cfg.Token.Validity,
		HashCost:      cfg.HashCost,
		Root: service.RootAccount{
			Email:      cfg.Root.Email,
			Password:   cfg.Root.Password,
			FirstName:  cfg.Root.FirstName,
			LastName:   cfg.Root.LastName,
			HashRounds: cfg.Root.HashRounds,
		},
		Timeout:     cfg.Processor.Timeout,
		MailboxSize: cfg.Processor.Mailbox,
	}, a.log)
	if err != nil {
		_ = a.close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	switch a.cfg.Store.Driver {
	case config.StoreMemory:
		s := memory.NewStore()
		a.store = s
		a.health["store"] = s
		a.log.Warn().Msg("using in-memory store, data is lost on exit")
	default:
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: a.cfg.Mongo.URI, Database: a.cfg.Mongo.Database})
		if err != nil {
			return err
		}
		a.closers = append(a.closers, client.Disconnect)

		s := mongo.NewUserStore(db)
		if err := s.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("mongo indexes: %w", err)
		}
		a.store = s
		a.health["mongodb"] = s
		a.log.Info().Str("database", a.cfg.Mongo.Database).Msg("connected to mongodb")
	}

	if !a.cfg.CacheEnabled() {
		return nil
	}
	client, err := redis.Connect(ctx, redis.Config{Addr: a.cfg.Redis.Addr, DB: a.cfg.Redis.DB})
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func(context.Context) error { return client.Close() })

	cached := redis.NewCachedUserStore(a.store, client, a.cfg.Redis.CacheTTL, a.log)
	a.store = cached
	a.health["redis"] = pingerFunc(func(ctx context.Context) error { return client.Ping(ctx).Err() })
	a.log.Info().Str("addr", a.cfg.Redis.Addr).Msg("user cache enabled")
	return nil
}

func (a *app) close(ctx context.Context) error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }
