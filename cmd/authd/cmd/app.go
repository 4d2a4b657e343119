package cmd

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-auth-core"
	"github.com/goliatone/go-auth-core/activitymap"
	"github.com/goliatone/go-auth-core/config"
	"github.com/goliatone/go-auth-core/persistence"
)

// services holds the wired components shared by the subcommands
type services struct {
	cfg      *config.Config
	logger   *auth.ZapLogger
	db       *bun.DB
	store    *auth.BunCredentialStore
	registry *auth.RoleRegistry
	resolver *auth.CachedRoleResolver
	auther   *auth.Auther
	roles    *auth.RoleAdmin
}

func newServices(ctx context.Context, cfg *config.Config) (*services, error) {
	logger, err := auth.NewZapLoggerFromLevel(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	if cfg.WeakSigningKey() {
		logger.Warn("JWT signing secret is shorter than the recommended minimum",
			"bytes", len(cfg.GetSigningKey()),
			"min_bytes", cfg.JWT.MinSecretBytes,
		)
	}

	db, err := persistence.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repo := auth.NewRepositoryManager(db)
	repo.MustValidate()

	store := auth.NewCredentialStore(repo).
		WithLogger(logger).
		WithPasswordHasher(auth.NewBcryptHasher(cfg.Password.HashCost))

	registry := auth.NewRoleRegistry(cfg.GetDeclaredRoles()...)

	resolver := auth.NewCachedRoleResolver(store, cfg.Roles.CacheSize, cfg.Roles.CacheTTL).
		WithLogger(logger)

	sink := activitymap.NewSink(activitymap.LoggerEmitter(logger),
		activitymap.WithDefaultChannel("authd"),
		activitymap.WithObjectIDResolver(activitymap.EmailObjectID),
	)

	auther := auth.NewAuthenticator(store, cfg).
		WithLogger(logger).
		WithActivitySink(sink)

	roles := auth.NewRoleAdmin(store, registry).
		WithLogger(logger).
		WithActivitySink(sink).
		WithInvalidator(resolver)

	return &services{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		store:    store,
		registry: registry,
		resolver: resolver,
		auther:   auther,
		roles:    roles,
	}, nil
}

// seedRoles creates the declared roles. Failures are logged and do not
// stop the caller.
func (s *services) seedRoles(ctx context.Context) error {
	if err := s.store.EnsureRoles(ctx, s.registry.Names()); err != nil {
		s.logger.Error("Role seeding failed", "error", err)
		return err
	}
	s.logger.Info("Roles seeded", "roles", s.registry.Names())
	return nil
}

func (s *services) Close() {
	if err := persistence.Close(s.db); err != nil {
		s.logger.Error("Failed to close database", "error", err)
	}
	_ = s.logger.Sync()
}
