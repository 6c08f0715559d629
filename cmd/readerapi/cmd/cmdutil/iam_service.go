package cmdutil

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	"github.com/Shonkurieta/ebookreader/internal/auth"
	"github.com/Shonkurieta/ebookreader/internal/config"
	"github.com/Shonkurieta/ebookreader/internal/db/bunx"
	"github.com/Shonkurieta/ebookreader/internal/repository"
	"github.com/Shonkurieta/ebookreader/internal/services/iam"
)

// IAMServiceBundle bundles the service with its underlying DB connection so callers can
// reuse the connection and the token collaborators.
type IAMServiceBundle struct {
	Service   *iam.Service
	Resolver  *iam.RoleResolver
	Codec     *auth.Codec
	Validator *auth.Validator
	Users     repository.UserRepository
	DB        *bun.DB
}

// Close releases the underlying database connection.
func (b *IAMServiceBundle) Close() {
	if b == nil || b.DB == nil {
		return
	}
	_ = bunx.Close(b.DB)
}

// NewLogger returns a JSON logger, or a text logger at debug level when
// cfg.Debug is set.
func NewLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	if cfg != nil && cfg.Debug {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		logger.SetLevel(logrus.DebugLevel)
		return logger
	}
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)
	return logger
}

// NewCodec resolves the signing key and builds the token codec.
func NewCodec(cfg *config.Config) (*auth.Codec, error) {
	key, err := cfg.Auth.ResolveSigningKey()
	if err != nil {
		return nil, fmt.Errorf("failed to load signing key: %w", err)
	}
	codec, err := auth.NewCodec(key, auth.WithTTL(cfg.Auth.TokenTTL))
	if err != nil {
		return nil, fmt.Errorf("failed to create token codec: %w", err)
	}
	return codec, nil
}

// NewIAMServiceBundle centralizes IAM service construction for the server and CLI commands.
func NewIAMServiceBundle(cfg *config.Config, logger *logrus.Logger) (*IAMServiceBundle, error) {
	codec, err := NewCodec(cfg)
	if err != nil {
		return nil, err
	}

	db, err := bunx.NewDB(cfg.DatabaseURL, bunx.WithMaxOpenConns(cfg.MaxDBConnections))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	users := repository.NewBunUserRepository(db)
	resolver := iam.NewRoleResolver(users,
		iam.WithLookupTimeout(cfg.Auth.RoleLookupTimeout),
		iam.WithCache(cfg.Auth.RoleCacheSize, cfg.Auth.RoleCacheTTL),
	)
	validator := auth.NewValidator()

	svc, err := iam.NewService(iam.ServiceDependencies{
		Users:     users,
		Codec:     codec,
		Validator: validator,
		Resolver:  resolver,
		Logger:    logger,
	})
	if err != nil {
		_ = bunx.Close(db)
		return nil, fmt.Errorf("failed to create IAM service: %w", err)
	}

	return &IAMServiceBundle{
		Service:   svc,
		Resolver:  resolver,
		Codec:     codec,
		Validator: validator,
		Users:     users,
		DB:        db,
	}, nil
}
