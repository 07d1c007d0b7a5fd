package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/barter-hub/barter-hub/internal/application/uow"
	"github.com/barter-hub/barter-hub/internal/config"
	"github.com/barter-hub/barter-hub/internal/domain/chat"
	"github.com/barter-hub/barter-hub/internal/domain/exchange"
	"github.com/barter-hub/barter-hub/internal/domain/image"
	"github.com/barter-hub/barter-hub/internal/domain/item"
	"github.com/barter-hub/barter-hub/internal/domain/rating"
	"github.com/barter-hub/barter-hub/internal/domain/session"
	"github.com/barter-hub/barter-hub/internal/domain/user"
	"github.com/barter-hub/barter-hub/internal/infrastructure/imagestore"
	"github.com/barter-hub/barter-hub/internal/infrastructure/kafka"
	"github.com/barter-hub/barter-hub/internal/infrastructure/memory"
	"github.com/barter-hub/barter-hub/internal/infrastructure/postgres"
	"github.com/barter-hub/barter-hub/internal/infrastructure/scylla"
)

// backends holds the repositories and adapters selected by configuration.
type backends struct {
	users     user.Repository
	sessions  session.Repository
	items     item.Repository
	exchanges exchange.Repository
	chat      chat.Repository
	ratings   rating.Repository
	tx        uow.Runner
	images    image.Processor
	publisher exchange.EventPublisher

	closers []func()
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackends(ctx context.Context, migrate bool) (*backends, error) {
	b := &backends{}
	if err := b.openStore(ctx, migrate); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.openChat(ctx); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.openImages(); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.openPublisher(); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func (b *backends) openStore(ctx context.Context, migrate bool) error {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
		if migrate {
			applied, err := postgres.RunMigrations(ctx, pool, cfg.MigrationsDir)
			if err != nil {
				return fmt.Errorf("migration error: %w", err)
			}
			logger.Info().Strs("applied", applied).Msg("migrations done")
		}
		b.usePostgres(pool)
	default:
		store := memory.NewStore()
		b.users = memory.NewUserRepository(store)
		b.sessions = memory.NewSessionRepository(store)
		b.items = memory.NewItemRepository(store)
		b.exchanges = memory.NewExchangeRepository(store)
		b.chat = memory.NewChatRepository(store)
		b.ratings = memory.NewRatingRepository(store)
		b.tx = store
		logger.Warn().Msg("using in-memory store; data is lost on restart")
	}
	return nil
}

func (b *backends) usePostgres(pool *pgxpool.Pool) {
	b.users = postgres.NewUserRepository(pool)
	b.sessions = postgres.NewSessionRepository(pool)
	b.items = postgres.NewItemRepository(pool)
	b.exchanges = postgres.NewExchangeRepository(pool)
	b.chat = postgres.NewChatRepository(pool)
	b.ratings = postgres.NewRatingRepository(pool)
	b.tx = postgres.NewTxRunner(pool)
}

// openChat swaps the chat repository for Scylla when asked to. Chat writes
// then sit outside the relational unit of work.
func (b *backends) openChat(ctx context.Context) error {
	if cfg.ChatBackend != config.ChatScylla {
		return nil
	}
	session, err := scylla.NewSession(ctx, scylla.Config{
		Hosts:       cfg.Scylla.Hosts,
		Keyspace:    cfg.Scylla.Keyspace,
		Username:    cfg.Scylla.Username,
		Password:    cfg.Scylla.Password,
		Consistency: cfg.Scylla.Consistency,
		Timeout:     cfg.Scylla.Timeout,
	}, logger)
	if err != nil {
		return err
	}
	b.closers = append(b.closers, session.Close)
	b.chat = scylla.NewChatRepository(session, logger)
	return nil
}

func (b *backends) openImages() error {
	var store image.Store
	switch cfg.ImageBackend {
	case config.ImagesMinio:
		s, err := imagestore.NewMinioStore(imagestore.MinioConfig{
			Endpoint:      cfg.Minio.Endpoint,
			AccessKey:     cfg.Minio.AccessKey,
			SecretKey:     cfg.Minio.SecretKey,
			Bucket:        cfg.Minio.Bucket,
			UseSSL:        cfg.Minio.UseSSL,
			PublicBaseURL: cfg.Minio.PublicBaseURL,
		}, logger)
		if err != nil {
			return err
		}
		store = s
	case config.ImagesCloudinary:
		s, err := imagestore.NewCloudinaryStore(imagestore.CloudinaryConfig{
			CloudName: cfg.Cloudinary.CloudName,
			APIKey:    cfg.Cloudinary.APIKey,
			APISecret: cfg.Cloudinary.APISecret,
			Folder:    cfg.Cloudinary.Folder,
		}, logger)
		if err != nil {
			return err
		}
		store = s
	default:
		logger.Info().Msg("image uploads disabled; only image references are accepted")
		return nil
	}
	b.images = imagestore.NewProcessor(store, cfg.ImageMaxDimension, logger)
	return nil
}

func (b *backends) openPublisher() error {
	if len(cfg.KafkaBrokers) == 0 {
		b.publisher = exchange.NopPublisher{}
		return nil
	}
	p, err := kafka.Dial(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	if err != nil {
		return err
	}
	b.closers = append(b.closers, func() {
		if err := p.Close(); err != nil {
			logger.Warn().Err(err).Msg("kafka producer close failed")
		}
	})
	b.publisher = p
	return nil
}
