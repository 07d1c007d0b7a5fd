package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpapi "github.com/barter-hub/barter-hub/internal/api/http"
	appAuth "github.com/barter-hub/barter-hub/internal/application/auth"
	appCatalog "github.com/barter-hub/barter-hub/internal/application/catalog"
	appChat "github.com/barter-hub/barter-hub/internal/application/chat"
	appExchange "github.com/barter-hub/barter-hub/internal/application/exchange"
	appNotification "github.com/barter-hub/barter-hub/internal/application/notification"
	appProposal "github.com/barter-hub/barter-hub/internal/application/proposal"
	appRating "github.com/barter-hub/barter-hub/internal/application/rating"
	"github.com/barter-hub/barter-hub/internal/application/resolver"
	appUser "github.com/barter-hub/barter-hub/internal/application/user"
	"github.com/barter-hub/barter-hub/internal/infrastructure/locker"
	"github.com/barter-hub/barter-hub/internal/infrastructure/sse"
)

const sessionPurgeInterval = 10 * time.Minute

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	migrate, _ := cmd.Flags().GetBool("migrate")
	b, err := openBackends(ctx, migrate)
	if err != nil {
		return err
	}
	defer b.Close()

	hub := sse.NewHub(cfg.SSEHeartbeat, logger)
	locks := locker.New()

	// services
	userSvc := appUser.NewService(b.users, logger)
	authSvc := appAuth.NewService(b.users, b.sessions, cfg.SessionTTL, logger)
	catalogSvc := appCatalog.NewService(b.items, b.images, locks, logger)
	builder := appProposal.NewBuilder(b.items, b.images, logger)
	bridge := appNotification.NewBridge(b.chat, b.exchanges, hub, b.publisher, logger)
	exchangeSvc := appExchange.NewService(
		b.exchanges,
		b.items,
		b.chat,
		b.users,
		builder,
		resolver.New(b.items, logger),
		bridge,
		b.tx,
		locks,
		logger,
	)
	chatSvc := appChat.NewService(b.chat, b.exchanges, bridge, logger)
	ratingSvc := appRating.NewService(b.ratings, userSvc, exchangeSvc, logger)

	apiServer := httpapi.NewServer(
		authSvc,
		userSvc,
		catalogSvc,
		builder,
		exchangeSvc,
		chatSvc,
		ratingSvc,
		bridge,
		hub,
		cfg.SessionCookieName,
		cfg.SessionCookieSecure,
		logger,
	)

	httpServer := &http.Server{
		Addr:        cfg.ServerAddr,
		Handler:     apiServer.Router(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Start(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info().
			Str("addr", cfg.ServerAddr).
			Str("store", cfg.StoreBackend).
			Str("chat", cfg.ChatBackend).
			Str("images", cfg.ImageBackend).
			Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info().Msg("shutting down")
		// Open streams end when their clients are closed.
		hub.Stop()
		return httpServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(sessionPurgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				n, err := authSvc.PurgeExpired(gctx)
				if err != nil {
					logger.Warn().Err(err).Msg("session purge failed")
					continue
				}
				if n > 0 {
					logger.Debug().Int("purged", n).Msg("expired sessions removed")
				}
			}
		}
	})
	return g.Wait()
}
