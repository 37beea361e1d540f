package main

import (
	"context"
	"net/http"
	"time"

	"github.com/voltbridge/voltbridge/internal/api"
	v1 "github.com/voltbridge/voltbridge/internal/api/v1"
	"github.com/voltbridge/voltbridge/internal/cache"
	"github.com/voltbridge/voltbridge/internal/config"
	"github.com/voltbridge/voltbridge/internal/domain/payment"
	"github.com/voltbridge/voltbridge/internal/domain/payout"
	"github.com/voltbridge/voltbridge/internal/domain/session"
	"github.com/voltbridge/voltbridge/internal/domain/tariff"
	"github.com/voltbridge/voltbridge/internal/integration/roaming"
	"github.com/voltbridge/voltbridge/internal/logger"
	"github.com/voltbridge/voltbridge/internal/postgres"
	"github.com/voltbridge/voltbridge/internal/repository"
	"github.com/voltbridge/voltbridge/internal/service"
	"github.com/voltbridge/voltbridge/internal/webhook"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		fx.Provide(
			config.NewConfig,
			logger.NewLogger,
			newPostgresClient,
			func(client *postgres.Client) postgres.IClient { return client },
			cache.Initialize,
			repository.NewSessionRepository,
			repository.NewPayoutRepository,
			roaming.NewPaymentClient,
			newTariffResolver,
			webhook.NewPublisher,
			newServiceParams,
			service.NewSessionService,
			service.NewClearingService,
			service.NewPayoutService,
			v1.NewSessionHandler,
			v1.NewSettlementHandler,
			v1.NewPayoutHandler,
			newHandlers,
			api.NewRouter,
		),
		fx.Invoke(startServer),
	)

	app.Run()
}

func newPostgresClient(cfg *config.Configuration, log *logger.Logger) (*postgres.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return postgres.NewClient(ctx, cfg, log)
}

func newTariffResolver(cfg *config.Configuration, log *logger.Logger, c cache.Cache) tariff.Resolver {
	client := roaming.NewTariffClient(cfg, log)
	return roaming.NewCachingTariffResolver(client, c, cfg.Roaming.TariffCacheTTL)
}

func newServiceParams(
	cfg *config.Configuration,
	log *logger.Logger,
	db postgres.IClient,
	sessionRepo session.Repository,
	payoutRepo payout.Repository,
	resolver tariff.Resolver,
	gateway payment.Gateway,
	publisher webhook.Publisher,
) service.ServiceParams {
	return service.ServiceParams{
		Logger:           log,
		Config:           cfg,
		DB:               db,
		SessionRepo:      sessionRepo,
		PayoutRepo:       payoutRepo,
		TariffResolver:   resolver,
		PaymentGateway:   gateway,
		WebhookPublisher: publisher,
	}
}

func newHandlers(
	sessionHandler *v1.SessionHandler,
	settlementHandler *v1.SettlementHandler,
	payoutHandler *v1.PayoutHandler,
) api.Handlers {
	return api.Handlers{
		Session:    sessionHandler,
		Settlement: settlementHandler,
		Payout:     payoutHandler,
	}
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	router *gin.Engine,
	db *postgres.Client,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting server", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalw("server failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down server")
			if err := srv.Shutdown(ctx); err != nil {
				return err
			}
			db.Close()
			return nil
		},
	})
}
