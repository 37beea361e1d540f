package service

import (
	"github.com/voltbridge/voltbridge/internal/config"
	"github.com/voltbridge/voltbridge/internal/domain/payment"
	"github.com/voltbridge/voltbridge/internal/domain/payout"
	"github.com/voltbridge/voltbridge/internal/domain/session"
	"github.com/voltbridge/voltbridge/internal/domain/tariff"
	"github.com/voltbridge/voltbridge/internal/logger"
	"github.com/voltbridge/voltbridge/internal/postgres"
	"github.com/voltbridge/voltbridge/internal/webhook"
)

// ServiceParams bundles every dependency a service can need. Services embed it
// and pick what they use; tests assemble it from in-memory stores and fakes.
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	SessionRepo session.Repository
	PayoutRepo  payout.Repository

	TariffResolver   tariff.Resolver
	PaymentGateway   payment.Gateway
	WebhookPublisher webhook.Publisher
}
