package repository

import (
	"github.com/voltbridge/voltbridge/internal/domain/payout"
	"github.com/voltbridge/voltbridge/internal/domain/session"
	"github.com/voltbridge/voltbridge/internal/logger"
	pg "github.com/voltbridge/voltbridge/internal/postgres"
	pgrepo "github.com/voltbridge/voltbridge/internal/repository/postgres"
)

// NewSessionRepository selects the persistence backend for sessions.
func NewSessionRepository(client *pg.Client, log *logger.Logger) session.Repository {
	return pgrepo.NewSessionRepository(client, log)
}

// NewPayoutRepository selects the persistence backend for payout statements.
func NewPayoutRepository(client *pg.Client, log *logger.Logger) payout.Repository {
	return pgrepo.NewPayoutRepository(client, log)
}
