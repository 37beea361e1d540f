package testutil

import (
	"context"

	"github.com/voltbridge/voltbridge/internal/config"
	"github.com/voltbridge/voltbridge/internal/logger"
	"github.com/voltbridge/voltbridge/internal/postgres"
	"github.com/voltbridge/voltbridge/internal/types"
	"github.com/stretchr/testify/suite"
)

// Stores holds the in-memory repository fakes shared by a test suite.
type Stores struct {
	SessionRepo *InMemorySessionStore
	PayoutRepo  *InMemoryPayoutStore
}

// BaseServiceTestSuite provides common setup for service-level tests: a
// context carrying tenant and workspace, a test logger and config, a no-op
// database client and fresh in-memory stores per test.
type BaseServiceTestSuite struct {
	suite.Suite
	ctx    context.Context
	cfg    *config.Configuration
	logger *logger.Logger
	db     postgres.IClient
	stores Stores
}

func (s *BaseServiceTestSuite) SetupTest() {
	s.cfg = config.GetDefaultConfig()

	log, err := logger.NewLogger(s.cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
	s.logger = log

	ctx := context.Background()
	ctx = context.WithValue(ctx, types.CtxTenantID, types.DefaultTenantID)
	ctx = context.WithValue(ctx, types.CtxWorkspaceID, types.DefaultWorkspaceID)
	ctx = context.WithValue(ctx, types.CtxRequestID, types.GenerateUUID())
	s.ctx = ctx

	s.db = postgres.NewNoopClient()
	s.stores = Stores{
		SessionRepo: NewInMemorySessionStore(),
		PayoutRepo:  NewInMemoryPayoutStore(),
	}
}

func (s *BaseServiceTestSuite) TearDownTest() {
	s.stores.SessionRepo.Clear()
	s.stores.PayoutRepo.Clear()
}

func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.cfg
}

func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

func (s *BaseServiceTestSuite) GetDB() postgres.IClient {
	return s.db
}

func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}
