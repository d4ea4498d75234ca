package testutil

import (
	"context"

	"github.com/stretchr/testify/suite"

	"github.com/reinvoice/reinvoice/internal/cache"
	"github.com/reinvoice/reinvoice/internal/config"
	"github.com/reinvoice/reinvoice/internal/logger"
)

// Stores bundles the in-memory repository implementations used by service tests
type Stores struct {
	Account      *InMemoryAccountStore
	Subscription *InMemorySubscriptionStore
	Invoice      *InMemoryInvoiceStore
	Event        *InMemoryEventStore
	Usage        *InMemoryUsageStore
	Catalog      *FakeCatalogPlugin
}

// BaseServiceSuite provides common setup for service tests: a tenant-scoped
// context, default configuration, a disabled cache and fresh stores per test.
type BaseServiceSuite struct {
	suite.Suite
	ctx    context.Context
	cfg    *config.Configuration
	log    *logger.Logger
	cache  cache.Cache
	stores *Stores
}

func (s *BaseServiceSuite) SetupSuite() {
	s.ctx = SetupContext()
	s.cfg = config.GetDefaultConfig()
	s.log = GetLogger()
	s.cache = cache.NewInMemoryCache(false)
	s.stores = &Stores{
		Account:      NewInMemoryAccountStore(),
		Subscription: NewInMemorySubscriptionStore(),
		Invoice:      NewInMemoryInvoiceStore(),
		Event:        NewInMemoryEventStore(),
		Usage:        NewInMemoryUsageStore(),
		Catalog:      NewFakeCatalogPlugin(),
	}
}

func (s *BaseServiceSuite) ClearStores() {
	s.stores.Account.Clear()
	s.stores.Subscription.Clear()
	s.stores.Invoice.Clear()
	s.stores.Event.Clear()
	s.stores.Usage.Clear()
	s.stores.Catalog.Clear()
}

func (s *BaseServiceSuite) GetContext() context.Context {
	return s.ctx
}

func (s *BaseServiceSuite) GetConfig() *config.Configuration {
	return s.cfg
}

func (s *BaseServiceSuite) GetLogger() *logger.Logger {
	return s.log
}

func (s *BaseServiceSuite) GetCache() cache.Cache {
	return s.cache
}

func (s *BaseServiceSuite) GetStores() *Stores {
	return s.stores
}
