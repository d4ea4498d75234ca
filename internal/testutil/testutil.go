package testutil

import (
	"context"

	"github.com/reinvoice/reinvoice/internal/config"
	"github.com/reinvoice/reinvoice/internal/logger"
	"github.com/reinvoice/reinvoice/internal/types"
)

const (
	TestTenantID = "tenant_test"
	TestUserID   = "user_test"
)

// SetupContext returns a context carrying the test tenant and user
func SetupContext() context.Context {
	ctx := context.Background()
	ctx = types.SetTenantID(ctx, TestTenantID)
	ctx = types.SetUserID(ctx, TestUserID)
	return ctx
}

// GetLogger returns a logger built from the default configuration
func GetLogger() *logger.Logger {
	log, err := logger.NewLogger(config.GetDefaultConfig())
	if err != nil {
		panic(err)
	}
	return log
}
