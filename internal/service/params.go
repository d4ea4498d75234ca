package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/reinvoice/reinvoice/internal/cache"
	"github.com/reinvoice/reinvoice/internal/config"
	"github.com/reinvoice/reinvoice/internal/domain/account"
	"github.com/reinvoice/reinvoice/internal/domain/billingevent"
	"github.com/reinvoice/reinvoice/internal/domain/catalog"
	"github.com/reinvoice/reinvoice/internal/domain/invoice"
	"github.com/reinvoice/reinvoice/internal/domain/proration"
	"github.com/reinvoice/reinvoice/internal/domain/subscription"
	"github.com/reinvoice/reinvoice/internal/domain/usage"
	"github.com/reinvoice/reinvoice/internal/logger"
)

// ServiceParams bundles the dependencies shared by all services. Repositories
// are implemented by the persistence collaborator; the catalog plugin and the
// notifier by their respective external collaborators.
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	Cache  cache.Cache

	AccountRepo      account.Repository
	SubscriptionRepo subscription.Repository
	InvoiceRepo      invoice.Repository
	EventRepo        billingevent.Repository
	UsageRepo        usage.Repository
	CatalogPlugin    catalog.Plugin

	ProrationCalculator proration.Calculator

	Notifier InvoiceNotifier
}

// InvoiceCreatedEvent is the signal emitted to payment/notification
// collaborators once an invoice has been assembled and persisted.
type InvoiceCreatedEvent struct {
	InvoiceID  string          `json:"invoice_id"`
	AccountID  string          `json:"account_id"`
	Balance    decimal.Decimal `json:"balance"`
	TargetDate time.Time       `json:"target_date"`
}

// InvoiceNotifier delivers invoice lifecycle signals to external collaborators.
// Dry-run reconciliation never calls it.
type InvoiceNotifier interface {
	InvoiceCreated(ctx context.Context, event *InvoiceCreatedEvent) error
}
