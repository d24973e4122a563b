package main

import (
	"fmt"

	"github.com/angelmondragon/voltline-backend/api/routes"
	"github.com/angelmondragon/voltline-backend/internal/analytics/query"
	"github.com/angelmondragon/voltline-backend/internal/availability"
	"github.com/angelmondragon/voltline-backend/internal/dealers"
	"github.com/angelmondragon/voltline-backend/internal/leads"
	"github.com/angelmondragon/voltline-backend/internal/ledger"
	"github.com/angelmondragon/voltline-backend/internal/notifications"
	"github.com/angelmondragon/voltline-backend/internal/orders"
	"github.com/angelmondragon/voltline-backend/internal/payouts"
	"github.com/angelmondragon/voltline-backend/pkg/bigquery"
	"github.com/angelmondragon/voltline-backend/pkg/config"
	"github.com/angelmondragon/voltline-backend/pkg/db"
	"github.com/angelmondragon/voltline-backend/pkg/logger"
	"github.com/angelmondragon/voltline-backend/pkg/metrics"
	"github.com/angelmondragon/voltline-backend/pkg/outbox"
	"github.com/angelmondragon/voltline-backend/pkg/redis"
)

type wiring struct {
	cfg     *config.Config
	logg    *logger.Logger
	db      *db.Client
	redis   *redis.Client
	metrics *metrics.DomainMetrics
	bq      *bigquery.Client
}

// buildDependencies assembles every domain service over the shared clients.
func buildDependencies(w wiring) (routes.Dependencies, error) {
	conn := w.db.DB()

	defaultRate, err := w.cfg.Commission.Rate()
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("commission rate: %w", err)
	}

	emitter := outbox.NewService(outbox.NewRepository(conn), w.logg)
	dealerRepo := dealers.NewRepository(conn)

	dealerService, err := dealers.NewService(dealerRepo, w.logg)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("dealers service: %w", err)
	}

	ledgerService, err := ledger.NewService(ledger.NewRepository(conn))
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("ledger service: %w", err)
	}

	notificationService, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("notifications service: %w", err)
	}
	notifier := notifications.NewBestEffort(notificationService, w.logg, w.metrics)

	payoutService, err := payouts.NewService(payouts.ServiceParams{
		Repo:        payouts.NewRepository(conn),
		Dealers:     dealerRepo,
		Ledger:      ledgerService,
		Tx:          w.db,
		Outbox:      emitter,
		Notifier:    notifier,
		Metrics:     w.metrics,
		Logger:      w.logg,
		DefaultRate: defaultRate,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("payouts service: %w", err)
	}

	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:        orders.NewRepository(conn),
		Inventory:   orders.NewInventory(),
		Dealers:     dealerRepo,
		Ledger:      ledgerService,
		Tx:          w.db,
		Outbox:      emitter,
		Notifier:    notifier,
		Metrics:     w.metrics,
		Logger:      w.logg,
		TaxRate:     w.cfg.Orders.Tax(),
		DefaultRate: defaultRate,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("orders service: %w", err)
	}

	leadService, err := leads.NewService(leads.ServiceParams{
		Repo:    leads.NewRepository(conn),
		Dealers: dealerRepo,
		Tx:      w.db,
		Outbox:  emitter,
		Logger:  w.logg,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("leads service: %w", err)
	}

	availabilityService, err := availability.NewService(availability.ServiceParams{
		Repo:    availability.NewRepository(conn),
		Dealers: dealerRepo,
		Tx:      w.db,
		Outbox:  emitter,
		Logger:  w.logg,
		Limits: availability.Limits{
			MinSlotDuration: w.cfg.Availability.MinSlotDuration,
			MaxSlotDuration: w.cfg.Availability.MaxSlotDuration,
		},
		DefaultSlotDuration: w.cfg.Availability.DefaultSlotDuration,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("availability service: %w", err)
	}

	deps := routes.Dependencies{
		Config:        w.cfg,
		Logger:        w.logg,
		DB:            w.db,
		Redis:         w.redis,
		Payouts:       payoutService,
		Orders:        orderService,
		Leads:         leadService,
		Availability:  availabilityService,
		Dealers:       dealerService,
		Ledger:        ledgerService,
		Notifications: notificationService,
	}

	if w.bq != nil {
		dashboard, err := query.NewDashboardService(w.bq)
		if err != nil {
			return routes.Dependencies{}, fmt.Errorf("dashboard service: %w", err)
		}
		deps.Dashboard = dashboard
	}

	return deps, nil
}
