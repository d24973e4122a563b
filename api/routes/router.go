package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/voltline-backend/api/controllers"
	analyticscontrollers "github.com/angelmondragon/voltline-backend/api/controllers/analytics"
	availabilitycontrollers "github.com/angelmondragon/voltline-backend/api/controllers/availability"
	dealercontrollers "github.com/angelmondragon/voltline-backend/api/controllers/dealers"
	leadcontrollers "github.com/angelmondragon/voltline-backend/api/controllers/leads"
	ordercontrollers "github.com/angelmondragon/voltline-backend/api/controllers/orders"
	payoutcontrollers "github.com/angelmondragon/voltline-backend/api/controllers/payouts"
	"github.com/angelmondragon/voltline-backend/api/middleware"
	"github.com/angelmondragon/voltline-backend/internal/analytics/query"
	"github.com/angelmondragon/voltline-backend/internal/availability"
	"github.com/angelmondragon/voltline-backend/internal/dealers"
	"github.com/angelmondragon/voltline-backend/internal/leads"
	"github.com/angelmondragon/voltline-backend/internal/ledger"
	"github.com/angelmondragon/voltline-backend/internal/notifications"
	"github.com/angelmondragon/voltline-backend/internal/orders"
	"github.com/angelmondragon/voltline-backend/internal/payouts"
	"github.com/angelmondragon/voltline-backend/pkg/config"
	"github.com/angelmondragon/voltline-backend/pkg/enums"
	"github.com/angelmondragon/voltline-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/voltline-backend/pkg/redis"
)

// RedisStore is the slice of the redis client the HTTP layer needs.
type RedisStore interface {
	pkgredis.ResponseStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
	Ping(ctx context.Context) error
}

// Dependencies are the collaborators mounted on the router. A nil service
// still mounts its routes; the handlers answer INTERNAL_ERROR.
type Dependencies struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      controllers.Pinger
	Redis   RedisStore
	Metrics http.Handler

	Payouts       payouts.Service
	Orders        orders.Service
	Leads         leads.Service
	Availability  availability.Service
	Dealers       dealers.Service
	Ledger        ledger.Service
	Notifications notifications.Service
	Dashboard     query.DashboardService
}

func NewRouter(deps Dependencies) http.Handler {
	cfg, logg := deps.Config, deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	leadPolicy := middleware.NewRateLimitPolicy(
		"lead",
		cfg.RateLimit.LeadWindow,
		cfg.RateLimit.LeadIPLimit,
		cfg.RateLimit.LeadEmailLimit,
		0,
	)
	optionalIdempotency := middleware.IdempotencyPolicy{TTL: cfg.Eventing.HTTPIdempotencyTTL}
	// Payout and payment writes keep replays longer. The key stays optional;
	// the database claim already stops a second payout.
	criticalIdempotency := middleware.IdempotencyPolicy{TTL: middleware.CriticalIdempotencyTTL}
	idempotent := func(policy middleware.IdempotencyPolicy) func(http.Handler) http.Handler {
		return middleware.Idempotency(deps.Redis, policy, logg)
	}

	adminOnly := middleware.RequireRoles(logg, enums.ActorRoleAdmin)
	adminOrDealer := middleware.RequireRoles(logg, enums.ActorRoleAdmin, enums.ActorRoleDealer)
	customerOnly := middleware.RequireRoles(logg, enums.ActorRoleCustomer)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": deps.Redis,
		}))
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		auth := middleware.Auth(cfg.JWT, logg)

		r.Route("/leads", func(r chi.Router) {
			r.With(middleware.RateLimit(leadPolicy, deps.Redis, logg)).
				Post("/", leadcontrollers.Create(deps.Leads, logg))

			r.Group(func(r chi.Router) {
				r.Use(auth)
				r.With(adminOnly).Post("/assign", leadcontrollers.Assign(deps.Leads, logg))
				r.Group(func(r chi.Router) {
					r.Use(adminOrDealer)
					r.Get("/", leadcontrollers.List(deps.Leads, logg))
					r.Get("/{leadId}", leadcontrollers.Detail(deps.Leads, logg))
					r.Put("/{leadId}/status", leadcontrollers.UpdateStatus(deps.Leads, logg))
					r.Put("/{leadId}/notes", leadcontrollers.AppendNote(deps.Leads, logg))
				})
			})
		})

		r.Route("/dealers", func(r chi.Router) {
			r.Get("/{dealerId}/availability/check", availabilitycontrollers.Check(deps.Availability, logg))

			r.Group(func(r chi.Router) {
				r.Use(auth)
				r.With(adminOnly).Get("/", dealercontrollers.List(deps.Dealers, logg))
				r.Route("/{dealerId}", func(r chi.Router) {
					r.With(adminOrDealer).Get("/", dealercontrollers.Detail(deps.Dealers, logg))
					r.With(adminOnly).Put("/commission-rate", dealercontrollers.SetCommissionRate(deps.Dealers, logg))
					r.With(adminOnly).Put("/approval", dealercontrollers.SetApprovalStatus(deps.Dealers, logg))
					r.With(adminOrDealer).Get("/ledger", dealercontrollers.Ledger(deps.Ledger, logg))

					r.Route("/availability", func(r chi.Router) {
						r.Use(adminOrDealer)
						r.Get("/", availabilitycontrollers.GetSettings(deps.Availability, logg))
						r.Put("/", availabilitycontrollers.PutSettings(deps.Availability, logg))
						r.Post("/holidays", availabilitycontrollers.AddHoliday(deps.Availability, logg))
						r.Delete("/holidays/{date}", availabilitycontrollers.RemoveHoliday(deps.Availability, logg))
					})
					r.With(idempotent(optionalIdempotency)).Post("/test-rides", availabilitycontrollers.BookTestRide(deps.Availability, logg))
				})
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(auth)

			r.Route("/payouts", func(r chi.Router) {
				r.With(adminOrDealer).Get("/", payoutcontrollers.List(deps.Payouts, logg))
				r.With(adminOnly, idempotent(criticalIdempotency)).Post("/", payoutcontrollers.Create(deps.Payouts, logg))
				r.With(adminOnly, idempotent(optionalIdempotency)).Put("/", payoutcontrollers.UpdateStatus(deps.Payouts, logg))
				r.With(adminOnly).Get("/preview", payoutcontrollers.Preview(deps.Payouts, logg))
				r.With(adminOrDealer).Get("/{payoutId}", payoutcontrollers.Detail(deps.Payouts, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.With(customerOnly, idempotent(optionalIdempotency)).Post("/", ordercontrollers.Place(deps.Orders, logg))
				r.Get("/", ordercontrollers.List(deps.Orders, logg))
				r.Get("/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
				r.With(adminOrDealer).Put("/{orderId}/status", ordercontrollers.UpdateStatus(deps.Orders, logg))
				r.With(adminOnly, idempotent(criticalIdempotency)).Post("/{orderId}/payment", ordercontrollers.ConfirmPayment(deps.Orders, logg))
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
				r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			})

			r.With(adminOrDealer).Get("/analytics/dashboard", analyticscontrollers.Dashboard(deps.Dashboard, logg))
		})
	})

	return r
}
