package analytics

import (
	"net/http"

	"github.com/angelmondragon/voltline-backend/api/middleware"
	"github.com/angelmondragon/voltline-backend/api/responses"
	"github.com/angelmondragon/voltline-backend/api/validators"
	"github.com/angelmondragon/voltline-backend/internal/analytics/query"
	"github.com/angelmondragon/voltline-backend/internal/analytics/types"
	pkgerrors "github.com/angelmondragon/voltline-backend/pkg/errors"
	"github.com/angelmondragon/voltline-backend/pkg/logger"
)

// Dashboard serves daily paid orders, revenue, commission and payouts.
// Dealers always get their own series; admins may pass dealer_id.
func Dashboard(service query.DashboardService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if service == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analytics unavailable"))
			return
		}
		actor, err := middleware.RequireActor(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		dealerID, err := validators.ParseQueryUUID(r, "dealer_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		from, to, err := resolveDashboardRange(r, timeNowUTC())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := service.Dashboard(ctx, types.DashboardRequest{
			Actor:    actor,
			DealerID: dealerID,
			FromDate: from,
			ToDate:   to,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
