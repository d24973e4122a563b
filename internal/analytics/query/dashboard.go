package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	cloudbigquery "cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"

	"github.com/angelmondragon/voltline-backend/internal/analytics/types"
	"github.com/angelmondragon/voltline-backend/pkg/bigquery"
	pkgerrors "github.com/angelmondragon/voltline-backend/pkg/errors"
)

const (
	dateLayout = "2006-01-02"

	// MaxRangeDays bounds a single dashboard request.
	MaxRangeDays = 366

	dailySeriesSQL = `
SELECT
  FORMAT_DATE('%%F', DATE(occurred_at)) AS day,
  COUNTIF(event_type = 'order_paid') AS paid_orders,
  SUM(IF(event_type = 'order_paid', COALESCE(amount_cents, 0), 0)) AS revenue_cents,
  SUM(IF(event_type = 'order_paid', COALESCE(commission_cents, 0), 0)) AS commission_cents,
  SUM(IF(event_type = 'payout_created', COALESCE(amount_cents, 0), 0)) AS payout_cents
FROM %s
WHERE event_type IN ('order_paid', 'payout_created')
  AND occurred_at >= @start
  AND occurred_at < @end%s
GROUP BY day
ORDER BY day ASC
`
	dealerClause = `
  AND dealer_id = @dealerID`
)

// DashboardService serves daily dealer figures from the dealer_events table.
type DashboardService interface {
	Dashboard(ctx context.Context, req types.DashboardRequest) (*types.DashboardResponse, error)
}

type rowIterator interface {
	Next(dst any) error
}

type querier interface {
	Query(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) (rowIterator, error)
}

type clientQuerier struct {
	client *bigquery.Client
}

func (q clientQuerier) Query(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) (rowIterator, error) {
	return q.client.Query(ctx, sql, params)
}

type dashboardService struct {
	q        querier
	tableRef string
}

// NewDashboardService builds a service backed by BigQuery.
func NewDashboardService(client *bigquery.Client) (DashboardService, error) {
	if client == nil {
		return nil, fmt.Errorf("bigquery client required")
	}
	table := client.DealerEventsTable()
	if table == "" {
		return nil, fmt.Errorf("dealer events table is required")
	}
	return newDashboardService(clientQuerier{client: client}, client.QualifiedTable(table))
}

func newDashboardService(q querier, tableRef string) (*dashboardService, error) {
	if q == nil {
		return nil, fmt.Errorf("querier required")
	}
	if strings.TrimSpace(tableRef) == "" {
		return nil, fmt.Errorf("table reference required")
	}
	return &dashboardService{q: q, tableRef: tableRef}, nil
}

func (s *dashboardService) Dashboard(ctx context.Context, req types.DashboardRequest) (*types.DashboardResponse, error) {
	from, to, err := parseRange(req.FromDate, req.ToDate)
	if err != nil {
		return nil, err
	}

	var dealerID *string
	switch {
	case req.Actor.IsAdmin():
		if req.DealerID != nil {
			id := req.DealerID.String()
			dealerID = &id
		}
	case req.Actor.IsDealer():
		id := req.Actor.DealerID.String()
		dealerID = &id
		req.DealerID = req.Actor.DealerID
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "dashboard requires an admin or dealer")
	}

	params := []cloudbigquery.QueryParameter{
		{Name: "start", Value: from},
		{Name: "end", Value: to.AddDate(0, 0, 1)},
	}
	clause := ""
	if dealerID != nil {
		clause = dealerClause
		params = append(params, cloudbigquery.QueryParameter{Name: "dealerID", Value: *dealerID})
	}

	byDay, err := s.queryDaily(ctx, fmt.Sprintf(dailySeriesSQL, s.tableRef, clause), params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query dealer dashboard")
	}

	resp := &types.DashboardResponse{
		DealerID: req.DealerID,
		FromDate: from.Format(dateLayout),
		ToDate:   to.Format(dateLayout),
		Series:   make([]types.DailyPoint, 0, int(to.Sub(from).Hours()/24)+1),
		Totals: types.DashboardTotals{
			Revenue:    decimal.Zero,
			Commission: decimal.Zero,
			Payouts:    decimal.Zero,
		},
	}
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		key := day.Format(dateLayout)
		point, ok := byDay[key]
		if !ok {
			point = types.DailyPoint{Date: key, Revenue: decimal.Zero, Commission: decimal.Zero, Payouts: decimal.Zero}
		}
		resp.Series = append(resp.Series, point)
		resp.Totals.PaidOrders += point.PaidOrders
		resp.Totals.Revenue = resp.Totals.Revenue.Add(point.Revenue)
		resp.Totals.Commission = resp.Totals.Commission.Add(point.Commission)
		resp.Totals.Payouts = resp.Totals.Payouts.Add(point.Payouts)
	}
	return resp, nil
}

func (s *dashboardService) queryDaily(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) (map[string]types.DailyPoint, error) {
	iter, err := s.q.Query(ctx, sql, params)
	if err != nil {
		return nil, fmt.Errorf("query daily series: %w", err)
	}

	points := make(map[string]types.DailyPoint)
	for {
		var row struct {
			Day             string `bigquery:"day"`
			PaidOrders      int64  `bigquery:"paid_orders"`
			RevenueCents    int64  `bigquery:"revenue_cents"`
			CommissionCents int64  `bigquery:"commission_cents"`
			PayoutCents     int64  `bigquery:"payout_cents"`
		}
		if err := iter.Next(&row); err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return nil, fmt.Errorf("reading daily row: %w", err)
		}
		points[row.Day] = types.DailyPoint{
			Date:       row.Day,
			PaidOrders: row.PaidOrders,
			Revenue:    decimal.New(row.RevenueCents, -2),
			Commission: decimal.New(row.CommissionCents, -2),
			Payouts:    decimal.New(row.PayoutCents, -2),
		}
	}
	return points, nil
}

func parseRange(fromDate, toDate string) (time.Time, time.Time, error) {
	from, err := time.Parse(dateLayout, strings.TrimSpace(fromDate))
	if err != nil {
		return time.Time{}, time.Time{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "from_date must be yyyy-MM-dd")
	}
	to, err := time.Parse(dateLayout, strings.TrimSpace(toDate))
	if err != nil {
		return time.Time{}, time.Time{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "to_date must be yyyy-MM-dd")
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "from_date must not be after to_date")
	}
	if to.Sub(from) >= MaxRangeDays*24*time.Hour {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("range may not exceed %d days", MaxRangeDays))
	}
	return from, to, nil
}
