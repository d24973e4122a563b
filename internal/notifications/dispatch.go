package notifications

import (
	"context"

	"github.com/angelmondragon/voltline-backend/pkg/logger"
	"github.com/angelmondragon/voltline-backend/pkg/metrics"
)

// Dispatcher sends a notification without reporting failure to the caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, input NotifyInput)
}

// BestEffort wraps a Service so callers that already committed their own work
// are never failed by a notification problem.
type BestEffort struct {
	svc     Service
	logg    *logger.Logger
	metrics *metrics.DomainMetrics
}

func NewBestEffort(svc Service, logg *logger.Logger, m *metrics.DomainMetrics) *BestEffort {
	return &BestEffort{svc: svc, logg: logg, metrics: m}
}

func (b *BestEffort) Dispatch(ctx context.Context, input NotifyInput) {
	if b == nil || b.svc == nil {
		return
	}
	if _, err := b.svc.Notify(ctx, input); err != nil {
		b.metrics.NotificationFailed(string(input.Type))
		if b.logg != nil {
			b.logg.Warn(b.logg.WithFields(ctx, map[string]any{
				"user_id":           input.UserID.String(),
				"notification_type": input.Type,
				"error":             err.Error(),
			}), "notification.dispatch.failed")
		}
	}
}
