package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pmgasset/nomadtech/internal/domain"
	"github.com/pmgasset/nomadtech/internal/repository"
)

// MarkShipped advances the order for a checkout session to SHIPPED, records the
// carrier tracking number and emails the buyer. Marking an already shipped
// order again is a no-op and sends nothing.
func (r *Reconciler) MarkShipped(ctx context.Context, sessionID, trackingNumber string) (*domain.Order, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if sessionID == "" {
		return nil, domain.NewValidationError("session_id", "is required")
	}
	if trackingNumber == "" {
		return nil, domain.NewValidationError("tracking_number", "is required")
	}

	order, err := r.store.GetOrderBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, err
		}
		return nil, &domain.PersistenceError{Op: "get_order_by_session", Err: err}
	}

	changed, err := r.store.ShipOrder(ctx, order.ID, trackingNumber)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "ship_order", Err: fmt.Errorf("order %s: %w", order.ID, err)}
	}
	if !changed {
		r.logger.InfoContext(ctx, "order already shipped", "order_id", order.ID.String(), "session_id", sessionID)
		return order, nil
	}
	order.Status = domain.OrderStatusShipped
	order.TrackingNumber = trackingNumber

	r.logger.InfoContext(ctx, "order shipped", "order_id", order.ID.String(), "tracking_number", trackingNumber)
	r.notifier.ShippingNotification(ctx, order)
	return order, nil
}
