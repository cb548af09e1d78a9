package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pmgasset/nomadtech/internal/domain"
)

type OrderFinder interface {
	GetOrderBySessionID(ctx context.Context, sessionID string) (*domain.Order, error)
}

type Shipper interface {
	MarkShipped(ctx context.Context, sessionID, trackingNumber string) (*domain.Order, error)
}

type OrdersHandler struct {
	orders  OrderFinder
	shipper Shipper
	timeout time.Duration
	logger  *slog.Logger
}

func NewOrdersHandler(orders OrderFinder, shipper Shipper, timeout time.Duration, logger *slog.Logger) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		shipper: shipper,
		timeout: timeout,
		logger:  logger,
	}
}

type OrderItemDTO struct {
	ProductID string       `json:"product_id"`
	Name      string       `json:"name"`
	Quantity  int          `json:"quantity"`
	UnitPrice domain.Money `json:"unit_price"`
	Subtotal  domain.Money `json:"subtotal"`
}

// OrderSummaryDTO is what the success page shows. It leaves out processor
// identifiers and the customer's contact details.
type OrderSummaryDTO struct {
	Reference      string             `json:"reference"`
	SessionID      string             `json:"session_id"`
	Status         domain.OrderStatus `json:"status"`
	Total          domain.Money       `json:"total"`
	TotalFormatted string             `json:"total_formatted"`
	Currency       string             `json:"currency"`
	TrackingNumber string             `json:"tracking_number,omitempty"`
	HasDataPlan    bool               `json:"has_data_plan"`
	Items          []OrderItemDTO     `json:"items"`
	CreatedAt      time.Time          `json:"created_at"`
}

type ShipRequestDTO struct {
	TrackingNumber string `json:"tracking_number"`
}

func toOrderSummary(o *domain.Order) OrderSummaryDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemDTO{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.Subtotal(),
		})
	}
	return OrderSummaryDTO{
		Reference:      o.Reference(),
		SessionID:      o.SessionID,
		Status:         o.Status,
		Total:          o.TotalAmount,
		TotalFormatted: o.TotalAmount.Format(),
		Currency:       o.Currency,
		TrackingNumber: o.TrackingNumber,
		HasDataPlan:    o.SubscriptionExternalID != "",
		Items:          items,
		CreatedAt:      o.CreatedAt,
	}
}

// GET /api/v1/orders/{session_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	order, err := h.orders.GetOrderBySessionID(ctx, chi.URLParam(r, "session_id"))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderSummary(order))
}

// POST /api/v1/admin/orders/{session_id}/ship
func (h *OrdersHandler) MarkShipped(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ShipRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	order, err := h.shipper.MarkShipped(ctx, chi.URLParam(r, "session_id"), req.TrackingNumber)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderSummary(order))
}
