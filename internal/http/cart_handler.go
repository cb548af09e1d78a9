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

type ProductLister interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
}

type CartFlow interface {
	GetCart(ctx context.Context, sessionID string) (domain.Cart, error)
	SelectRouter(ctx context.Context, sessionID, productID string) (domain.Cart, error)
	AddDataPlan(ctx context.Context, sessionID, productID string) (domain.Cart, error)
	SkipDataPlan(ctx context.Context, sessionID string) (domain.Cart, error)
	SetQuantity(ctx context.Context, sessionID, productID string, quantity int) (domain.Cart, error)
	RemoveItem(ctx context.Context, sessionID, productID string) (domain.Cart, error)
	ClearCart(ctx context.Context, sessionID string) error
}

type CartHandler struct {
	carts    CartFlow
	products ProductLister
	flow     domain.FlowOptions
	timeout  time.Duration
	logger   *slog.Logger
}

func NewCartHandler(carts CartFlow, products ProductLister, flow domain.FlowOptions, timeout time.Duration, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		carts:    carts,
		products: products,
		flow:     flow,
		timeout:  timeout,
		logger:   logger,
	}
}

type SelectProductRequestDTO struct {
	ProductID string `json:"product_id"`
}

type UpdateQuantityRequestDTO struct {
	Quantity *int `json:"quantity"`
}

type CartTotalsDTO struct {
	Total             domain.Money `json:"total"`
	HardwareTotal     domain.Money `json:"hardware_total"`
	SubscriptionTotal domain.Money `json:"subscription_total"`
	DueToday          string       `json:"due_today"`
	Monthly           string       `json:"monthly,omitempty"`
}

type CartResponseDTO struct {
	Items       []domain.CartItem  `json:"items"`
	Step        domain.FlowStep    `json:"step"`
	Progress    *domain.Progress   `json:"progress,omitempty"`
	ItemCount   int                `json:"item_count"`
	HasDataPlan bool               `json:"has_data_plan"`
	Totals      CartTotalsDTO      `json:"totals"`
	Options     domain.FlowOptions `json:"options"`
}

func (h *CartHandler) toDTO(c domain.Cart) CartResponseDTO {
	items := c.Items
	if items == nil {
		items = []domain.CartItem{}
	}
	dto := CartResponseDTO{
		Items:       items,
		Step:        c.Step,
		Progress:    h.flow.Progress(c.Step),
		ItemCount:   c.ItemCount(),
		HasDataPlan: c.HasDataPlan(),
		Totals: CartTotalsDTO{
			Total:             c.Total(),
			HardwareTotal:     c.HardwareTotal(),
			SubscriptionTotal: c.SubscriptionTotal(),
			DueToday:          c.Total().Format(),
		},
		Options: h.flow,
	}
	if c.HasDataPlan() {
		dto.Totals.Monthly = c.SubscriptionTotal().Format()
	}
	return dto
}

// GET /api/v1/catalog
func (h *CartHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.products.ListProducts(ctx)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"products": products})
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.carts.GetCart(ctx, cartSessionID(r.Context()))
	h.respondCart(w, cart, err)
}

// POST /api/v1/cart/router
func (h *CartHandler) SelectRouter(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SelectProductRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	cart, err := h.carts.SelectRouter(ctx, cartSessionID(r.Context()), req.ProductID)
	h.respondCart(w, cart, err)
}

// POST /api/v1/cart/data-plan
func (h *CartHandler) AddDataPlan(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	// The body is optional; an empty one selects the default plan.
	var req SelectProductRequestDTO
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	}

	cart, err := h.carts.AddDataPlan(ctx, cartSessionID(r.Context()), req.ProductID)
	h.respondCart(w, cart, err)
}

// POST /api/v1/cart/data-plan/skip
func (h *CartHandler) SkipDataPlan(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.carts.SkipDataPlan(ctx, cartSessionID(r.Context()))
	h.respondCart(w, cart, err)
}

// PUT /api/v1/cart/items/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "product_id")
	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity == nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "quantity is required")
		return
	}

	cart, err := h.carts.SetQuantity(ctx, cartSessionID(r.Context()), productID, *req.Quantity)
	h.respondCart(w, cart, err)
}

// DELETE /api/v1/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.carts.RemoveItem(ctx, cartSessionID(r.Context()), chi.URLParam(r, "product_id"))
	h.respondCart(w, cart, err)
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.carts.ClearCart(ctx, cartSessionID(r.Context())); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	h.respondCart(w, domain.NewCart(), nil)
}

func (h *CartHandler) respondCart(w http.ResponseWriter, cart domain.Cart, err error) {
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, h.toDTO(cart))
}
