package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pmgasset/nomadtech/internal/payment"
	"github.com/pmgasset/nomadtech/internal/service"
)

type SessionCreator interface {
	CreateSession(ctx context.Context, req service.CheckoutRequest) (*payment.Session, error)
}

type CheckoutHandler struct {
	checkout SessionCreator
	timeout  time.Duration
	logger   *slog.Logger
}

func NewCheckoutHandler(checkout SessionCreator, timeout time.Duration, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		timeout:  timeout,
		logger:   logger,
	}
}

type CheckoutRequestDTO struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type CheckoutResponseDTO struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
}

// POST /api/v1/checkout
func (h *CheckoutHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	session, err := h.checkout.CreateSession(ctx, service.CheckoutRequest{
		CartSessionID: cartSessionID(r.Context()),
		Email:         req.Email,
		Phone:         req.Phone,
	})
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, CheckoutResponseDTO{URL: session.URL, SessionID: session.ID})
}
