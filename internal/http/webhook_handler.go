package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pmgasset/nomadtech/internal/domain"
	"github.com/pmgasset/nomadtech/internal/payment"
	"github.com/pmgasset/nomadtech/internal/reconcile"
)

const (
	MaxWebhookBodySize  = 1 << 20 // 1MB
	SignatureHeaderName = "Stripe-Signature"
)

type EventHandler interface {
	Handle(ctx context.Context, evt *payment.Event) (reconcile.Outcome, error)
}

type EventRecorder interface {
	Record(ctx context.Context, evt *payment.Event, outcome reconcile.Outcome, procErr error) error
}

type WebhookHandler struct {
	verifier payment.Verifier
	events   EventHandler
	archive  EventRecorder
	timeout  time.Duration
	logger   *slog.Logger
}

func NewWebhookHandler(verifier payment.Verifier, events EventHandler, archive EventRecorder, timeout time.Duration, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifier: verifier,
		events:   events,
		archive:  archive,
		timeout:  timeout,
		logger:   logger,
	}
}

// POST /api/v1/webhooks/stripe
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	// The signature covers the exact bytes sent, so nothing decodes the body
	// before verification.
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxWebhookBodySize))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "could not read request body")
		return
	}

	evt, err := h.verifier.VerifyEvent(payload, r.Header.Get(SignatureHeaderName))
	if err != nil {
		var serr *domain.SignatureError
		if errors.As(err, &serr) {
			h.logger.Warn("webhook signature verification failed", "error", err)
			respondError(w, http.StatusBadRequest, "invalid_signature", "webhook signature verification failed")
			return
		}
		h.logger.Error("webhook payload could not be decoded", "error", err)
		respondError(w, http.StatusBadRequest, "invalid_payload", "webhook payload could not be decoded")
		return
	}

	// Processing continues if the sender hangs up; a half-applied event would
	// only be redelivered anyway.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.timeout)
	defer cancel()

	outcome, procErr := h.events.Handle(ctx, evt)
	if h.archive != nil {
		if err := h.archive.Record(ctx, evt, outcome, procErr); err != nil {
			h.logger.Warn("failed to archive webhook event", "event_id", evt.ID, "error", err)
		}
	}
	if procErr != nil {
		h.logger.Error("webhook processing failed",
			"event_id", evt.ID,
			"event_type", string(evt.Type),
			"error", procErr)
		respondError(w, http.StatusInternalServerError, "processing_failed", "webhook processing failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}
