package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pmgasset/nomadtech/internal/domain"
	"github.com/pmgasset/nomadtech/internal/repository"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

const genericRetryMessage = "Something went wrong. Please try again."

// respondServiceError maps the error taxonomy onto HTTP. Only validation
// errors and user-actionable processor failures reach the buyer verbatim;
// everything else becomes a generic retry prompt.
func respondServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		verr *domain.ValidationError
		uerr *domain.UpstreamError
	)
	switch {
	case errors.As(err, &verr):
		respondError(w, http.StatusBadRequest, "validation_error", verr.Error())
	case errors.As(err, &uerr):
		status, code, msg := upstreamResponse(uerr.Kind)
		if !uerr.UserActionable() {
			logger.Error("payment processor failure", "kind", string(uerr.Kind), "error", err)
		}
		respondError(w, status, code, msg)
	case errors.Is(err, repository.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "not_found", "order not found")
	default:
		logger.Error("request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", genericRetryMessage)
	}
}

func upstreamResponse(kind domain.UpstreamKind) (int, string, string) {
	switch kind {
	case domain.UpstreamCardDeclined:
		return http.StatusPaymentRequired, "card_declined", "Your card was declined. Please try a different payment method."
	case domain.UpstreamInvalidRequest:
		return http.StatusBadRequest, "invalid_request", "We could not start checkout with this cart. Please review your order and try again."
	case domain.UpstreamRateLimited:
		return http.StatusTooManyRequests, "rate_limited", "Too many checkout attempts. Please wait a moment and try again."
	case domain.UpstreamConnectivity:
		return http.StatusServiceUnavailable, "payment_unavailable", genericRetryMessage
	default:
		return http.StatusBadGateway, "payment_unavailable", genericRetryMessage
	}
}
