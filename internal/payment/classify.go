package payment

import (
	"errors"
	"net/http"

	"github.com/pmgasset/nomadtech/internal/domain"
	"github.com/stripe/stripe-go/v80"
)

// ClassifyError maps a processor failure onto the upstream taxonomy. Errors
// that never reached the processor (network, timeout, open breaker) are
// connectivity failures.
func ClassifyError(err error) *domain.UpstreamError {
	if err == nil {
		return nil
	}

	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) {
		return upstream
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return &domain.UpstreamError{Kind: stripeKind(stripeErr), Err: err}
	}

	return &domain.UpstreamError{Kind: domain.UpstreamConnectivity, Err: err}
}

func stripeKind(e *stripe.Error) domain.UpstreamKind {
	switch {
	case e.Type == stripe.ErrorTypeCard:
		return domain.UpstreamCardDeclined
	case e.HTTPStatusCode == http.StatusTooManyRequests || e.Code == stripe.ErrorCodeRateLimit:
		return domain.UpstreamRateLimited
	case e.HTTPStatusCode == http.StatusUnauthorized || e.HTTPStatusCode == http.StatusForbidden:
		return domain.UpstreamAuthentication
	case e.Type == stripe.ErrorTypeInvalidRequest:
		return domain.UpstreamInvalidRequest
	default:
		return domain.UpstreamAPI
	}
}

// countsAgainstUpstream reports whether a failure says something about the
// processor's health. Buyer mistakes do not trip the breaker.
func countsAgainstUpstream(err error) bool {
	if err == nil {
		return false
	}
	switch ClassifyError(err).Kind {
	case domain.UpstreamCardDeclined, domain.UpstreamInvalidRequest:
		return false
	default:
		return true
	}
}
