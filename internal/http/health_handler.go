package http

import (
	"context"
	"net/http"

	"github.com/pmgasset/nomadtech/internal/health"
)

type HealthReporter interface {
	Check(ctx context.Context) health.Report
}

// GET /health
func healthHandler(reporter HealthReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := reporter.Check(r.Context())
		status := http.StatusOK
		if !report.Serving() {
			status = http.StatusServiceUnavailable
		}
		respondJSON(w, status, report)
	}
}
