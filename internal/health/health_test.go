package health

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okPinger() PingerFunc {
	return func(context.Context) error { return nil }
}

func failingPinger() PingerFunc {
	return func(context.Context) error { return errors.New("dial tcp 10.0.0.5:5432: connection refused") }
}

func allCredentials() map[string]string {
	return map[string]string{
		"STRIPE_SECRET_KEY":      "sk_test_x",
		"STRIPE_PUBLISHABLE_KEY": "pk_test_x",
		"STRIPE_WEBHOOK_SECRET":  "whsec_x",
		"SENDGRID_API_KEY":       "SG.x",
	}
}

func TestCheck_Statuses(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		wantStatus  Status
		wantServing bool
	}{
		{
			name:        "all good",
			cfg:         Config{Database: okPinger(), Processor: okPinger(), CartStore: okPinger(), Credentials: allCredentials()},
			wantStatus:  StatusHealthy,
			wantServing: true,
		},
		{
			name: "missing credential degrades",
			cfg: Config{Database: okPinger(), Processor: okPinger(), Credentials: map[string]string{
				"STRIPE_SECRET_KEY": "sk_test_x", "SENDGRID_API_KEY": "",
			}},
			wantStatus:  StatusDegraded,
			wantServing: true,
		},
		{
			name:        "cart store down degrades",
			cfg:         Config{Database: okPinger(), Processor: okPinger(), CartStore: failingPinger(), Credentials: allCredentials()},
			wantStatus:  StatusDegraded,
			wantServing: true,
		},
		{
			name:        "database down",
			cfg:         Config{Database: failingPinger(), Processor: okPinger(), Credentials: allCredentials()},
			wantStatus:  StatusUnhealthy,
			wantServing: false,
		},
		{
			name:        "processor down with missing credentials",
			cfg:         Config{Database: okPinger(), Processor: failingPinger(), Credentials: map[string]string{"STRIPE_SECRET_KEY": ""}},
			wantStatus:  StatusUnhealthy,
			wantServing: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := NewChecker(tt.cfg, nil).Check(context.Background())
			assert.Equal(t, tt.wantStatus, report.Status)
			assert.Equal(t, tt.wantServing, report.Serving())
		})
	}
}

func TestCheck_NeverLeaksSecretsOrErrors(t *testing.T) {
	creds := allCredentials()
	creds["STRIPE_WEBHOOK_SECRET"] = ""
	report := NewChecker(Config{Database: failingPinger(), Credentials: creds}, nil).Check(context.Background())

	env := report.Checks[checkEnvironment]
	assert.Equal(t, "fail", env.Status)
	assert.Equal(t, []string{"STRIPE_WEBHOOK_SECRET"}, env.Missing)

	db := report.Checks[checkDatabase]
	assert.Equal(t, "disconnected", db.Status)
	assert.NotContains(t, db.Message, "10.0.0.5")
	for _, msg := range append(report.Errors, report.Warnings...) {
		assert.NotContains(t, msg, "sk_test_x")
		assert.NotContains(t, msg, "10.0.0.5")
	}
}

func TestCheck_CollapsesConcurrentProbes(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	slow := PingerFunc(func(context.Context) error {
		calls.Add(1)
		<-release
		return nil
	})
	checker := NewChecker(Config{Processor: slow, Credentials: allCredentials()}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			checker.Check(context.Background())
		}()
	}
	// Give the goroutines time to join the in-flight probe.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Less(t, calls.Load(), int32(10))
}

func TestCheck_ReportMetadata(t *testing.T) {
	checker := NewChecker(Config{Service: "storefront", Version: "1.2.3"}, nil)
	checker.started = time.Now().Add(-time.Minute)

	report := checker.Check(context.Background())
	require.Equal(t, StatusHealthy, report.Status)
	assert.Equal(t, "storefront", report.Service)
	assert.Equal(t, "1.2.3", report.Version)
	assert.GreaterOrEqual(t, report.Uptime, 60.0)
	assert.False(t, report.Timestamp.IsZero())
}
