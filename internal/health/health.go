// Package health reports whether the storefront can take orders.
package health

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

const (
	checkDatabase    = "database"
	checkProcessor   = "payment_processor"
	checkEnvironment = "environment"
	checkCartStore   = "cart_store"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

type Check struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Missing   []string  `json:"missing_vars,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Report struct {
	Status    Status           `json:"status"`
	Service   string           `json:"service"`
	Version   string           `json:"version"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    float64          `json:"uptime_seconds"`
	Checks    map[string]Check `json:"checks"`
	Warnings  []string         `json:"warnings,omitempty"`
	Errors    []string         `json:"errors,omitempty"`
}

type Config struct {
	Service string
	Version string
	// Database and Processor failures make the service unhealthy.
	Database  Pinger
	Processor Pinger
	// CartStore failures degrade the service: browsing and webhooks still work.
	CartStore Pinger
	// Credentials maps required credential names to their values. Only the
	// names of missing entries are ever reported.
	Credentials map[string]string
	Timeout     time.Duration
}

type Checker struct {
	cfg     Config
	started time.Time
	logger  *slog.Logger
	sfg     singleflight.Group
	now     func() time.Time
}

func NewChecker(cfg Config, logger *slog.Logger) *Checker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Service == "" {
		cfg.Service = "nomadnet-storefront"
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{cfg: cfg, started: time.Now(), logger: logger, now: time.Now}
}

// Check runs every probe. Concurrent callers share one in-flight run so a
// burst of monitor requests does not multiply upstream calls.
func (c *Checker) Check(ctx context.Context) Report {
	v, _, _ := c.sfg.Do("health", func() (any, error) {
		// Detached from the first caller so its cancellation does not fail the others.
		probeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Timeout)
		defer cancel()
		return c.run(probeCtx), nil
	})
	return v.(Report)
}

func (c *Checker) run(ctx context.Context) Report {
	now := c.now().UTC()
	report := Report{
		Status:    StatusHealthy,
		Service:   c.cfg.Service,
		Version:   c.cfg.Version,
		Timestamp: now,
		Uptime:    now.Sub(c.started).Seconds(),
		Checks:    make(map[string]Check),
	}

	missing := c.missingCredentials()
	env := Check{Status: "pass", Timestamp: now}
	if len(missing) > 0 {
		env.Status = "fail"
		env.Missing = missing
		report.degrade("missing environment variables: " + strings.Join(missing, ", "))
	}
	report.Checks[checkEnvironment] = env

	if c.cfg.Database != nil {
		report.Checks[checkDatabase] = c.probe(ctx, checkDatabase, c.cfg.Database, &report, true)
	}
	if c.cfg.Processor != nil {
		report.Checks[checkProcessor] = c.probe(ctx, checkProcessor, c.cfg.Processor, &report, true)
	}
	if c.cfg.CartStore != nil {
		report.Checks[checkCartStore] = c.probe(ctx, checkCartStore, c.cfg.CartStore, &report, false)
	}
	return report
}

func (c *Checker) probe(ctx context.Context, name string, p Pinger, report *Report, critical bool) Check {
	check := Check{Status: "connected"}
	if err := p.Ping(ctx); err != nil {
		// The raw error may name hosts or keys; it goes to the log only.
		c.logger.Warn("health probe failed", "check", name, "error", err)
		check.Status = "disconnected"
		check.Message = name + " unreachable"
		if critical {
			report.fail(name + " connection failed")
		} else {
			report.degrade(name + " connection failed")
		}
	}
	check.Timestamp = c.now().UTC()
	return check
}

func (c *Checker) missingCredentials() []string {
	var missing []string
	for name, value := range c.cfg.Credentials {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

func (r *Report) degrade(warning string) {
	r.Warnings = append(r.Warnings, warning)
	if r.Status == StatusHealthy {
		r.Status = StatusDegraded
	}
}

func (r *Report) fail(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Status = StatusUnhealthy
}

// Serving reports whether traffic should be routed to the service.
func (r Report) Serving() bool {
	return r.Status != StatusUnhealthy
}
