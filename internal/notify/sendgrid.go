package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pmgasset/nomadtech/internal/breaker"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sony/gobreaker/v2"
)

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var (
	ErrNoAPIKey    = errors.New("sendgrid api key is empty")
	ErrNoRecipient = errors.New("recipient address is empty")
)

type SendGridConfig struct {
	APIKey   string
	From     string
	FromName string
	Timeout  time.Duration
	// Host overrides the API host, used by tests.
	Host string
}

type SendGridSender struct {
	cfg     SendGridConfig
	request rest.Request
	breaker *gobreaker.CircuitBreaker[*rest.Response]
}

func NewSendGridSender(cfg SendGridConfig, logger *slog.Logger) *SendGridSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.FromName == "" {
		cfg.FromName = "NomadNet"
	}

	req := sendgrid.GetRequest(cfg.APIKey, "/v3/mail/send", cfg.Host)
	req.Method = rest.Post

	return &SendGridSender{
		cfg:     cfg,
		request: req,
		breaker: breaker.New[*rest.Response](breaker.Settings{
			Name:                "sendgrid",
			ConsecutiveFailures: 3,
			OpenTimeout:         time.Minute,
		}, logger),
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	if s.cfg.APIKey == "" {
		return ErrNoAPIKey
	}
	if msg.To == "" {
		return ErrNoRecipient
	}

	message := mail.NewSingleEmail(
		mail.NewEmail(s.cfg.FromName, s.cfg.From),
		msg.Subject,
		mail.NewEmail("", msg.To),
		msg.Text,
		msg.HTML,
	)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	// The client stores the encoded body on itself, so each send gets its own.
	client := &sendgrid.Client{Request: s.request}
	resp, err := s.breaker.Execute(func() (*rest.Response, error) {
		resp, err := client.SendWithContext(ctx, message)
		if err != nil {
			return nil, fmt.Errorf("sendgrid send error: %w", err)
		}
		if resp.StatusCode >= 500 {
			return resp, fmt.Errorf("sendgrid send failed: status=%d, body=%s", resp.StatusCode, resp.Body)
		}
		return resp, nil
	})
	if err != nil {
		return err
	}
	// 4xx means the message was rejected, which says nothing about provider health.
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed: status=%d, body=%s", resp.StatusCode, resp.Body)
	}
	return nil
}
