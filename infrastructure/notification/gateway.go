// Package notification delivers email, SMS and push notifications through
// the HTTP notification gateway.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/felixgeelhaar/fortify/circuitbreaker"

	"github.com/felixgeelhaar/dbmcp/domain/activity"
	domainconfig "github.com/felixgeelhaar/dbmcp/domain/config"
	"github.com/felixgeelhaar/dbmcp/domain/notification"
	"github.com/felixgeelhaar/dbmcp/infrastructure/logging"
)

// Config configures the gateway client.
type Config struct {
	// BaseURL is the gateway root, without a trailing slash.
	BaseURL   string
	EmailPath string
	SMSPath   string
	PushPath  string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// FailureThreshold is consecutive failures before the circuit opens.
	FailureThreshold int

	// OpenTimeout is how long the circuit stays open.
	OpenTimeout time.Duration

	// UserAgent is the User-Agent header value.
	UserAgent string
}

// FromConfig adapts the server configuration.
func FromConfig(c domainconfig.NotificationConfig) Config {
	return Config{
		BaseURL:          strings.TrimRight(c.BaseURL, "/"),
		EmailPath:        c.EmailPath,
		SMSPath:          c.SMSPath,
		PushPath:         c.PushPath,
		Timeout:          c.Timeout,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
		UserAgent:        "dbmcp-notify/1.0",
	}
}

// reply is what the breaker sees. Client errors are replies, not failures,
// so a malformed request never opens the circuit.
type reply struct {
	status int
	body   string
}

// Gateway implements notification.Sender over HTTP. It never retries.
type Gateway struct {
	config    Config
	client    *http.Client
	validator *notification.Validator
	breaker   circuitbreaker.CircuitBreaker[reply]
	activity  activity.Store
	logger    *bolt.Logger
}

// Option configures the gateway.
type Option func(*Gateway)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) {
		g.client = c
	}
}

// WithActivity records every send outcome in the activity log.
func WithActivity(store activity.Store) Option {
	return func(g *Gateway) {
		g.activity = store
	}
}

// WithLogger sets the logger.
func WithLogger(l *bolt.Logger) Option {
	return func(g *Gateway) {
		g.logger = l
	}
}

// NewGateway creates a gateway client.
func NewGateway(config Config, v *notification.Validator, opts ...Option) *Gateway {
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.OpenTimeout <= 0 {
		config.OpenTimeout = 30 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "dbmcp-notify/1.0"
	}
	threshold := uint32(config.FailureThreshold) // #nosec G115 -- positive, checked above

	g := &Gateway{
		config:    config,
		client:    &http.Client{Timeout: config.Timeout},
		validator: v,
		breaker: circuitbreaker.New[reply](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    config.OpenTimeout,
			Timeout:     config.OpenTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
		}),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = logging.OrDiscard(g.logger)
	return g
}

// SendEmail implements notification.Sender.
func (g *Gateway) SendEmail(ctx context.Context, msg notification.Email) (notification.Receipt, error) {
	msg = msg.Trim()
	if err := g.validator.Validate(msg); err != nil {
		return notification.Receipt{}, err
	}
	return g.send(ctx, notification.ChannelEmail, g.config.EmailPath, msg)
}

// SendSMS implements notification.Sender.
func (g *Gateway) SendSMS(ctx context.Context, msg notification.SMS) (notification.Receipt, error) {
	msg = msg.Trim()
	if err := g.validator.Validate(msg); err != nil {
		return notification.Receipt{}, err
	}
	return g.send(ctx, notification.ChannelSMS, g.config.SMSPath, msg)
}

// SendPush implements notification.Sender.
func (g *Gateway) SendPush(ctx context.Context, msg notification.Push) (notification.Receipt, error) {
	msg = msg.Trim()
	if err := g.validator.Validate(msg); err != nil {
		return notification.Receipt{}, err
	}
	return g.send(ctx, notification.ChannelPush, g.config.PushPath, msg)
}

func (g *Gateway) send(ctx context.Context, channel notification.Channel, path string, payload any) (notification.Receipt, error) {
	if g.config.BaseURL == "" {
		return notification.Receipt{}, notification.ErrNotConfigured
	}

	start := time.Now()
	receipt, err := g.post(ctx, channel, g.config.BaseURL+path, payload)

	fields := []logging.Field{logging.Channel(string(channel)), logging.Duration(time.Since(start))}
	if err != nil {
		logging.NewEvent(g.logger.Warn()).With(append(fields, logging.ErrorField(err))...).Msg("notification failed")
		g.record(ctx, notification.FailureMessage(channel, err))
		return receipt, err
	}

	logging.NewEvent(g.logger.Info()).With(fields...).Msg("notification sent")
	g.record(ctx, notification.SuccessMessage(channel, receipt.Response))
	return receipt, nil
}

func (g *Gateway) post(ctx context.Context, channel notification.Channel, url string, payload any) (notification.Receipt, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return notification.Receipt{}, fmt.Errorf("serialize %s payload: %w", channel, err)
	}

	r, err := g.breaker.Execute(ctx, func(ctx context.Context) (reply, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return reply{}, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", g.config.UserAgent)

		resp, err := g.client.Do(req)
		if err != nil {
			return reply{}, fmt.Errorf("%w: %v", notification.ErrGatewayUnavailable, err)
		}
		defer resp.Body.Close()

		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		text := strings.TrimSpace(string(data))
		if resp.StatusCode >= 500 {
			return reply{}, fmt.Errorf("%w: status %d: %s", notification.ErrGatewayUnavailable, resp.StatusCode, text)
		}
		return reply{status: resp.StatusCode, body: text}, nil
	})
	if err != nil {
		if !errors.Is(err, notification.ErrGatewayUnavailable) {
			err = fmt.Errorf("%w: %v", notification.ErrGatewayUnavailable, err)
		}
		return notification.Receipt{Channel: channel}, err
	}

	receipt := notification.Receipt{Channel: channel, Status: r.status, Response: r.body}
	if r.status >= 400 {
		return receipt, fmt.Errorf("%w: status %d: %s", notification.ErrGatewayRejected, r.status, r.body)
	}
	return receipt, nil
}

func (g *Gateway) record(ctx context.Context, message string) {
	if err := activity.Record(ctx, g.activity, activity.SourceNotification, message); err != nil {
		logging.NewEvent(g.logger.Warn()).With(logging.ErrorField(err)).Msg("activity record failed")
	}
}
