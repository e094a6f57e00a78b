package source

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/nerrad567/gray-link-gateway/internal/infrastructure/retry"
)

// Client talks to the source state API (Home Assistant REST).
//
// All calls carry a bearer token and an explicit request timeout, and
// treat non-2xx responses as failures. Startup and snapshot reads (Ping,
// ListEntities) are wrapped in the shared bounded-retry primitive so
// transient upstream hiccups do not surface as hard errors; GetState is
// not, since its callers re-poll within their own readiness budget.
//
// Thread Safety:
//   - All methods are safe for concurrent use; the underlying resty
//     client is stateless per request.
type Client struct {
	http  *resty.Client
	retry retry.Policy
}

// Config holds source API connection settings.
type Config struct {
	// URL is the base URL of the source system (e.g. "http://ha.local:8123").
	URL string

	// Token is the long-lived bearer token.
	Token string

	// RequestTimeout bounds each HTTP call.
	RequestTimeout time.Duration

	// RetryAttempts and RetryDelay bound the retry schedule for reads.
	RetryAttempts int
	RetryDelay    time.Duration
}

// NewClient creates a source state client.
func NewClient(cfg Config) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(cfg.RequestTimeout).
		SetAuthToken(cfg.Token).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	return &Client{
		http: httpClient,
		retry: retry.Policy{
			Attempts: attempts,
			Delay:    cfg.RetryDelay,
		},
	}
}

// Ping verifies the source API is reachable and the token is accepted.
// Used once at startup before the gateway loop begins.
func (c *Client) Ping(ctx context.Context) error {
	return retry.Do(ctx, c.retry, func(ctx context.Context) error {
		resp, err := c.http.R().SetContext(ctx).Get("/api/")
		if err != nil {
			return fmt.Errorf("%w: %w", ErrUnreachable, err)
		}
		if resp.IsError() {
			return fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode())
		}
		return nil
	})
}

// ListEntities returns the full entity snapshot from GET /api/states.
func (c *Client) ListEntities(ctx context.Context) ([]Entity, error) {
	var entities []Entity
	err := retry.Do(ctx, c.retry, func(ctx context.Context) error {
		entities = entities[:0]
		resp, err := c.http.R().
			SetContext(ctx).
			SetResult(&entities).
			Get("/api/states")
		if err != nil {
			return fmt.Errorf("%w: %w", ErrReadFailed, err)
		}
		if resp.IsError() {
			return fmt.Errorf("%w: status %d", ErrReadFailed, resp.StatusCode())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// GetState returns the current raw state of a single entity.
//
// A 404 means the entity disappeared between discovery and poll; it is
// reported as ErrEntityNotFound so callers can distinguish it from
// transport failures.
func (c *Client) GetState(ctx context.Context, entityID string) (string, error) {
	var entity Entity
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&entity).
		Get("/api/states/" + entityID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	if resp.StatusCode() == 404 {
		return "", fmt.Errorf("%w: %s", ErrEntityNotFound, entityID)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: status %d", ErrReadFailed, resp.StatusCode())
	}
	return entity.State, nil
}

// serviceRequest is the body for POST /api/services/{domain}/{service}.
type serviceRequest struct {
	EntityID string `json:"entity_id"`
}

// CallService invokes a state-changing action on an entity, e.g.
// CallService(ctx, "switch", "turn_on", "switch.plug_01").
func (c *Client) CallService(ctx context.Context, domain, service, entityID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(serviceRequest{EntityID: entityID}).
		Post(fmt.Sprintf("/api/services/%s/%s", domain, service))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrActionFailed, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: status %d", ErrActionFailed, resp.StatusCode())
	}
	return nil
}
