package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/brunogervazio/ezcoins-web/internal/session"
)

// LoginInput is the credentials pair sent to the login mutation.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthPayload is the result of a successful login.
type AuthPayload struct {
	Token  string
	UserID string
}

// TokenSource returns the bearer token for authenticated calls.
type TokenSource func() (string, bool)

// Client talks to the ez.coins GraphQL API.
type Client struct {
	endpoint       string
	httpClient     *http.Client
	tokens         TokenSource
	maxAttempts    uint
	initialBackoff time.Duration
	tracer         trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMaxAttempts bounds how many times GetUser is tried on RemoteUnavailable.
func WithMaxAttempts(n uint) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithInitialBackoff sets the first retry delay for GetUser.
func WithInitialBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.initialBackoff = d
	}
}

// NewClient creates a GraphQL client for the given endpoint.
func NewClient(endpoint string, timeout time.Duration, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		endpoint:       endpoint,
		httpClient:     &http.Client{Timeout: timeout},
		tokens:         tokens,
		maxAttempts:    3,
		initialBackoff: 200 * time.Millisecond,
		tracer:         otel.Tracer("github.com/brunogervazio/ezcoins-web/internal/remote"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login exchanges email and password for a session token. It is never retried.
func (c *Client) Login(ctx context.Context, input LoginInput) (*AuthPayload, error) {
	ctx, span := c.tracer.Start(ctx, "remote.Login")
	defer span.End()

	resp, err := execute[loginData](ctx, c, Query{
		Query:         loginMutation,
		OperationName: "Login",
		Variables:     map[string]any{"input": input},
	}, false, ErrUnauthorized)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	if resp.Login == nil || resp.Login.Token == "" {
		err := fmt.Errorf("%w: login returned no token", ErrRemoteUnavailable)
		recordError(span, err)
		return nil, err
	}

	// The mutation only yields a token; the user id travels inside it.
	userID, err := subjectFromToken(resp.Login.Token)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("ezcoins.user_id", userID))
	return &AuthPayload{Token: resp.Login.Token, UserID: userID}, nil
}

// GetUser reads the profile and wallet for id, retrying transient failures.
func (c *Client) GetUser(ctx context.Context, id string) (*session.Snapshot, error) {
	ctx, span := c.tracer.Start(ctx, "remote.GetUser", trace.WithAttributes(
		attribute.String("ezcoins.user_id", id),
	))
	defer span.End()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialBackoff

	snap, err := backoff.Retry(ctx, func() (*session.Snapshot, error) {
		s, err := c.getUserOnce(ctx, id)
		if err != nil && !errors.Is(err, ErrRemoteUnavailable) {
			return nil, backoff.Permanent(err)
		}
		return s, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(c.maxAttempts))
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	return snap, nil
}

func (c *Client) getUserOnce(ctx context.Context, id string) (*session.Snapshot, error) {
	resp, err := execute[userData](ctx, c, Query{
		Query:         userQuery,
		OperationName: "User",
		Variables:     map[string]any{"id": id},
	}, true, ErrRemoteUnavailable)
	if err != nil {
		return nil, err
	}

	if resp.User == nil {
		// The stored identity no longer resolves to a user.
		return nil, fmt.Errorf("%w: user %s not found", ErrUnauthorized, id)
	}

	u := resp.User
	return &session.Snapshot{
		Profile: session.Profile{
			ID:        u.ID,
			Name:      u.Name,
			Email:     u.Email,
			AvatarURL: u.Avatar,
		},
		Wallet: session.Wallet{
			ID:       u.Wallet.ID,
			ToOffer:  u.Wallet.ToOffer,
			Received: u.Wallet.Received,
			Balance:  u.Wallet.Balance,
		},
	}, nil
}

func execute[T any](ctx context.Context, c *Client, q Query, authenticated bool, uncoded error) (*T, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if authenticated {
		token, ok := c.tokens()
		if !ok {
			return nil, fmt.Errorf("%w: no session token", ErrUnauthorized)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrRemoteUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, raw)
	}

	var out Response[T]
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", ErrRemoteUnavailable, err)
	}

	if len(out.Errors) > 0 {
		return nil, classifyErrors(out.Errors, uncoded)
	}
	if out.Data == nil {
		return nil, fmt.Errorf("%w: empty response", ErrRemoteUnavailable)
	}
	return out.Data, nil
}

// subjectFromToken reads the user id out of a JWT without verifying it; the
// token is opaque to the client and only the server decides its validity.
func subjectFromToken(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("%w: login token carries no user id", ErrRemoteUnavailable)
	}

	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		return sub, nil
	}
	for _, key := range []string{"userId", "id"} {
		if v, ok := claims[key].(string); ok && v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: login token carries no user id", ErrRemoteUnavailable)
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
