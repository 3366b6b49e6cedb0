package mpesa

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/levisbarua/pesaflow-1/pkg/httpclient"
	"golang.org/x/sync/singleflight"
)

const (
	TokenEndpoint   = "/oauth/v1/generate?grant_type=client_credentials"
	STKPushEndpoint = "/mpesa/stkpush/v1/processrequest"

	tokenExpiryMargin = time.Minute
	defaultTokenTTL   = 3599 * time.Second
)

type Client interface {
	Initiate(ctx context.Context, request STKPushRequest) (STKPushResponse, error)
	Token(ctx context.Context) (string, error)
	Ping(ctx context.Context) error
}

type client struct {
	http     httpclient.HTTPClient
	config   Config
	location *time.Location
	now      func() time.Time

	tokens      singleflight.Group
	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewClient(cfg Config, http httpclient.HTTPClient) Client {
	cfg = cfg.withDefaults()
	return &client{
		http:     http,
		config:   cfg,
		location: loadLocation(cfg.Timezone),
		now:      time.Now,
	}
}

// Token returns the cached access token or fetches a new one. Concurrent callers
// share a single fetch, and each caller stops waiting when its own ctx ends.
func (c *client) Token(ctx context.Context) (string, error) {
	if token, ok := c.cachedToken(); ok {
		return token, nil
	}

	result := c.tokens.DoChan("token", func() (any, error) {
		if token, ok := c.cachedToken(); ok {
			return token, nil
		}
		return c.fetchToken(context.WithoutCancel(ctx))
	})

	select {
	case res := <-result:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
	}
}

func (c *client) cachedToken() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, true
	}
	return "", false
}

func (c *client) fetchToken(ctx context.Context) (string, error) {
	credentials := base64.StdEncoding.EncodeToString([]byte(c.config.ConsumerKey + ":" + c.config.ConsumerSecret))
	headers := map[string]string{"Authorization": "Basic " + credentials}

	resp, err := c.http.Get(ctx, c.config.BaseURL+TokenEndpoint, headers)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInfrastructureRestricted, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned status %d", ErrAuthenticationFailed, resp.StatusCode)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("%w: decoding error: %w", ErrAuthenticationFailed, err)
	}

	if token.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrAuthenticationFailed)
	}

	ttl := defaultTokenTTL
	if seconds, err := strconv.Atoi(token.ExpiresIn); err == nil && seconds > 0 {
		ttl = time.Duration(seconds) * time.Second
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = token.AccessToken
	c.tokenExpiry = c.now().Add(ttl - tokenExpiryMargin)

	return c.token, nil
}

func (c *client) Initiate(ctx context.Context, request STKPushRequest) (STKPushResponse, error) {
	if request.Amount <= 0 {
		return STKPushResponse{}, fmt.Errorf("%w: amount must be greater than zero", ErrValidationFailed)
	}

	phone, err := NormalizePhoneNumber(request.PhoneNumber, c.config.CountryCode)
	if err != nil {
		return STKPushResponse{}, err
	}

	token, err := c.Token(ctx)
	if err != nil {
		return STKPushResponse{}, err
	}

	timestamp := Timestamp(c.now().In(c.location))
	body := stkPushBody{
		BusinessShortCode: c.config.ShortCode,
		Password:          Password(c.config.ShortCode, c.config.Passkey, timestamp),
		Timestamp:         timestamp,
		TransactionType:   c.config.TransactionType,
		Amount:            request.Amount,
		PartyA:            phone,
		PartyB:            c.config.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       c.config.CallbackURL,
		AccountReference:  valueOr(request.AccountReference, c.config.AccountReference),
		TransactionDesc:   valueOr(request.TransactionDesc, c.config.TransactionDesc),
	}

	headers := map[string]string{"Authorization": "Bearer " + token}

	resp, err := c.http.PostJSON(ctx, c.config.BaseURL+STKPushEndpoint, body, headers)
	if err != nil {
		return STKPushResponse{}, classifyPushError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized {
			c.invalidateToken()
		}

		var providerErr errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&providerErr)

		return STKPushResponse{}, fmt.Errorf("%w: status %d: %s",
			MapStatusToError(resp.StatusCode), resp.StatusCode, providerErr.ErrorMessage)
	}

	var response STKPushResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return STKPushResponse{}, fmt.Errorf("decoding error: %w", err)
	}

	if response.ResponseCode != ResponseCodeAccepted || response.CheckoutRequestID == "" {
		return STKPushResponse{}, fmt.Errorf("%w: %s", ErrRequestRejected, response.ResponseDescription)
	}

	return response, nil
}

// Ping reports whether the provider host answers at all. Any HTTP response counts.
func (c *client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ProbeTimeout)
	defer cancel()

	resp, err := c.http.Get(ctx, c.config.BaseURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInfrastructureRestricted, err)
	}
	resp.Body.Close()

	return nil
}

func (c *client) invalidateToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.tokenExpiry = time.Time{}
}

// classifyPushError separates failures where nothing was sent from failures where the
// request may already have reached the provider. Only the former is safe to fall back on.
func classifyPushError(err error) error {
	switch {
	case isDialFailure(err):
		return fmt.Errorf("%w: %w", ErrInfrastructureRestricted, err)
	case isTimeout(err):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrServerError, err)
	}
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
