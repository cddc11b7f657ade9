// Package compliance implements the client for the external settlement
// authority. The client owns the three-stage credential lifecycle (auth
// code, access token, refresh token) and hides it from callers: a 401
// response triggers a refresh-token exchange (falling back to full
// re-authentication) and the original request is replayed exactly once.
package compliance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aurora-banking-core/internal/apperr"
	"github.com/aurora-banking-core/internal/config"
	"github.com/google/uuid"
)

// Client is an authenticated HTTP client for the settlement authority.
// Credential state is scoped to the instance and guarded by mu; concurrent
// callers hitting a 401 share one in-flight refresh instead of issuing
// duplicates.
type Client struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	secret     string
	logger     *slog.Logger

	mu           sync.Mutex
	authCode     string
	accessToken  string
	refreshToken string
	inflight     *authAttempt
}

// authAttempt is the shared result of an in-flight token acquisition.
// Waiters block on done and then read token/err.
type authAttempt struct {
	done  chan struct{}
	token string
	err   error
}

// NewClient creates a settlement authority client
func NewClient(logger *slog.Logger, cfg *config.ComplianceConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:    cfg.BaseURL,
		clientID:   cfg.Client,
		secret:     cfg.Secret,
		logger:     logger,
	}
}

// ValidateDocument asks the identity-verification endpoint whether the
// document is valid.
func (c *Client) ValidateDocument(ctx context.Context, document string) (bool, error) {
	var data documentData
	if err := c.doAuthenticated(ctx, http.MethodPost, "/document/validate", map[string]string{"document": document}, &data); err != nil {
		return false, err
	}
	return data.Status == "valid", nil
}

// CreateTransaction submits a settlement request under the given
// idempotency key. The authority applies one settlement per key.
func (c *Client) CreateTransaction(ctx context.Context, idempotencyKey uuid.UUID, input CreateTransactionInput) (*GatewayTransaction, error) {
	var data GatewayTransaction
	path := "/transaction/" + idempotencyKey.String()
	if err := c.doAuthenticated(ctx, http.MethodPut, path, input, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetTransactionByID fetches the settlement record for an idempotency key
func (c *Client) GetTransactionByID(ctx context.Context, idempotencyKey uuid.UUID) (*GatewayTransaction, error) {
	var data GatewayTransaction
	path := "/transaction/" + idempotencyKey.String()
	if err := c.doAuthenticated(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetAllTransactions fetches every settlement record known to the authority
func (c *Client) GetAllTransactions(ctx context.Context) ([]GatewayTransaction, error) {
	var data []GatewayTransaction
	if err := c.doAuthenticated(ctx, http.MethodGet, "/transaction", nil, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// doAuthenticated issues the request with a valid access token, replaying
// it exactly once after a refresh if the authority answers 401.
func (c *Client) doAuthenticated(ctx context.Context, method, path string, body, out any) error {
	token, err := c.ensureAccessToken(ctx)
	if err != nil {
		return err
	}

	status, err := c.send(ctx, method, path, token, body, out)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "gateway request failed", err)
	}

	if status == http.StatusUnauthorized {
		token, err = c.renewAccessToken(ctx)
		if err != nil {
			return err
		}

		status, err = c.send(ctx, method, path, token, body, out)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "gateway request failed", err)
		}
		if status == http.StatusUnauthorized {
			return apperr.New(apperr.KindUnauthorized, "gateway rejected renewed credentials")
		}
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return apperr.New(apperr.KindInternal, fmt.Sprintf("gateway returned status %d for %s %s", status, method, path))
	}

	return nil
}

// ensureAccessToken returns the current access token, running the full
// auth-code flow when no token is held yet.
func (c *Client) ensureAccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.accessToken != "" {
		token := c.accessToken
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	return c.acquire(ctx, func(ctx context.Context) (string, error) {
		return c.fullAuthenticate(ctx)
	})
}

// renewAccessToken exchanges the refresh token for a new access token,
// falling back to full re-authentication when the exchange fails.
func (c *Client) renewAccessToken(ctx context.Context) (string, error) {
	return c.acquire(ctx, func(ctx context.Context) (string, error) {
		token, err := c.exchangeRefreshToken(ctx)
		if err == nil {
			return token, nil
		}
		c.logger.Warn("refresh token exchange failed, re-authenticating", "error", err)
		return c.fullAuthenticate(ctx)
	})
}

// acquire coalesces concurrent token acquisitions: the first caller runs
// fn, everyone else queues behind it and is released with the same token
// or the same error once the in-flight attempt resolves.
func (c *Client) acquire(ctx context.Context, fn func(ctx context.Context) (string, error)) (string, error) {
	c.mu.Lock()
	if c.inflight != nil {
		attempt := c.inflight
		c.mu.Unlock()
		select {
		case <-attempt.done:
			return attempt.token, attempt.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	attempt := &authAttempt{done: make(chan struct{})}
	c.inflight = attempt
	c.mu.Unlock()

	token, err := fn(ctx)

	c.mu.Lock()
	if err != nil {
		// Terminal auth failure: next call starts from scratch
		c.authCode = ""
		c.accessToken = ""
		c.refreshToken = ""
	} else {
		c.accessToken = token
	}
	c.inflight = nil
	c.mu.Unlock()

	attempt.token, attempt.err = token, err
	close(attempt.done)
	return token, err
}

// fullAuthenticate runs the auth-code flow: obtain a code with the client
// credentials, then exchange it for an access/refresh token pair.
func (c *Client) fullAuthenticate(ctx context.Context) (string, error) {
	var code authCodeData
	status, err := c.send(ctx, http.MethodPost, "/auth/code", "", map[string]string{
		"email":    c.clientID,
		"password": c.secret,
	}, &code)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "unable to obtain auth code", err)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return "", apperr.New(apperr.KindInternal, fmt.Sprintf("auth code endpoint returned status %d", status))
	}

	c.mu.Lock()
	c.authCode = code.AuthCode
	c.mu.Unlock()

	var tokens tokenData
	status, err = c.send(ctx, http.MethodPost, "/auth/token", "", map[string]string{"authCode": code.AuthCode}, &tokens)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "unable to obtain access token", err)
	}
	if status == http.StatusUnauthorized {
		return "", apperr.New(apperr.KindUnauthorized, "invalid auth code")
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return "", apperr.New(apperr.KindInternal, fmt.Sprintf("token endpoint returned status %d", status))
	}

	c.mu.Lock()
	c.refreshToken = tokens.RefreshToken
	c.mu.Unlock()

	return tokens.AccessToken, nil
}

// exchangeRefreshToken trades the held refresh token for a new access token
func (c *Client) exchangeRefreshToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	refresh := c.refreshToken
	c.mu.Unlock()

	if refresh == "" {
		return "", apperr.New(apperr.KindUnauthorized, "no refresh token held")
	}

	var tokens tokenData
	status, err := c.send(ctx, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": refresh}, &tokens)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "unable to refresh access token", err)
	}
	if status == http.StatusUnauthorized {
		return "", apperr.New(apperr.KindUnauthorized, "refresh token expired")
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return "", apperr.New(apperr.KindInternal, fmt.Sprintf("refresh endpoint returned status %d", status))
	}

	return tokens.AccessToken, nil
}

// send performs one HTTP round trip and decodes the envelope's data field
// into out on a 2xx response. It returns the status code so callers can
// react to 401 without treating it as a transport error.
func (c *Client) send(ctx context.Context, method, path, token string, body, out any) (int, error) {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request to %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices && out != nil {
		var env envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response from %s %s: %w", method, path, err)
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response data from %s %s: %w", method, path, err)
		}
	}

	return resp.StatusCode, nil
}
