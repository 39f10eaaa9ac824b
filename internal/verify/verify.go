// Package verify checks proof-of-humanity tokens before a prompt is
// admitted. Verification happens before rate limiting so a failed check
// consumes nothing.
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultEndpoint is the Cloudflare Turnstile siteverify API.
const DefaultEndpoint = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// ErrVerifyFailed means the token was missing, invalid, or could not be
// checked. Verification fails closed.
var ErrVerifyFailed = errors.New("verification failed")

// Verifier validates a submission token.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// Disabled is the no-op verifier used when verification is switched off.
type Disabled struct{}

func (Disabled) Verify(context.Context, string, string) error { return nil }

// Turnstile verifies tokens against a siteverify-style endpoint.
type Turnstile struct {
	endpoint string
	secret   string
	http     *http.Client
}

// NewTurnstile creates a verifier for the given endpoint and secret.
func NewTurnstile(endpoint, secret string) *Turnstile {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Turnstile{
		endpoint: endpoint,
		secret:   secret,
		http:     &http.Client{Timeout: 5 * time.Second},
	}
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify checks the token with the remote service.
func (t *Turnstile) Verify(ctx context.Context, token, remoteIP string) error {
	if strings.TrimSpace(token) == "" {
		return ErrVerifyFailed
	}

	form := url.Values{
		"secret":   {t.secret},
		"response": {token},
	}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerifyFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerifyFailed, err)
	}
	defer resp.Body.Close()

	var decoded siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("%w: %v", ErrVerifyFailed, err)
	}
	if !decoded.Success {
		return fmt.Errorf("%w: %s", ErrVerifyFailed, strings.Join(decoded.ErrorCodes, ","))
	}
	return nil
}
