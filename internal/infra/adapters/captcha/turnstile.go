package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"club-payment-service/internal/domain/ports/adapter"
)

var _ adapter.CaptchaVerifier = (*TurnstileVerifier)(nil)

const siteverifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// TurnstileVerifier validates Cloudflare Turnstile tokens.
type TurnstileVerifier struct {
	secret   string
	endpoint string
	client   *http.Client
}

func NewTurnstileVerifier(secret string) (*TurnstileVerifier, error) {
	if secret == "" {
		return nil, errors.New("turnstile secret empty")
	}
	return &TurnstileVerifier{
		secret:   secret,
		endpoint: siteverifyURL,
		client:   &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (v *TurnstileVerifier) Verify(ctx context.Context, token, clientIP string) (bool, error) {
	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if clientIP != "" {
		form.Set("remoteip", clientIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	var out struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, err
	}
	return out.Success, nil
}

// NoopVerifier accepts every token; dev mode only.
type NoopVerifier struct{}

func (NoopVerifier) Verify(ctx context.Context, token, clientIP string) (bool, error) {
	return true, nil
}
