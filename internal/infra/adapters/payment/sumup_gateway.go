package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"club-payment-service/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*SumUpGateway)(nil)

// SumUpGateway implements adapter.PaymentGateway against the SumUp REST API
// (v0.1 checkouts and customers).
type SumUpGateway struct {
	apiKey       string
	merchantCode string
	baseURL      string
	client       *http.Client
}

func NewSumUpGateway(apiKey, merchantCode, baseURL string) (*SumUpGateway, error) {
	if apiKey == "" {
		return nil, errors.New("sumup api key empty")
	}
	if merchantCode == "" {
		return nil, errors.New("sumup merchant code empty")
	}
	if baseURL == "" {
		baseURL = "https://api.sumup.com"
	}
	return &SumUpGateway{
		apiKey:       apiKey,
		merchantCode: merchantCode,
		baseURL:      baseURL,
		client:       &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (g *SumUpGateway) Name() string { return "sumup" }

type sumupCheckout struct {
	ID                string  `json:"id"`
	CheckoutReference string  `json:"checkout_reference"`
	Amount            float64 `json:"amount"`
	Currency          string  `json:"currency"`
	Status            string  `json:"status"`
	CustomerID        string  `json:"customer_id,omitempty"`
	Transactions      []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"transactions,omitempty"`
}

// CreateCheckout opens a provider checkout. With an InstrumentToken set it
// additionally processes the checkout against the stored card in a second
// call, so the returned checkout is already settled or failed.
func (g *SumUpGateway) CreateCheckout(ctx context.Context, req adapter.CreateCheckoutRequest) (*adapter.Checkout, error) {
	payload := map[string]any{
		"checkout_reference": req.Reference,
		// SumUp amounts are decimal major units.
		"amount":        float64(req.AmountCents) / 100,
		"currency":      req.Currency,
		"merchant_code": g.merchantCode,
		"description":   req.Description,
	}
	if req.CustomerRef != "" {
		payload["customer_id"] = req.CustomerRef
	}
	if req.Tokenize {
		payload["purpose"] = "SETUP_RECURRING_PAYMENT"
	}

	var co sumupCheckout
	if err := g.do(ctx, http.MethodPost, "/v0.1/checkouts", payload, &co); err != nil {
		return nil, fmt.Errorf("sumup create checkout: %w", err)
	}

	if req.InstrumentToken != "" {
		charge := map[string]any{
			"payment_type": "card",
			"token":        req.InstrumentToken,
			"customer_id":  req.CustomerRef,
		}
		if err := g.do(ctx, http.MethodPut, "/v0.1/checkouts/"+co.ID, charge, &co); err != nil {
			return nil, fmt.Errorf("sumup process checkout: %w", err)
		}
	}

	return g.toCheckout(&co), nil
}

func (g *SumUpGateway) GetCheckout(ctx context.Context, id string) (*adapter.Checkout, error) {
	if id == "" {
		return nil, errors.New("sumup: checkout id empty")
	}
	var co sumupCheckout
	if err := g.do(ctx, http.MethodGet, "/v0.1/checkouts/"+id, nil, &co); err != nil {
		return nil, fmt.Errorf("sumup get checkout: %w", err)
	}
	out := g.toCheckout(&co)

	// A settled recurring-setup checkout stores the card on the customer;
	// surface the newest instrument so the caller can persist it.
	if out.Status.Settled() && co.CustomerID != "" {
		if card, err := g.latestInstrument(ctx, co.CustomerID); err == nil {
			out.Card = card
		}
	}
	return out, nil
}

func (g *SumUpGateway) CustomerExists(ctx context.Context, customerRef string) (bool, error) {
	err := g.do(ctx, http.MethodGet, "/v0.1/customers/"+customerRef, nil, nil)
	if err != nil {
		var he *httpError
		if errors.As(err, &he) && he.code == http.StatusNotFound {
			return false, nil
		}
		return false, fmt.Errorf("sumup get customer: %w", err)
	}
	return true, nil
}

func (g *SumUpGateway) CreateCustomer(ctx context.Context, customerRef, email, name string) error {
	payload := map[string]any{
		"customer_id": customerRef,
		"personal_details": map[string]any{
			"email":      email,
			"first_name": name,
		},
	}
	if err := g.do(ctx, http.MethodPost, "/v0.1/customers", payload, nil); err != nil {
		var he *httpError
		if errors.As(err, &he) && he.code == http.StatusConflict {
			return nil
		}
		return fmt.Errorf("sumup create customer: %w", err)
	}
	return nil
}

func (g *SumUpGateway) latestInstrument(ctx context.Context, customerID string) (*adapter.Card, error) {
	var insts []struct {
		Token  string `json:"token"`
		Active bool   `json:"active"`
		Card   struct {
			Type  string `json:"type"`
			Last4 string `json:"last_4_digits"`
		} `json:"card"`
		ExpiryMonth string `json:"expiry_month"`
		ExpiryYear  string `json:"expiry_year"`
	}
	if err := g.do(ctx, http.MethodGet, "/v0.1/customers/"+customerID+"/payment-instruments", nil, &insts); err != nil {
		return nil, err
	}
	for i := len(insts) - 1; i >= 0; i-- {
		if !insts[i].Active {
			continue
		}
		card := &adapter.Card{
			Token: insts[i].Token,
			Type:  insts[i].Card.Type,
			Last4: insts[i].Card.Last4,
		}
		fmt.Sscanf(insts[i].ExpiryMonth, "%d", &card.ExpiryMonth)
		fmt.Sscanf(insts[i].ExpiryYear, "%d", &card.ExpiryYear)
		return card, nil
	}
	return nil, errors.New("sumup: no active instrument")
}

func (g *SumUpGateway) toCheckout(co *sumupCheckout) *adapter.Checkout {
	out := &adapter.Checkout{
		ID:          co.ID,
		Status:      adapter.CheckoutStatus(co.Status),
		AmountCents: int64(co.Amount*100 + 0.5),
		Currency:    co.Currency,
	}
	for _, t := range co.Transactions {
		if t.Status == "SUCCESSFUL" {
			out.PaymentRef = t.ID
			break
		}
	}
	return out
}

type httpError struct {
	code int
	body string
}

func (e *httpError) Error() string { return fmt.Sprintf("http %d: %s", e.code, e.body) }

func (g *SumUpGateway) do(ctx context.Context, method, path string, payload, out any) error {
	var body *bytes.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		return &httpError{code: resp.StatusCode, body: buf.String()}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
