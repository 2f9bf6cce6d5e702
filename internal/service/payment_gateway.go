package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// CheckoutSession is the gateway's answer to an initialize request.
type CheckoutSession struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// GatewayTransaction is the gateway's authoritative view of a transaction.
type GatewayTransaction struct {
	Reference string
	Status    string // "success", "failed", "abandoned", ...
	Amount    int64  // minor currency units
	Channel   string
	PaidAt    time.Time
}

// InitializeRequest asks the gateway to open a checkout session. Amount is
// always the server-computed charge; nothing client-supplied reaches here.
type InitializeRequest struct {
	Email       string
	Amount      int64
	Reference   string
	CallbackURL string
}

// PaymentGateway is the external payment collaborator. Verification must ask
// the gateway, never trust the local pending row.
type PaymentGateway interface {
	Initialize(ctx context.Context, req InitializeRequest) (*CheckoutSession, error)
	Verify(ctx context.Context, reference string) (*GatewayTransaction, error)
}

// PaystackGateway talks to the Paystack REST API.
type PaystackGateway struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

func NewPaystackGateway(secretKey, baseURL string) (*PaystackGateway, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("paystack secret key is required")
	}
	if baseURL == "" {
		baseURL = "https://api.paystack.co"
	}
	return &PaystackGateway{
		secretKey:  secretKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type paystackInitPayload struct {
	Email       string `json:"email"`
	Amount      int64  `json:"amount"`
	Reference   string `json:"reference"`
	CallbackURL string `json:"callback_url,omitempty"`
}

type paystackInitResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

func (g *PaystackGateway) Initialize(ctx context.Context, req InitializeRequest) (*CheckoutSession, error) {
	body, err := json.Marshal(paystackInitPayload{
		Email:       req.Email,
		Amount:      req.Amount,
		Reference:   req.Reference,
		CallbackURL: req.CallbackURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal initialize payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build initialize request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: initialize request failed: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	var payload paystackInitResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: failed to decode initialize response: %v", ErrGateway, err)
	}
	if resp.StatusCode != http.StatusOK || !payload.Status {
		return nil, fmt.Errorf("%w: gateway rejected initialize (http %d): %s", ErrGateway, resp.StatusCode, payload.Message)
	}

	return &CheckoutSession{
		AuthorizationURL: payload.Data.AuthorizationURL,
		AccessCode:       payload.Data.AccessCode,
		Reference:        payload.Data.Reference,
	}, nil
}

type paystackVerifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string     `json:"status"`
		Reference string     `json:"reference"`
		Amount    int64      `json:"amount"`
		Channel   string     `json:"channel"`
		PaidAt    *time.Time `json:"paid_at"`
	} `json:"data"`
}

func (g *PaystackGateway) Verify(ctx context.Context, reference string) (*GatewayTransaction, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build verify request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.secretKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: verify request failed: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	var payload paystackVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: failed to decode verify response: %v", ErrGateway, err)
	}
	if resp.StatusCode != http.StatusOK || !payload.Status {
		return nil, fmt.Errorf("%w: gateway rejected verify (http %d): %s", ErrGateway, resp.StatusCode, payload.Message)
	}

	tx := &GatewayTransaction{
		Reference: payload.Data.Reference,
		Status:    payload.Data.Status,
		Amount:    payload.Data.Amount,
		Channel:   payload.Data.Channel,
	}
	if payload.Data.PaidAt != nil {
		tx.PaidAt = *payload.Data.PaidAt
	}
	return tx, nil
}
