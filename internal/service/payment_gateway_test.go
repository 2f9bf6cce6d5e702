package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaystackGateway_RequiresSecretKey(t *testing.T) {
	_, err := NewPaystackGateway("", "")
	assert.Error(t, err)
}

func TestPaystackGateway_Initialize(t *testing.T) {
	var gotAuth string
	var gotPayload paystackInitPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/transaction/initialize", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  true,
			"message": "Authorization URL created",
			"data": map[string]interface{}{
				"authorization_url": "https://checkout.paystack.com/abc123",
				"access_code":       "abc123",
				"reference":         gotPayload.Reference,
			},
		})
	}))
	defer server.Close()

	gateway, err := NewPaystackGateway("sk_test_xyz", server.URL)
	require.NoError(t, err)

	checkout, err := gateway.Initialize(context.Background(), InitializeRequest{
		Email:     "voter@example.com",
		Amount:    5000,
		Reference: "ref-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "Bearer sk_test_xyz", gotAuth)
	assert.Equal(t, int64(5000), gotPayload.Amount)
	assert.Equal(t, "https://checkout.paystack.com/abc123", checkout.AuthorizationURL)
	assert.Equal(t, "ref-1", checkout.Reference)
}

func TestPaystackGateway_Initialize_GatewayRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  false,
			"message": "Invalid amount",
		})
	}))
	defer server.Close()

	gateway, err := NewPaystackGateway("sk_test_xyz", server.URL)
	require.NoError(t, err)

	_, err = gateway.Initialize(context.Background(), InitializeRequest{
		Email:     "voter@example.com",
		Amount:    0,
		Reference: "ref-1",
	})

	assert.ErrorIs(t, err, ErrGateway)
	assert.Contains(t, err.Error(), "Invalid amount")
}

func TestPaystackGateway_Verify_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/transaction/verify/ref-42", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  true,
			"message": "Verification successful",
			"data": map[string]interface{}{
				"status":    "success",
				"reference": "ref-42",
				"amount":    15000,
				"channel":   "card",
				"paid_at":   "2026-08-30T12:00:00Z",
			},
		})
	}))
	defer server.Close()

	gateway, err := NewPaystackGateway("sk_test_xyz", server.URL)
	require.NoError(t, err)

	tx, err := gateway.Verify(context.Background(), "ref-42")

	require.NoError(t, err)
	assert.Equal(t, "success", tx.Status)
	assert.Equal(t, int64(15000), tx.Amount)
	assert.Equal(t, "card", tx.Channel)
	assert.False(t, tx.PaidAt.IsZero())
}

func TestPaystackGateway_Verify_FailedTransaction(t *testing.T) {
	// A failed charge still comes back with status=true on the envelope;
	// only data.status tells the truth.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  true,
			"message": "Verification successful",
			"data": map[string]interface{}{
				"status":    "abandoned",
				"reference": "ref-43",
				"amount":    15000,
			},
		})
	}))
	defer server.Close()

	gateway, err := NewPaystackGateway("sk_test_xyz", server.URL)
	require.NoError(t, err)

	tx, err := gateway.Verify(context.Background(), "ref-43")

	require.NoError(t, err)
	assert.Equal(t, "abandoned", tx.Status)
}

func TestPaystackGateway_Verify_ServerDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	gateway, err := NewPaystackGateway("sk_test_xyz", server.URL)
	require.NoError(t, err)

	_, err = gateway.Verify(context.Background(), "ref-44")
	assert.ErrorIs(t, err, ErrGateway)
}
