package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/solwallet/service/wallet"
)

const testWallet = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"

func TestBalance_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/api/v1/wallets/"+testWallet+"/balance", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(wallet.BalanceView{Address: testWallet, Lamports: 2_500_000_000, SOL: 2.5})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	view, err := client.Balance(context.Background(), testWallet)
	require.NoError(t, err)
	assert.Equal(t, 2.5, view.SOL)
	assert.Equal(t, uint64(2_500_000_000), view.Lamports)
}

func TestBalance_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "invalid address format: must contain only valid base58 characters",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	_, err := client.Balance(context.Background(), "0OIl")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, err.Error(), "base58")
}

func TestHistory_Limit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/wallets/"+testWallet+"/transactions", r.URL.Path)
		assert.Equal(t, "25", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"address":"` + testWallet + `","transactions":[{"signature":"sig1","slot":42,"amount":0}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	view, err := client.History(context.Background(), testWallet, 25)
	require.NoError(t, err)
	require.Len(t, view.Transactions, 1)
	assert.Equal(t, "sig1", view.Transactions[0].Signature)
	assert.Equal(t, uint64(42), view.Transactions[0].Slot)
}

func TestHistory_DefaultLimitOmitted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
		w.Write([]byte(`{"address":"x","transactions":[]}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, nil, nil).History(context.Background(), testWallet, 0)
	require.NoError(t, err)
}

func TestPrepareTransfer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/v1/transfers", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req wallet.TransferRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, testWallet, req.From)
		assert.Equal(t, 0.25, req.Amount)
		assert.Empty(t, req.Mint)

		json.NewEncoder(w).Encode(wallet.PreparedTransfer{
			Kind:        "native",
			From:        req.From,
			To:          req.To,
			BaseUnits:   250_000_000,
			Transaction: "AQ==",
			Message:     "AQ==",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	prepared, err := client.PrepareTransfer(context.Background(), wallet.TransferRequest{
		From:   testWallet,
		To:     "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM",
		Amount: 0.25,
	})
	require.NoError(t, err)
	assert.Equal(t, "native", prepared.Kind)
	assert.Equal(t, uint64(250_000_000), prepared.BaseUnits)
}

func TestPrepareTransfer_InsufficientFunds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error":  "Insufficient funds for this transaction",
			"detail": "insufficient funds: requested 5, available 1",
		})
	}))
	defer server.Close()

	_, err := NewClient(server.URL, nil, nil).PrepareTransfer(context.Background(), wallet.TransferRequest{})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Insufficient funds for this transaction", apiErr.Message)
	assert.Contains(t, err.Error(), "available 1")
}

func TestAirdrop(t *testing.T) {
	t.Run("durable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, testWallet, body["address"])
			assert.Equal(t, 1.0, body["sol"])

			w.WriteHeader(http.StatusAccepted)
			w.Write([]byte(`{"workflow_id":"airdrop-1","status":"running","status_url":"/api/v1/airdrops/airdrop-1"}`))
		}))
		defer server.Close()

		resp, err := NewClient(server.URL, nil, nil).Airdrop(context.Background(), testWallet, 1)
		require.NoError(t, err)
		require.NotNil(t, resp.Accepted)
		assert.Nil(t, resp.Result)
		assert.Equal(t, "airdrop-1", resp.Accepted.WorkflowID)
	})

	t.Run("inline", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"address":"` + testWallet + `","sol":1,"lamports":1000000000,"signature":"sig1","status":"confirmed"}`))
		}))
		defer server.Close()

		resp, err := NewClient(server.URL, nil, nil).Airdrop(context.Background(), testWallet, 1)
		require.NoError(t, err)
		require.NotNil(t, resp.Result)
		assert.Nil(t, resp.Accepted)
		assert.Equal(t, "confirmed", resp.Result.Status)
	})

	t.Run("faucet failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"error":"airdrop request failed: 429"}`))
		}))
		defer server.Close()

		_, err := NewClient(server.URL, nil, nil).Airdrop(context.Background(), testWallet, 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "429")
	})
}

func TestAirdropStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/airdrops/airdrop-1", r.URL.Path)
		w.Write([]byte(`{"workflow_id":"airdrop-1","status":"completed","result":{"signature":"sig1","status":"confirmed"}}`))
	}))
	defer server.Close()

	status, err := NewClient(server.URL, nil, nil).AirdropStatus(context.Background(), "airdrop-1")
	require.NoError(t, err)
	assert.Equal(t, "completed", status.Status)
	require.NotNil(t, status.Result)
	assert.Equal(t, "sig1", status.Result.Signature)
}

func TestActivity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/activity", r.URL.Path)
		assert.Equal(t, testWallet, r.URL.Query().Get("address"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "20", r.URL.Query().Get("offset"))
		w.Write([]byte(`{"address":"` + testWallet + `","activities":[{"id":"6f1c1f0e-8d3c-4e53-9d7e-1a2b3c4d5e6f","address":"` + testWallet + `","kind":"airdrop","status":"confirmed"}],"limit":10,"offset":20}`))
	}))
	defer server.Close()

	page, err := NewClient(server.URL, nil, nil).Activity(context.Background(), testWallet, 10, 20)
	require.NoError(t, err)
	require.Len(t, page.Activities, 1)
	assert.Equal(t, "airdrop", page.Activities[0].Kind)
}

func TestHealthAndVersion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.Write([]byte("OK"))
		case "/version":
			w.Write([]byte(`{"version":"v1.2.3"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	require.NoError(t, client.Health(context.Background()))

	version, err := client.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v1.2.3", version)
}

func TestHealth_Unavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("down"))
	}))
	defer server.Close()

	err := NewClient(server.URL, nil, nil).Health(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")
}
