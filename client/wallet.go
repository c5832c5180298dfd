package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/brojonat/solwallet/service/db"
	"github.com/brojonat/solwallet/service/wallet"
)

// AirdropAccepted is returned when the server runs an airdrop as a workflow.
type AirdropAccepted struct {
	WorkflowID string `json:"workflow_id"`
	Status     string `json:"status"`
	StatusURL  string `json:"status_url"`
}

// AirdropStatus is the state of a durable airdrop.
type AirdropStatus struct {
	WorkflowID string                `json:"workflow_id"`
	Status     string                `json:"status"`
	Result     *wallet.AirdropResult `json:"result,omitempty"`
	Error      string                `json:"error,omitempty"`
}

// AirdropResponse holds whichever airdrop outcome the server produced:
// Result for inline airdrops, Accepted for durable ones.
type AirdropResponse struct {
	Result   *wallet.AirdropResult
	Accepted *AirdropAccepted
}

// ActivityPage is a page of the activity log.
type ActivityPage struct {
	Address    string         `json:"address"`
	Activities []*db.Activity `json:"activities"`
	Limit      int            `json:"limit"`
	Offset     int            `json:"offset"`
}

// APIError is a non-success response from the server.
type APIError struct {
	StatusCode int
	Message    string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" && e.Detail != e.Message {
		return fmt.Sprintf("request failed (%d): %s: %s", e.StatusCode, e.Message, e.Detail)
	}
	return fmt.Sprintf("request failed (%d): %s", e.StatusCode, e.Message)
}

// Client is the HTTP client for the solwallet API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new wallet API client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		// Inline airdrops block until confirmation.
		httpClient = &http.Client{Timeout: wallet.InlineAirdropTimeout}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Balance fetches the SOL balance of address.
func (c *Client) Balance(ctx context.Context, address string) (*wallet.BalanceView, error) {
	var view wallet.BalanceView
	if err := c.get(ctx, walletPath(address, "balance"), nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Tokens fetches the token holdings of address.
func (c *Client) Tokens(ctx context.Context, address string) (*wallet.TokensView, error) {
	var view wallet.TokensView
	if err := c.get(ctx, walletPath(address, "tokens"), nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Assets fetches SOL and token holdings as transferable assets.
func (c *Client) Assets(ctx context.Context, address string) (*wallet.AssetsView, error) {
	var view wallet.AssetsView
	if err := c.get(ctx, walletPath(address, "assets"), nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Overview fetches balance and tokens in one call.
func (c *Client) Overview(ctx context.Context, address string) (*wallet.Overview, error) {
	var view wallet.Overview
	if err := c.get(ctx, walletPath(address, "overview"), nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// History fetches up to limit recent transactions. A zero limit uses the
// server default.
func (c *Client) History(ctx context.Context, address string, limit int) (*wallet.HistoryView, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var view wallet.HistoryView
	if err := c.get(ctx, walletPath(address, "transactions"), q, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// PrepareTransfer asks the server to assemble an unsigned transfer.
func (c *Client) PrepareTransfer(ctx context.Context, req wallet.TransferRequest) (*wallet.PreparedTransfer, error) {
	var prepared wallet.PreparedTransfer
	status, err := c.do(ctx, http.MethodPost, "/api/v1/transfers", nil, req, &prepared)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", status)
	}
	c.logger.Debug("transfer prepared", "from", req.From, "to", req.To, "kind", prepared.Kind)
	return &prepared, nil
}

// Airdrop requests devnet SOL for address.
func (c *Client) Airdrop(ctx context.Context, address string, sol float64) (*AirdropResponse, error) {
	body := map[string]interface{}{"address": address, "sol": sol}

	var raw json.RawMessage
	status, err := c.do(ctx, http.MethodPost, "/api/v1/airdrops", nil, body, &raw)
	if err != nil {
		return nil, err
	}

	out := &AirdropResponse{}
	switch status {
	case http.StatusAccepted:
		out.Accepted = &AirdropAccepted{}
		err = json.Unmarshal(raw, out.Accepted)
	default:
		out.Result = &wallet.AirdropResult{}
		err = json.Unmarshal(raw, out.Result)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return out, nil
}

// AirdropStatus fetches the state of a durable airdrop.
func (c *Client) AirdropStatus(ctx context.Context, workflowID string) (*AirdropStatus, error) {
	var status AirdropStatus
	if err := c.get(ctx, "/api/v1/airdrops/"+url.PathEscape(workflowID), nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Activity lists recorded transfers and airdrops for address.
func (c *Client) Activity(ctx context.Context, address string, limit, offset int) (*ActivityPage, error) {
	q := url.Values{"address": {address}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	var page ActivityPage
	if err := c.get(ctx, "/api/v1/activity", q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Health returns nil when the server reports healthy.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}
	return nil
}

// Version returns the server build version.
func (c *Client) Version(ctx context.Context) (string, error) {
	var resp struct {
		Version string `json:"version"`
	}
	if err := c.get(ctx, "/version", nil, &resp); err != nil {
		return "", err
	}
	return resp.Version, nil
}

func walletPath(address, view string) string {
	return fmt.Sprintf("/api/v1/wallets/%s/%s", url.PathEscape(address), view)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	_, err := c.do(ctx, http.MethodGet, path, query, nil, out)
	return err
}

// do sends a JSON request and decodes a 2xx response into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out interface{}) (int, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, c.parseErrorResponse(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// parseErrorResponse attempts to parse an error response from the server.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errResp struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}

	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return &APIError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(body))}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error, Detail: errResp.Detail}
}
