package gocardless

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// BaseURL is the GoCardless Bank Account Data API root.
const BaseURL = "https://bankaccountdata.gocardless.com/api/v2"

const defaultTimeout = 20 * time.Second

// Client is a minimal GoCardless API client: token acquisition with caching,
// plus the read endpoints the sync loop needs. Pagination and webhook
// delivery are the provider's concern, not this client's.
type Client struct {
	baseURL    string
	secretID   string
	secretKey  string
	httpClient *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewClient creates a Client with the given API secrets.
func NewClient(secretID, secretKey string) *Client {
	return &Client{
		baseURL:    BaseURL,
		secretID:   secretID,
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// NewClientWithBaseURL is NewClient with a custom API root, for tests.
func NewClientWithBaseURL(baseURL, secretID, secretKey string) *Client {
	c := NewClient(secretID, secretKey)
	c.baseURL = baseURL
	return c
}

// Transactions fetches booked and pending transactions for an account,
// optionally since dateFrom (YYYY-MM-DD). Pending entries are tagged before
// being returned.
func (c *Client) Transactions(ctx context.Context, accountID, dateFrom string) ([]Transaction, error) {
	params := url.Values{}
	if dateFrom != "" {
		params.Set("date_from", dateFrom)
	}

	var resp TransactionsResponse
	if err := c.get(ctx, fmt.Sprintf("/accounts/%s/transactions/", accountID), params, &resp); err != nil {
		return nil, fmt.Errorf("gocardless: fetching transactions for account %s: %w", accountID, err)
	}

	out := make([]Transaction, 0, len(resp.Transactions.Booked)+len(resp.Transactions.Pending))
	out = append(out, resp.Transactions.Booked...)
	for _, tx := range resp.Transactions.Pending {
		tx.Pending = true
		out = append(out, tx)
	}
	return out, nil
}

// Balances fetches the balance snapshots for an account.
func (c *Client) Balances(ctx context.Context, accountID string) ([]Balance, error) {
	var resp BalancesResponse
	if err := c.get(ctx, fmt.Sprintf("/accounts/%s/balances/", accountID), nil, &resp); err != nil {
		return nil, fmt.Errorf("gocardless: fetching balances for account %s: %w", accountID, err)
	}
	return resp.Balances, nil
}

// AccountDetails fetches the details of an account.
func (c *Client) AccountDetails(ctx context.Context, accountID string) (*Account, error) {
	var resp struct {
		Account Account `json:"account"`
	}
	if err := c.get(ctx, fmt.Sprintf("/accounts/%s/details/", accountID), nil, &resp); err != nil {
		return nil, fmt.Errorf("gocardless: fetching details for account %s: %w", accountID, err)
	}
	resp.Account.AccountID = accountID
	return &resp.Account, nil
}

// accessToken returns a cached token, refreshing it when it is within 30
// seconds of expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.expiresAt.Add(-30*time.Second)) {
		return c.token, nil
	}

	body, err := json.Marshal(map[string]string{
		"secret_id":  c.secretID,
		"secret_key": c.secretKey,
	})
	if err != nil {
		return "", fmt.Errorf("gocardless: marshaling token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/token/new/", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gocardless: building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gocardless: requesting token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gocardless: token endpoint returned %s", resp.Status)
	}

	var tokenResp struct {
		Access        string `json:"access"`
		AccessExpires int64  `json:"access_expires"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("gocardless: decoding token response: %w", err)
	}

	c.token = tokenResp.Access
	c.expiresAt = time.Now().Add(time.Duration(tokenResp.AccessExpires) * time.Second)
	return c.token, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %s: %s", resp.Status, snippet)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
