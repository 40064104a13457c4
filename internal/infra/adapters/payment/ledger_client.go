package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"netaccess-billing/internal/domain/model"
	"netaccess-billing/internal/domain/ports/adapter"
)

var _ adapter.LedgerClient = (*LedgerHTTPClient)(nil)

// LedgerHTTPClient debits accounts on an association ledger through its
// JSON API: a login exchanging the method credentials for a bearer token,
// then one debit call.
type LedgerHTTPClient struct {
	client *http.Client
}

func NewLedgerHTTPClient(timeout time.Duration) *LedgerHTTPClient {
	return &LedgerHTTPClient{client: &http.Client{Timeout: timeout}}
}

type ledgerLoginResponse struct {
	Token string `json:"token"`
}

type ledgerDebitRequest struct {
	Account   string `json:"account"`
	Amount    string `json:"amount"`
	Reference string `json:"reference"`
	Label     string `json:"label"`
}

type ledgerDebitResponse struct {
	Reference string `json:"reference"`
	Error     string `json:"error"`
}

func (c *LedgerHTTPClient) Debit(ctx context.Context, m *model.LedgerMethod, d adapter.LedgerDebit) (string, error) {
	base := strings.TrimRight(m.ServerURL, "/")

	var login ledgerLoginResponse
	if err := c.postJSON(ctx, base+"/api/login", "", map[string]string{"login": m.Login, "password": m.Password}, &login); err != nil {
		return "", fmt.Errorf("ledger login: %w", err)
	}
	if login.Token == "" {
		return "", fmt.Errorf("ledger login: empty token")
	}

	req := ledgerDebitRequest{Account: d.Account, Amount: d.Amount.StringFixed(2), Reference: d.Reference, Label: d.Label}
	var resp ledgerDebitResponse
	if err := c.postJSON(ctx, base+"/api/debits", login.Token, req, &resp); err != nil {
		return "", fmt.Errorf("ledger debit: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("ledger debit: %s", resp.Error)
	}
	return resp.Reference, nil
}

func (c *LedgerHTTPClient) postJSON(ctx context.Context, url, token string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w, body: %s", err, string(raw))
	}
	return nil
}
