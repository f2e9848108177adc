// tournament-escrow-system/services/ledger_client.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
)

// LedgerService is the external token-custody primitive. Transfer failures
// must abort the operation that triggered them; services call Transfer
// inside DB transactions so a failed movement rolls all state back.
type LedgerService interface {
	Transfer(ctx context.Context, from, to, asset string, amount uint64) error
	Balance(ctx context.Context, account, asset string) (uint64, error)
}

type LedgerClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewLedgerClient(baseURL, token string) *LedgerClient {
	return &LedgerClient{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NewLedgerClientFromEnv reads LEDGER_SERVICE_URL / LEDGER_SERVICE_TOKEN.
func NewLedgerClientFromEnv() (*LedgerClient, error) {
	baseURL := os.Getenv("LEDGER_SERVICE_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("LEDGER_SERVICE_URL environment variable not set")
	}
	token := os.Getenv("LEDGER_SERVICE_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("LEDGER_SERVICE_TOKEN environment variable not set")
	}
	return NewLedgerClient(baseURL, token), nil
}

// Transfer calls POST /transfers on the ledger service. Every call carries
// a fresh transfer ID so the ledger can deduplicate retries on its side.
func (c *LedgerClient) Transfer(ctx context.Context, from, to, asset string, amount uint64) error {
	reqBody := map[string]interface{}{
		"transfer_id": uuid.NewString(),
		"from":        from,
		"to":          to,
		"asset":       asset,
		"amount":      amount,
	}
	jsonData, _ := json.Marshal(reqBody)

	url := fmt.Sprintf("%s/api/v1/transfers", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call ledger service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("ledger transfer failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Balance calls GET /accounts/:account/balance on the ledger service.
func (c *LedgerClient) Balance(ctx context.Context, account, asset string) (uint64, error) {
	url := fmt.Sprintf("%s/api/v1/accounts/%s/balance?asset=%s", c.BaseURL, account, asset)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to call ledger service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("ledger balance failed with status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Amount uint64 `json:"amount"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return 0, fmt.Errorf("failed to decode ledger response: %w", err)
	}
	return response.Amount, nil
}
