package smartwaiver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"waiver-sync/pkg/models"
)

// Client defines the interface for interacting with the Smartwaiver API
type Client interface {
	// ListWaivers returns summaries of waivers created in [from, to].
	ListWaivers(ctx context.Context, from, to time.Time) ([]models.WaiverSummary, error)
	// GetWaiver fetches one full waiver record by identifier.
	GetWaiver(ctx context.Context, waiverID string) (*models.Waiver, error)
	// DequeueNotification pulls at most one pending webhook-queue message and
	// returns its waiver identifier. An empty string means the queue is empty.
	DequeueNotification(ctx context.Context) (string, error)
}

type clientImpl struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a new Smartwaiver client. The base URL is injectable so
// tests can point the client at a local server.
func NewClient(apiKey, baseURL string) Client {
	return &clientImpl{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *clientImpl) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("sw-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error calling Smartwaiver: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error from Smartwaiver API (%d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

func (c *clientImpl) ListWaivers(ctx context.Context, from, to time.Time) ([]models.WaiverSummary, error) {
	q := url.Values{}
	q.Set("fromDts", fmt.Sprintf("%d", from.Unix()))
	q.Set("toDts", fmt.Sprintf("%d", to.Unix()))

	body, err := c.get(ctx, "/v4/waivers?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var response struct {
		Waivers []models.WaiverSummary `json:"waivers"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("error parsing waiver list: %w", err)
	}

	return response.Waivers, nil
}

func (c *clientImpl) GetWaiver(ctx context.Context, waiverID string) (*models.Waiver, error) {
	body, err := c.get(ctx, "/v4/waivers/"+url.PathEscape(waiverID))
	if err != nil {
		return nil, err
	}

	var response struct {
		Waiver models.Waiver `json:"waiver"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("error parsing waiver %s: %w", waiverID, err)
	}

	return &response.Waiver, nil
}

func (c *clientImpl) DequeueNotification(ctx context.Context) (string, error) {
	body, err := c.get(ctx, "/v4/webhooks/queue/account/dequeue?delete=true")
	if err != nil {
		return "", err
	}

	var response struct {
		Message *struct {
			UniqueID string `json:"unique_id"`
		} `json:"message"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("error parsing queue message: %w", err)
	}

	// A null message means the queue is empty; that is a normal outcome.
	if response.Message == nil {
		return "", nil
	}
	return response.Message.UniqueID, nil
}
