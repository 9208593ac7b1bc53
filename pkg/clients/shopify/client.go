package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Customer is a Shopify customer record, limited to the fields this service
// reads or writes.
type Customer struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Tags      string `json:"tags"`
	Note      string `json:"note"`
}

// NewCustomer is the payload for a customer create.
type NewCustomer struct {
	Email            string `json:"email"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Phone            string `json:"phone,omitempty"`
	Tags             string `json:"tags"`
	Note             string `json:"note"`
	AcceptsMarketing bool   `json:"accepts_marketing"`
}

// CustomerUpdate is a partial customer update; only the fields the merge
// pipeline overwrites are included.
type CustomerUpdate struct {
	ID               int64  `json:"id"`
	Tags             string `json:"tags"`
	Note             string `json:"note"`
	AcceptsMarketing bool   `json:"accepts_marketing"`
}

// Metafield is a typed custom attribute attached to a customer.
type Metafield struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	Type      string `json:"type"`
}

// ConsentUpdate is a structured marketing-consent write, distinct from the
// flat accepts_marketing flag on the customer record.
type ConsentUpdate struct {
	EmailOptIn bool
	SMSOptIn   bool
	UpdatedAt  time.Time
}

// FieldError is one field-level validation error from a consent mutation.
type FieldError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// ConsentError reports field-level validation failures of a consent update.
// Transport and HTTP-level failures are returned as plain errors instead.
type ConsentError struct {
	Errors []FieldError
}

func (e *ConsentError) Error() string {
	if len(e.Errors) == 0 {
		return "consent update rejected"
	}
	return fmt.Sprintf("consent update rejected: %v %s", e.Errors[0].Field, e.Errors[0].Message)
}

// Client defines the interface for interacting with the Shopify Admin API
type Client interface {
	// SearchCustomerByEmail returns the customer with an exact email match,
	// or nil when no customer exists. When the platform returns several
	// customers for one email the first result wins.
	SearchCustomerByEmail(ctx context.Context, email string) (*Customer, error)
	CreateCustomer(ctx context.Context, c NewCustomer) (*Customer, error)
	UpdateCustomer(ctx context.Context, upd CustomerUpdate) error
	// CreateMetafield attaches a typed custom attribute to a customer.
	CreateMetafield(ctx context.Context, customerID int64, m Metafield) error
	// UpdateMarketingConsent issues the structured consent mutation. A
	// *ConsentError signals field-level validation failures.
	UpdateMarketingConsent(ctx context.Context, customerID int64, c ConsentUpdate) error
}

type clientImpl struct {
	accessToken string
	baseURL     string
	http        *http.Client
	logger      *slog.Logger
}

// NewClient creates a new Shopify Admin API client. The base URL should
// include the API version prefix, e.g.
// https://my-store.myshopify.com/admin/api/2024-01.
func NewClient(accessToken, baseURL string, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &clientImpl{
		accessToken: accessToken,
		baseURL:     baseURL,
		http:        &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
	}
}

func (c *clientImpl) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		jsonPayload, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("error creating payload: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonPayload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error calling Shopify: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("error from Shopify API (%d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

func (c *clientImpl) SearchCustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	q := url.Values{}
	q.Set("query", "email:"+email)

	body, err := c.do(ctx, http.MethodGet, "/customers/search.json?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var response struct {
		Customers []Customer `json:"customers"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("error parsing customer search: %w", err)
	}

	if len(response.Customers) == 0 {
		return nil, nil
	}
	// Duplicate customers sharing one email are a data-quality hazard in the
	// platform; the first match wins, but the ambiguity is worth a trace.
	if len(response.Customers) > 1 {
		c.logger.Debug("customer search returned multiple matches",
			"email", email,
			"matches", len(response.Customers),
			"picked_id", response.Customers[0].ID,
		)
	}
	return &response.Customers[0], nil
}

func (c *clientImpl) CreateCustomer(ctx context.Context, nc NewCustomer) (*Customer, error) {
	body, err := c.do(ctx, http.MethodPost, "/customers.json", map[string]any{"customer": nc})
	if err != nil {
		return nil, err
	}

	var response struct {
		Customer Customer `json:"customer"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("error parsing created customer: %w", err)
	}

	return &response.Customer, nil
}

func (c *clientImpl) UpdateCustomer(ctx context.Context, upd CustomerUpdate) error {
	path := fmt.Sprintf("/customers/%d.json", upd.ID)
	_, err := c.do(ctx, http.MethodPut, path, map[string]any{"customer": upd})
	return err
}

func (c *clientImpl) CreateMetafield(ctx context.Context, customerID int64, m Metafield) error {
	payload := map[string]any{
		"metafield": map[string]any{
			"namespace":      m.Namespace,
			"key":            m.Key,
			"value":          m.Value,
			"type":           m.Type,
			"owner_id":       customerID,
			"owner_resource": "customer",
		},
	}
	_, err := c.do(ctx, http.MethodPost, "/metafields.json", payload)
	return err
}

const consentMutation = `mutation($emailInput: CustomerEmailMarketingConsentUpdateInput!, $smsInput: CustomerSmsMarketingConsentUpdateInput!) {
  email: customerEmailMarketingConsentUpdate(input: $emailInput) {
    userErrors { field message }
  }
  sms: customerSmsMarketingConsentUpdate(input: $smsInput) {
    userErrors { field message }
  }
}`

func marketingState(optIn bool) string {
	if optIn {
		return "SUBSCRIBED"
	}
	return "NOT_SUBSCRIBED"
}

func (c *clientImpl) UpdateMarketingConsent(ctx context.Context, customerID int64, cu ConsentUpdate) error {
	gid := fmt.Sprintf("gid://shopify/Customer/%d", customerID)
	updatedAt := cu.UpdatedAt.UTC().Format(time.RFC3339)

	payload := map[string]any{
		"query": consentMutation,
		"variables": map[string]any{
			"emailInput": map[string]any{
				"customerId": gid,
				"emailMarketingConsent": map[string]any{
					"marketingState":      marketingState(cu.EmailOptIn),
					"marketingOptInLevel": "SINGLE_OPT_IN",
					"consentUpdatedAt":    updatedAt,
				},
			},
			"smsInput": map[string]any{
				"customerId": gid,
				"smsMarketingConsent": map[string]any{
					"marketingState":      marketingState(cu.SMSOptIn),
					"marketingOptInLevel": "SINGLE_OPT_IN",
					"consentUpdatedAt":    updatedAt,
				},
			},
		},
	}

	body, err := c.do(ctx, http.MethodPost, "/graphql.json", payload)
	if err != nil {
		return err
	}

	var response struct {
		Data struct {
			Email struct {
				UserErrors []FieldError `json:"userErrors"`
			} `json:"email"`
			SMS struct {
				UserErrors []FieldError `json:"userErrors"`
			} `json:"sms"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return fmt.Errorf("error parsing consent response: %w", err)
	}

	fieldErrors := append(response.Data.Email.UserErrors, response.Data.SMS.UserErrors...)
	if len(fieldErrors) > 0 {
		return &ConsentError{Errors: fieldErrors}
	}

	return nil
}
