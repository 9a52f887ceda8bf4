package square

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	defaultBaseURL = "https://connect.squareup.com"
	apiVersion     = "2024-01-18"

	// Square caps SearchOrders pages at 500 results.
	maxSearchPageSize = 500
)

type Config struct {
	AccessToken string
	LocationID  string
	BaseURL     string
}

// Enabled reports whether sync is configured. Credentials are the sole
// switch between "sync enabled" and "local-only" behavior.
func (c Config) Enabled() bool {
	return c.AccessToken != "" && c.LocationID != ""
}

// DiscountDefinition mirrors a local coupon into the remote catalog.
// Exactly one of Percentage or AmountCents is meaningful, selected by Fixed.
type DiscountDefinition struct {
	Name             string
	Fixed            bool
	Percentage       float64
	AmountCents      int64
	MinPurchaseCents int64
}

type CreatedDiscount struct {
	ID      string
	Version int64
}

// Cents converts a float currency value to integer minor units, which is
// how the provider transmits money.
func Cents(v float64) int64 {
	return int64(math.Round(v * 100))
}

// Client is the discount-provider surface the coupon service depends on.
// Injected so tests can substitute a fake; never a package-level singleton.
type Client interface {
	CreateDiscount(ctx context.Context, d DiscountDefinition) (*CreatedDiscount, error)
	CountDiscountUsage(ctx context.Context, discountID string, since, until time.Time) (int64, error)
}

// HTTPClient talks to the Square Catalog and Orders APIs.
type HTTPClient struct {
	cfg   Config
	httpc *http.Client
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(cfg Config) *HTTPClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &HTTPClient{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 30 * time.Second},
	}
}

type moneyPayload struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type discountDataPayload struct {
	Name               string        `json:"name"`
	DiscountType       string        `json:"discount_type"`
	Percentage         string        `json:"percentage,omitempty"`
	AmountMoney        *moneyPayload `json:"amount_money,omitempty"`
	MinimumAmountMoney *moneyPayload `json:"minimum_amount_money,omitempty"`
}

type catalogObjectPayload struct {
	Type         string              `json:"type"`
	ID           string              `json:"id"`
	Version      int64               `json:"version,omitempty"`
	DiscountData discountDataPayload `json:"discount_data"`
}

type upsertCatalogRequest struct {
	IdempotencyKey string               `json:"idempotency_key"`
	Object         catalogObjectPayload `json:"object"`
}

type upsertCatalogResponse struct {
	CatalogObject struct {
		ID      string `json:"id"`
		Version int64  `json:"version"`
	} `json:"catalog_object"`
}

// CreateDiscount creates a DISCOUNT catalog object and returns its remote
// id and version.
func (c *HTTPClient) CreateDiscount(ctx context.Context, d DiscountDefinition) (*CreatedDiscount, error) {
	data := discountDataPayload{Name: d.Name}
	if d.Fixed {
		data.DiscountType = "FIXED_AMOUNT"
		data.AmountMoney = &moneyPayload{Amount: d.AmountCents, Currency: "USD"}
	} else {
		data.DiscountType = "FIXED_PERCENTAGE"
		data.Percentage = fmt.Sprintf("%g", d.Percentage)
	}
	if d.MinPurchaseCents > 0 {
		data.MinimumAmountMoney = &moneyPayload{Amount: d.MinPurchaseCents, Currency: "USD"}
	}

	req := upsertCatalogRequest{
		IdempotencyKey: uuid.NewString(),
		Object: catalogObjectPayload{
			Type:         "DISCOUNT",
			ID:           "#" + d.Name,
			DiscountData: data,
		},
	}

	var resp upsertCatalogResponse
	if err := c.post(ctx, "/v2/catalog/object", req, &resp); err != nil {
		return nil, fmt.Errorf("create discount: %w", err)
	}
	return &CreatedDiscount{ID: resp.CatalogObject.ID, Version: resp.CatalogObject.Version}, nil
}

type searchOrdersRequest struct {
	LocationIDs []string `json:"location_ids"`
	Limit       int      `json:"limit"`
	Cursor      string   `json:"cursor,omitempty"`
	Query       struct {
		Filter struct {
			DateTimeFilter struct {
				CreatedAt struct {
					StartAt string `json:"start_at"`
					EndAt   string `json:"end_at"`
				} `json:"created_at"`
			} `json:"date_time_filter"`
		} `json:"filter"`
	} `json:"query"`
}

type searchOrdersResponse struct {
	Orders []struct {
		Discounts []struct {
			CatalogObjectID string `json:"catalog_object_id"`
		} `json:"discounts"`
	} `json:"orders"`
	Cursor string `json:"cursor"`
}

// CountDiscountUsage pages through historical orders in [since, until] and
// counts how many carried the given discount.
func (c *HTTPClient) CountDiscountUsage(ctx context.Context, discountID string, since, until time.Time) (int64, error) {
	var count int64
	cursor := ""
	for {
		req := searchOrdersRequest{
			LocationIDs: []string{c.cfg.LocationID},
			Limit:       maxSearchPageSize,
			Cursor:      cursor,
		}
		req.Query.Filter.DateTimeFilter.CreatedAt.StartAt = since.UTC().Format(time.RFC3339)
		req.Query.Filter.DateTimeFilter.CreatedAt.EndAt = until.UTC().Format(time.RFC3339)

		var resp searchOrdersResponse
		if err := c.post(ctx, "/v2/orders/search", req, &resp); err != nil {
			return 0, fmt.Errorf("search orders: %w", err)
		}
		for _, order := range resp.Orders {
			for _, d := range order.Discounts {
				if d.CatalogObjectID == discountID {
					count++
					break
				}
			}
		}
		if resp.Cursor == "" {
			return count, nil
		}
		cursor = resp.Cursor
	}
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Square-Version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("square %s: status %d: %s", path, resp.StatusCode, detail)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
