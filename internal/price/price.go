package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a point-in-time price for a trading pair.
type Quote struct {
	Pair        string
	Price       decimal.Decimal
	PublishTime time.Time
}

// Client reads latest prices from a Pyth Hermes endpoint. Price lookups are
// an external collaborator; failures surface as errors, never cached.
type Client struct {
	baseURL    string
	feeds      map[string]string
	httpClient *http.Client
}

// NewClient builds a Hermes price client. feeds maps pair names (ETHUSD) to
// Pyth price-feed identifiers.
func NewClient(baseURL string, feeds map[string]string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		feeds:      feeds,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type hermesResponse struct {
	Parsed []struct {
		Price struct {
			Price       string `json:"price"`
			Expo        int32  `json:"expo"`
			PublishTime int64  `json:"publish_time"`
		} `json:"price"`
	} `json:"parsed"`
}

// Quote fetches the latest price for the pair.
func (c *Client) Quote(ctx context.Context, pair string) (Quote, error) {
	pair = strings.ToUpper(strings.TrimSpace(pair))
	feedID, ok := c.feeds[pair]
	if !ok || feedID == "" {
		return Quote{}, fmt.Errorf("no price feed configured for %s", pair)
	}

	endpoint := fmt.Sprintf("%s/v2/updates/price/latest?%s", c.baseURL, url.Values{
		"ids[]":  {feedID},
		"parsed": {"true"},
	}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("build price request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("fetch price: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Quote{}, fmt.Errorf("read price response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("price endpoint returned %d", resp.StatusCode)
	}

	var parsed hermesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Quote{}, fmt.Errorf("decode price response: %w", err)
	}
	if len(parsed.Parsed) == 0 {
		return Quote{}, fmt.Errorf("no price data for %s", pair)
	}

	raw, err := decimal.NewFromString(parsed.Parsed[0].Price.Price)
	if err != nil {
		return Quote{}, fmt.Errorf("parse price value: %w", err)
	}
	return Quote{
		Pair:        pair,
		Price:       raw.Shift(parsed.Parsed[0].Price.Expo),
		PublishTime: time.Unix(parsed.Parsed[0].Price.PublishTime, 0).UTC(),
	}, nil
}
