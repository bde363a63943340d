package price

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/satslist/satslist/internal/models"
)

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// Client fetches the current Bitcoin price from CoinGecko. Requests are
// rate-limited to stay inside the free-tier quota.
type Client struct {
	http    *http.Client
	baseURL string
	limiter *rate.Limiter
	log     *logrus.Entry
}

// NewClient creates a price client with sane timeouts.
func NewClient(log *logrus.Entry) *Client {
	return &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: defaultBaseURL,
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
		log:     log,
	}
}

type simplePriceResponse struct {
	Bitcoin struct {
		EUR          float64 `json:"eur"`
		USD          float64 `json:"usd"`
		EUR24hChange float64 `json:"eur_24h_change"`
	} `json:"bitcoin"`
}

// Fetch returns the current price in EUR and USD with the 24h change.
func (c *Client) Fetch(ctx context.Context) (*models.BitcoinPrice, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := c.baseURL + "/simple/price?ids=bitcoin&vs_currencies=eur,usd&include_24hr_change=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build price request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bitcoin price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price API returned status %d", resp.StatusCode)
	}

	var body simplePriceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode price response: %w", err)
	}
	if body.Bitcoin.EUR <= 0 {
		return nil, fmt.Errorf("price API returned no EUR price")
	}

	return &models.BitcoinPrice{
		EUR:         body.Bitcoin.EUR,
		USD:         body.Bitcoin.USD,
		Change24h:   body.Bitcoin.EUR24hChange,
		LastUpdated: time.Now(),
	}, nil
}

// SetBaseURL overrides the API endpoint, used by tests.
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}
