package ticker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const goldURL = "http://data-asg.goldprice.org/GetData/USD-XAU/1"

var gramsPerOz = decimal.RequireFromString("31.1034768")

// Gold quotes the USD spot price of gold. The upstream serves a JSON array
// of "SYMBOL,price" strings.
type Gold struct {
	httpClient *http.Client
	timeout    time.Duration
	url        string
}

// NewGold creates a gold quoter. A nil httpClient falls back to
// http.DefaultClient.
func NewGold(httpClient *http.Client) *Gold {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Gold{
		httpClient: httpClient,
		timeout:    DefaultTimeout,
		url:        goldURL,
	}
}

// PriceOz returns the USD price of one troy ounce of gold.
func (g *Gold) PriceOz(ctx context.Context) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.url, nil)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("build gold request: %w", err)
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("fetch gold price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, fmt.Errorf("fetch gold price: unexpected status %d", resp.StatusCode)
	}

	var entries []string
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode gold payload: %w", err)
	}
	if len(entries) == 0 {
		return decimal.Decimal{}, fmt.Errorf("empty gold payload")
	}

	parts := strings.Split(entries[0], ",")
	if len(parts) < 2 {
		return decimal.Decimal{}, fmt.Errorf("malformed gold entry %q", entries[0])
	}
	price, err := decimal.NewFromString(parts[1])
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse gold price %q: %w", parts[1], err)
	}
	return price, nil
}

// PriceMg returns the USD price of one milligram of gold.
func (g *Gold) PriceMg(ctx context.Context) (decimal.Decimal, error) {
	oz, err := g.PriceOz(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return oz.Div(gramsPerOz).Div(decimal.NewFromInt(1000)), nil
}
