package ticker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"chainlens/internal/metrics"

	"github.com/shopspring/decimal"
)

// DefaultTimeout bounds each individual exchange request.
const DefaultTimeout = 2 * time.Second

// Quote is one exchange's view of a pair, ephemeral per aggregation call.
type Quote struct {
	Exchange string          `json:"exchange"`
	Price    decimal.Decimal `json:"price"`
	Volume   decimal.Decimal `json:"volume"`
}

// NoQuotesError reports that no configured exchange yielded a usable quote.
type NoQuotesError struct {
	Pair string
}

func (e *NoQuotesError) Error() string {
	return fmt.Sprintf("could not fetch any %s price", e.Pair)
}

// Aggregator fans out concurrent requests to heterogeneous exchange ticker
// APIs and computes a volume-weighted composite price. Individual exchange
// failures are dropped silently; only a fully empty fan-in is an error.
type Aggregator struct {
	httpClient *http.Client
	timeout    time.Duration
	urls       map[string]string
}

// NewAggregator creates an aggregator over the built-in exchange set.
// A nil httpClient falls back to http.DefaultClient; a zero timeout
// falls back to DefaultTimeout.
func NewAggregator(httpClient *http.Client, timeout time.Duration) *Aggregator {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Aggregator{
		httpClient: httpClient,
		timeout:    timeout,
		urls:       exchangeURLs,
	}
}

// Price returns the VWAP of the pair over every exchange that answered
// with a usable quote within the per-request timeout. Fails with
// *NoQuotesError when all exchanges are down or unusable, and with
// *InvalidSymbolError when the pair itself is malformed.
func (a *Aggregator) Price(ctx context.Context, pair string) (decimal.Decimal, error) {
	quotes, err := a.Quotes(ctx, pair)
	if err != nil {
		return decimal.Decimal{}, err
	}
	price, err := VWAP(quotes)
	if err != nil {
		return decimal.Decimal{}, &NoQuotesError{Pair: pair}
	}
	return price, nil
}

// VWAP returns the volume-weighted average price of the quotes. Callers
// holding a quote set from one fan-out compute the price from it directly
// rather than fanning out again. Fails when the quotes carry no volume to
// weight by.
func VWAP(quotes []Quote) (decimal.Decimal, error) {
	weighted := decimal.Zero
	totalVolume := decimal.Zero
	for _, q := range quotes {
		weighted = weighted.Add(q.Price.Mul(q.Volume))
		totalVolume = totalVolume.Add(q.Volume)
	}
	if totalVolume.IsZero() {
		return decimal.Decimal{}, fmt.Errorf("no volume to weight by")
	}
	return weighted.Div(totalVolume), nil
}

// Quotes fans out one request per configured exchange and returns the
// quotes that survived. There is no aggregate deadline beyond the
// per-request timeout; the call completes once every request resolves.
func (a *Aggregator) Quotes(ctx context.Context, pair string) ([]Quote, error) {
	results := make(chan Quote, len(a.urls))
	var wg sync.WaitGroup

	for exchange, template := range a.urls {
		symbol, err := Symbol(pair, exchange)
		if err != nil {
			return nil, err
		}

		wg.Add(1)
		go func(exchange, url, symbol string) {
			defer wg.Done()

			quote, err := a.fetchQuote(ctx, exchange, url, symbol)
			if err != nil {
				metrics.TickerFailures.WithLabelValues(exchange).Inc()
				slog.Debug("Dropping exchange quote",
					"exchange", exchange,
					"pair", pair,
					"error", err,
				)
				return
			}
			results <- quote
		}(exchange, fmt.Sprintf(template, symbol), symbol)
	}

	wg.Wait()
	close(results)

	var quotes []Quote
	for q := range results {
		quotes = append(quotes, q)
	}
	metrics.VWAPQuotesUsed.Observe(float64(len(quotes)))

	if len(quotes) == 0 {
		return nil, &NoQuotesError{Pair: pair}
	}
	return quotes, nil
}

func (a *Aggregator) fetchQuote(ctx context.Context, exchange, url, symbol string) (Quote, error) {
	metrics.TickerRequests.WithLabelValues(exchange).Inc()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Quote{}, err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return Quote{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Quote{}, fmt.Errorf("decode payload: %w", err)
	}

	data, err := unwrapPayload(exchange, symbol, payload)
	if err != nil {
		return Quote{}, err
	}

	price, err := fieldDecimal(data, priceFields[exchange])
	if err != nil {
		return Quote{}, err
	}
	volume, err := fieldDecimal(data, volumeFields[exchange])
	if err != nil {
		return Quote{}, err
	}

	return Quote{Exchange: exchange, Price: price, Volume: volume}, nil
}

// unwrapPayload digs the actual ticker object out of exchange-specific
// envelopes: bittrex nests it in a result array, poloniex keys it by
// symbol, btc-e wraps it in a "ticker" field.
func unwrapPayload(exchange, symbol string, payload map[string]any) (map[string]any, error) {
	if msg, ok := payload["error"].(string); ok && strings.Contains(strings.ToLower(msg), "invalid") {
		return nil, fmt.Errorf("exchange error: %s", msg)
	}

	switch exchange {
	case "btc-e":
		data, ok := payload["ticker"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("payload lacks ticker field")
		}
		return data, nil
	case "bittrex":
		result, ok := payload["result"].([]any)
		if !ok || len(result) == 0 {
			return nil, fmt.Errorf("payload lacks result array")
		}
		data, ok := result[0].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("malformed result entry")
		}
		return data, nil
	case "poloniex":
		data, ok := payload[symbol].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("payload lacks %s entry", symbol)
		}
		return data, nil
	default:
		return payload, nil
	}
}

// fieldDecimal extracts a numeric field that exchanges serve either as a
// JSON number or as a string.
func fieldDecimal(data map[string]any, field string) (decimal.Decimal, error) {
	switch v := data[field].(type) {
	case string:
		return decimal.NewFromString(v)
	case float64:
		return decimal.NewFromFloat(v), nil
	case nil:
		return decimal.Decimal{}, fmt.Errorf("payload lacks %s field", field)
	default:
		return decimal.Decimal{}, fmt.Errorf("field %s has unexpected type %T", field, v)
	}
}

// Spread returns the bid/ask spread as a percentage, computed in decimal
// arithmetic. A zero ask is an error rather than a division panic.
func Spread(bid, ask decimal.Decimal) (decimal.Decimal, error) {
	if ask.IsZero() {
		return decimal.Decimal{}, fmt.Errorf("ask price is zero")
	}
	one := decimal.NewFromInt(1)
	hundred := decimal.NewFromInt(100)
	return one.Sub(bid.Div(ask)).Mul(hundred), nil
}
