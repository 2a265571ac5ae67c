package ticker

import (
	"fmt"
	"strings"
)

// Exchange endpoint templates; %s is replaced with the mapped ticker symbol.
var exchangeURLs = map[string]string{
	"btc-e":    "https://btc-e.com/api/2/%s/ticker",
	"bitfinex": "https://api.bitfinex.com/v1/pubticker/%s",
	"bittrex":  "https://bittrex.com/api/v1.1/public/getmarketsummary?market=%s",
	"bitstamp": "https://www.bitstamp.net/api/v2/ticker/%s",
	"coinbase": "https://api.exchange.coinbase.com/products/%s/ticker",
	"poloniex": "https://poloniex.com/public?command=returnTicker&currencyPair=%s",
}

// Response field names for price and volume vary per exchange.
var (
	priceFields = map[string]string{
		"btc-e":    "avg",
		"bitfinex": "last_price",
		"bittrex":  "Last",
		"bitstamp": "last",
		"coinbase": "price",
		"poloniex": "last",
	}
	volumeFields = map[string]string{
		"btc-e":    "vol_cur",
		"bitfinex": "volume",
		"bittrex":  "BaseVolume",
		"bitstamp": "volume",
		"coinbase": "volume",
		"poloniex": "baseVolume",
	}
)

// InvalidSymbolError reports a malformed currency pair or an unsupported
// exchange name.
type InvalidSymbolError struct {
	Pair     string
	Exchange string
}

func (e *InvalidSymbolError) Error() string {
	if _, ok := exchangeURLs[e.Exchange]; !ok {
		return fmt.Sprintf("exchange %q not supported", e.Exchange)
	}
	return fmt.Sprintf("currency pair %q incorrect format, use xxx/yyy e.g. btc/usd", e.Pair)
}

// Symbol maps a canonical pair like "btc/usd" to the symbol format the
// given exchange expects.
func Symbol(pair, exchange string) (string, error) {
	if _, ok := exchangeURLs[exchange]; !ok {
		return "", &InvalidSymbolError{Pair: pair, Exchange: exchange}
	}
	if !strings.Contains(pair, "/") {
		return "", &InvalidSymbolError{Pair: pair, Exchange: exchange}
	}

	switch exchange {
	case "bittrex", "poloniex":
		// Both trade against USDT rather than USD and put the quote
		// currency first.
		pair = strings.ToUpper(strings.ReplaceAll(pair, "usd", "usdt"))
		parts := strings.SplitN(pair, "/", 2)
		if exchange == "bittrex" {
			return parts[1] + "-" + parts[0], nil
		}
		return parts[1] + "_" + parts[0], nil
	case "btc-e":
		return strings.ReplaceAll(pair, "/", "_"), nil
	case "coinbase":
		return strings.ReplaceAll(pair, "/", "-"), nil
	default:
		return strings.ReplaceAll(pair, "/", ""), nil
	}
}
