package convert

import (
	"context"
	"fmt"
	"math"
	"time"

	"chainlens/internal/asset"
	"chainlens/internal/metrics"
	"chainlens/internal/rpc"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/shopspring/decimal"
)

// ContentConstant is the chain's quadratic reward curve constant.
const ContentConstant = 2_000_000_000_000

// DefaultTTL is how long network-derived constants stay cached.
const DefaultTTL = 5 * time.Minute

const (
	cacheKeySBDMedianPrice = "sbd_median_price"
	cacheKeySteemPerMvests = "steem_per_mvests"
)

var (
	million = decimal.NewFromInt(1_000_000)
	// 2^64 - 1, the saturation ceiling of the curation weight curve.
	maxWeight       = decimal.RequireFromString("18446744073709551615")
	contentConstant = decimal.NewFromInt(ContentConstant)
)

// Client is the ledger RPC capability the converter consumes.
type Client interface {
	DynamicGlobalProperties(ctx context.Context) (*rpc.DynamicGlobalProperties, error)
	FeedHistory(ctx context.Context) (*rpc.FeedHistory, error)
}

// Cache holds TTL-cached chain constants. It is shared by all converters
// built over the same ledger connection; a stale read within one TTL window
// is an accepted approximation, so refreshes race benignly and the last
// successful fetch wins.
type Cache = expirable.LRU[string, decimal.Decimal]

// NewCache creates a constant cache with the given TTL. ttl 0 selects
// DefaultTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return expirable.NewLRU[string, decimal.Decimal](8, nil, ttl)
}

// Converter reproduces the chain's internal reward economics: vesting
// shares to power, power to rshares, rshares to curation weight, and
// SBD/STEEM conversion. All arithmetic is decimal; network-derived
// constants come from the injected cache.
type Converter struct {
	client Client
	cache  *Cache
}

// NewConverter creates a converter over the given ledger connection and
// constant cache.
func NewConverter(client Client, cache *Cache) *Converter {
	return &Converter{
		client: client,
		cache:  cache,
	}
}

// SBDMedianPrice returns the median base price from the node's feed
// history, cached for one TTL window.
func (c *Converter) SBDMedianPrice(ctx context.Context) (decimal.Decimal, error) {
	if price, ok := c.cache.Get(cacheKeySBDMedianPrice); ok {
		return price, nil
	}

	feed, err := c.client.FeedHistory(ctx)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("fetch feed history: %w", err)
	}
	price, err := asset.Amount(feed.CurrentMedianHistory.Base)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse median price: %w", err)
	}

	metrics.CacheRefreshes.WithLabelValues(cacheKeySBDMedianPrice).Inc()
	c.cache.Add(cacheKeySBDMedianPrice, price)
	return price, nil
}

// SteemPerMvests returns how much STEEM one million vesting shares are
// worth, cached for one TTL window.
func (c *Converter) SteemPerMvests(ctx context.Context) (decimal.Decimal, error) {
	if rate, ok := c.cache.Get(cacheKeySteemPerMvests); ok {
		return rate, nil
	}

	props, err := c.client.DynamicGlobalProperties(ctx)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("fetch global properties: %w", err)
	}
	fund, err := asset.Amount(props.TotalVestingFundSteem)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse vesting fund: %w", err)
	}
	shares, err := asset.Amount(props.TotalVestingShares)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse vesting shares: %w", err)
	}

	rate := fund.Div(shares.Div(million))

	metrics.CacheRefreshes.WithLabelValues(cacheKeySteemPerMvests).Inc()
	c.cache.Add(cacheKeySteemPerMvests, rate)
	return rate, nil
}

// VestsToPower converts vesting shares to power units.
func (c *Converter) VestsToPower(ctx context.Context, vests decimal.Decimal) (decimal.Decimal, error) {
	rate, err := c.SteemPerMvests(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return vests.Mul(rate).Div(million), nil
}

// PowerToVests converts power units to vesting shares.
func (c *Converter) PowerToVests(ctx context.Context, sp decimal.Decimal) (decimal.Decimal, error) {
	rate, err := c.SteemPerMvests(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return sp.Mul(million).Div(rate), nil
}

// PowerToRshares converts power to the reward shares a vote of the given
// strength would cast. votingPower and votePct are in basis points
// (10000 = 100%). The vesting shares are truncated to raw integer units
// before the final division; that truncation is consensus-relevant on the
// chain and must not be smoothed into a single floating computation.
func (c *Converter) PowerToRshares(ctx context.Context, sp decimal.Decimal, votingPower, votePct int64) (decimal.Decimal, error) {
	vests, err := c.PowerToVests(ctx, sp)
	if err != nil {
		return decimal.Decimal{}, err
	}
	vestingShares := vests.Mul(million).Truncate(0)

	power := votingPower*votePct/10000/200 + 1

	return vestingShares.Mul(decimal.NewFromInt(power)).Div(decimal.NewFromInt(10000)), nil
}

// SteemToSBD converts STEEM to SBD at the median feed price.
func (c *Converter) SteemToSBD(ctx context.Context, steem decimal.Decimal) (decimal.Decimal, error) {
	price, err := c.SBDMedianPrice(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return steem.Mul(price), nil
}

// SBDToSteem converts SBD to STEEM at the median feed price. A zero feed
// price, as published during feed outages, is an error rather than a
// division panic.
func (c *Converter) SBDToSteem(ctx context.Context, sbd decimal.Decimal) (decimal.Decimal, error) {
	price, err := c.SBDMedianPrice(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if price.IsZero() {
		return decimal.Decimal{}, fmt.Errorf("median feed price is zero")
	}
	return sbd.Div(price), nil
}

// SBDToRshares inverts the chain's quadratic reward pool curve: it returns
// the rshares a post needs to collect for the given SBD payout under the
// current reward fund.
func (c *Converter) SBDToRshares(ctx context.Context, sbdPayout decimal.Decimal) (decimal.Decimal, error) {
	steemPayout, err := c.SBDToSteem(ctx, sbdPayout)
	if err != nil {
		return decimal.Decimal{}, err
	}

	props, err := c.client.DynamicGlobalProperties(ctx)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("fetch global properties: %w", err)
	}
	rewardFund, err := asset.Amount(props.TotalRewardFundSteem)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse reward fund: %w", err)
	}
	rewardShares2, err := decimal.NewFromString(props.TotalRewardShares2.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse total reward shares: %w", err)
	}

	postRshares2, _ := steemPayout.Div(rewardFund).Mul(rewardShares2).Float64()
	rshares := math.Sqrt(ContentConstant*ContentConstant+postRshares2) - ContentConstant
	return decimal.NewFromFloat(rshares), nil
}

// RsharesToWeight maps rshares onto the chain's saturating curation weight
// curve. Weight is 0 at rshares 0 and approaches 2^64-1 asymptotically.
func (c *Converter) RsharesToWeight(rshares decimal.Decimal) decimal.Decimal {
	two := decimal.NewFromInt(2)
	return maxWeight.Mul(rshares).Div(contentConstant.Mul(two).Add(rshares))
}
