package account

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"chainlens/internal/asset"
	"chainlens/internal/convert"
	"chainlens/internal/history"
	"chainlens/internal/rpc"

	"github.com/shopspring/decimal"
)

const followPageSize = 100

// chainTimeLayout matches the node's timestamps, which carry no zone
// suffix and are always UTC.
const chainTimeLayout = "2006-01-02T15:04:05"

// Client is the ledger RPC capability account analytics consume.
type Client interface {
	Accounts(ctx context.Context, names ...string) ([]rpc.AccountData, error)
	Followers(ctx context.Context, account, start string, limit uint32) ([]rpc.FollowEntry, error)
	Following(ctx context.Context, account, start string, limit uint32) ([]rpc.FollowEntry, error)
}

// Account computes derived analytics for one on-chain account. It caches
// the account's raw properties after the first fetch and is not safe for
// concurrent use.
type Account struct {
	Name string

	client    Client
	converter *convert.Converter
	replayer  *history.Replayer

	props *rpc.AccountData
}

// New creates an analytics view over the named account.
func New(name string, client Client, converter *convert.Converter, replayer *history.Replayer) *Account {
	return &Account{
		Name:      name,
		client:    client,
		converter: converter,
		replayer:  replayer,
	}
}

// Props returns the account's raw on-chain state, fetched once.
func (a *Account) Props(ctx context.Context) (*rpc.AccountData, error) {
	if a.props != nil {
		return a.props, nil
	}
	accounts, err := a.client.Accounts(ctx, a.Name)
	if err != nil {
		return nil, fmt.Errorf("fetch account %s: %w", a.Name, err)
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("account %s not found", a.Name)
	}
	a.props = &accounts[0]
	return a.props, nil
}

// Reputation returns the account's display reputation score: raw
// reputation mapped onto a log scale anchored at 25, rounded to two
// decimal places. Negative raw reputation collapses to -1.
func (a *Account) Reputation(ctx context.Context) (float64, error) {
	props, err := a.Props(ctx)
	if err != nil {
		return 0, err
	}
	raw, err := strconv.ParseFloat(props.Reputation.String(), 64)
	if err != nil {
		return 0, fmt.Errorf("parse reputation %q: %w", props.Reputation, err)
	}

	if raw < 0 {
		return -1, nil
	}
	if raw == 0 {
		return 25, nil
	}

	score := (math.Log10(math.Abs(raw))-9)*9 + 25
	return math.Round(score*100) / 100, nil
}

// Power returns the account's vesting shares expressed in power units.
func (a *Account) Power(ctx context.Context) (decimal.Decimal, error) {
	props, err := a.Props(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}
	vests, err := asset.Amount(props.VestingShares)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse vesting shares: %w", err)
	}
	return a.converter.VestsToPower(ctx, vests)
}

// VotingPower returns the account's current voting power in percent.
func (a *Account) VotingPower(ctx context.Context) (float64, error) {
	props, err := a.Props(ctx)
	if err != nil {
		return 0, err
	}
	return float64(props.VotingPower) / 100, nil
}

// Balances holds an account's liquid, stable and vesting balances.
type Balances struct {
	Liquid  decimal.Decimal `json:"liquid"`
	Stable  decimal.Decimal `json:"stable"`
	Vesting decimal.Decimal `json:"vesting"`
}

// Balances returns the account's balances as plain decimal amounts.
func (a *Account) Balances(ctx context.Context) (*Balances, error) {
	props, err := a.Props(ctx)
	if err != nil {
		return nil, err
	}

	liquid, err := asset.Amount(props.Balance)
	if err != nil {
		return nil, fmt.Errorf("parse balance: %w", err)
	}
	stable, err := asset.Amount(props.SBDBalance)
	if err != nil {
		return nil, fmt.Errorf("parse stable balance: %w", err)
	}
	vesting, err := asset.Amount(props.VestingShares)
	if err != nil {
		return nil, fmt.Errorf("parse vesting shares: %w", err)
	}

	return &Balances{Liquid: liquid, Stable: stable, Vesting: vesting}, nil
}

// Followers returns the full follower list, paginated in pages of 100.
func (a *Account) Followers(ctx context.Context) ([]string, error) {
	return a.followList(ctx, a.client.Followers, func(e rpc.FollowEntry) string { return e.Follower })
}

// Following returns the full list of accounts this account follows.
func (a *Account) Following(ctx context.Context) ([]string, error) {
	return a.followList(ctx, a.client.Following, func(e rpc.FollowEntry) string { return e.Following })
}

type followFetch func(ctx context.Context, account, start string, limit uint32) ([]rpc.FollowEntry, error)

func (a *Account) followList(ctx context.Context, fetch followFetch, pick func(rpc.FollowEntry) string) ([]string, error) {
	var names []string
	start := ""

	for {
		entries, err := fetch(ctx, a.Name, start, followPageSize)
		if err != nil {
			return nil, fmt.Errorf("fetch follow page for %s: %w", a.Name, err)
		}

		page := entries
		if start != "" && len(page) > 0 {
			// Each continuation page starts at the previous boundary
			// entry, so drop it to avoid duplicate emission.
			page = page[1:]
		}
		for _, e := range page {
			names = append(names, pick(e))
		}

		if len(entries) < followPageSize {
			return names, nil
		}
		start = pick(entries[len(entries)-1])
	}
}

// CurationStats aggregates recent curation rewards in power units.
type CurationStats struct {
	Last24h  decimal.Decimal `json:"24hr"`
	Last7d   decimal.Decimal `json:"7d"`
	DailyAvg decimal.Decimal `json:"avg"`
}

// CurationStats sums the account's curation rewards over the trailing 24
// hours and 7 days, converted to power units.
func (a *Account) CurationStats(ctx context.Context) (*CurationStats, error) {
	now := time.Now().UTC()
	cutoff24h := now.Add(-24 * time.Hour)
	cutoff7d := now.AddDate(0, 0, -7)

	reward24h := decimal.Zero
	reward7d := decimal.Zero

	for op, err := range a.replayer.ReplayRecent(ctx, a.Name, "curation_reward", 10000) {
		if err != nil {
			return nil, err
		}
		ts, err := ParseChainTime(op.Timestamp)
		if err != nil {
			return nil, err
		}
		rewardStr, _ := op.Body["reward"].(string)
		amount, err := asset.Amount(rewardStr)
		if err != nil {
			return nil, fmt.Errorf("parse curation reward at %d: %w", op.Index, err)
		}

		if ts.After(cutoff7d) {
			reward7d = reward7d.Add(amount)
		}
		if ts.After(cutoff24h) {
			reward24h = reward24h.Add(amount)
		}
	}

	power24h, err := a.converter.VestsToPower(ctx, reward24h)
	if err != nil {
		return nil, err
	}
	power7d, err := a.converter.VestsToPower(ctx, reward7d)
	if err != nil {
		return nil, err
	}

	return &CurationStats{
		Last24h:  power24h,
		Last7d:   power7d,
		DailyAvg: power7d.Div(decimal.NewFromInt(7)),
	}, nil
}

// HasVoted reports whether the account's recent vote history contains a
// vote on the given permlink.
func (a *Account) HasVoted(ctx context.Context, permlink string) (bool, error) {
	for op, err := range a.replayer.ReplayRecent(ctx, a.Name, "vote", 1000) {
		if err != nil {
			return false, err
		}
		if voted, _ := op.Body["permlink"].(string); voted == permlink {
			return true, nil
		}
	}
	return false, nil
}

// ParseChainTime parses a node timestamp, which is ISO-like with no zone
// suffix, as UTC.
func ParseChainTime(s string) (time.Time, error) {
	ts, err := time.Parse(chainTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse chain timestamp %q: %w", s, err)
	}
	return ts, nil
}

// FilterByDate returns the operations whose timestamps fall inside
// (start, end). A zero end means now.
func FilterByDate(ops []history.Operation, start, end time.Time) ([]history.Operation, error) {
	if end.IsZero() {
		end = time.Now().UTC()
	}

	var filtered []history.Operation
	for _, op := range ops {
		ts, err := ParseChainTime(op.Timestamp)
		if err != nil {
			return nil, err
		}
		if ts.After(start) && ts.Before(end) {
			filtered = append(filtered, op)
		}
	}
	return filtered, nil
}
