package account

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"chainlens/internal/convert"
	"chainlens/internal/history"
	"chainlens/internal/rpc"

	"github.com/shopspring/decimal"
)

// fakeChain backs all three RPC capabilities used by account analytics.
type fakeChain struct {
	account   rpc.AccountData
	followers []string
	following []string
	ops       []rpc.HistoryItem
	props     rpc.DynamicGlobalProperties
	feed      rpc.FeedHistory
}

func newFakeChain() *fakeChain {
	f := &fakeChain{
		account: rpc.AccountData{
			Name:          "alice",
			Reputation:    json.Number("1000000000000"),
			VotingPower:   9200,
			VestingShares: "2000000.000000 GESTS",
			Balance:       "10.000 GOLOS",
			SBDBalance:    "2.500 GBG",
		},
		props: rpc.DynamicGlobalProperties{
			TotalVestingFundSteem: "1000000.000 GOLOS",
			TotalVestingShares:    "500000000.000000 GESTS",
			TotalRewardFundSteem:  "1000.000 GOLOS",
			TotalRewardShares2:    json.Number("1000000000000000000000000000000"),
		},
	}
	f.feed.CurrentMedianHistory.Base = "1.000 GBG"
	return f
}

func (f *fakeChain) Accounts(ctx context.Context, names ...string) ([]rpc.AccountData, error) {
	return []rpc.AccountData{f.account}, nil
}

func (f *fakeChain) followPage(all []string, start string, limit uint32, entry func(string) rpc.FollowEntry) []rpc.FollowEntry {
	from := 0
	if start != "" {
		for i, name := range all {
			if name == start {
				from = i
				break
			}
		}
	}
	to := from + int(limit)
	if to > len(all) {
		to = len(all)
	}
	var page []rpc.FollowEntry
	for _, name := range all[from:to] {
		page = append(page, entry(name))
	}
	return page
}

func (f *fakeChain) Followers(ctx context.Context, account, start string, limit uint32) ([]rpc.FollowEntry, error) {
	return f.followPage(f.followers, start, limit, func(name string) rpc.FollowEntry {
		return rpc.FollowEntry{Follower: name, Following: account}
	}), nil
}

func (f *fakeChain) Following(ctx context.Context, account, start string, limit uint32) ([]rpc.FollowEntry, error) {
	return f.followPage(f.following, start, limit, func(name string) rpc.FollowEntry {
		return rpc.FollowEntry{Follower: account, Following: name}
	}), nil
}

func (f *fakeChain) AccountHistory(ctx context.Context, account string, from int64, limit uint32) ([]rpc.HistoryItem, error) {
	if from == -1 {
		if len(f.ops) == 0 {
			return nil, nil
		}
		return f.ops[len(f.ops)-1:], nil
	}
	hi := from
	if hi > int64(len(f.ops))-1 {
		hi = int64(len(f.ops)) - 1
	}
	lo := from - int64(limit)
	if lo < 0 {
		lo = 0
	}
	if hi < lo {
		return nil, nil
	}
	return f.ops[lo : hi+1], nil
}

func (f *fakeChain) DynamicGlobalProperties(ctx context.Context) (*rpc.DynamicGlobalProperties, error) {
	props := f.props
	return &props, nil
}

func (f *fakeChain) FeedHistory(ctx context.Context) (*rpc.FeedHistory, error) {
	feed := f.feed
	return &feed, nil
}

func newTestAccount(chain *fakeChain) *Account {
	converter := convert.NewConverter(chain, convert.NewCache(0))
	replayer := history.NewReplayer(chain, 0)
	return New("alice", chain, converter, replayer)
}

func TestReputation(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want float64
	}{
		{"positive", "1000000000000", 52}, // log10(1e12)=12 -> (12-9)*9+25
		{"zero", "0", 25},
		{"negative", "-50000", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := newFakeChain()
			chain.account.Reputation = json.Number(tt.raw)
			acct := newTestAccount(chain)

			got, err := acct.Reputation(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("reputation = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPower(t *testing.T) {
	chain := newFakeChain()
	acct := newTestAccount(chain)

	power, err := acct.Power(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// steem_per_mvests = 1e6 / (5e8/1e6) = 2000; 2e6 vests * 2000 / 1e6 = 4000
	if !power.Equal(decimal.NewFromInt(4000)) {
		t.Errorf("power = %s, want 4000", power)
	}
}

func TestVotingPower(t *testing.T) {
	chain := newFakeChain()
	acct := newTestAccount(chain)

	vp, err := acct.VotingPower(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vp != 92 {
		t.Errorf("voting power = %v, want 92", vp)
	}
}

func TestBalances(t *testing.T) {
	chain := newFakeChain()
	acct := newTestAccount(chain)

	balances, err := acct.Balances(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !balances.Liquid.Equal(decimal.NewFromInt(10)) {
		t.Errorf("liquid = %s, want 10", balances.Liquid)
	}
	if !balances.Stable.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("stable = %s, want 2.5", balances.Stable)
	}
	if !balances.Vesting.Equal(decimal.NewFromInt(2_000_000)) {
		t.Errorf("vesting = %s, want 2000000", balances.Vesting)
	}
}

func TestFollowersPagination(t *testing.T) {
	chain := newFakeChain()
	for i := 0; i < 250; i++ {
		chain.followers = append(chain.followers, fmt.Sprintf("f%03d", i))
	}
	acct := newTestAccount(chain)

	followers, err := acct.Followers(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(followers) != 250 {
		t.Fatalf("got %d followers, want 250 (boundary entries must not duplicate)", len(followers))
	}
	seen := make(map[string]struct{})
	for _, name := range followers {
		if _, dup := seen[name]; dup {
			t.Fatalf("duplicate follower %q at page boundary", name)
		}
		seen[name] = struct{}{}
	}
}

func TestFollowersShortList(t *testing.T) {
	chain := newFakeChain()
	chain.followers = []string{"bob", "carol"}
	acct := newTestAccount(chain)

	followers, err := acct.Followers(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(followers) != 2 {
		t.Errorf("got %d followers, want 2", len(followers))
	}
}

func historyOp(index uint64, opType, timestamp string, body map[string]any) rpc.HistoryItem {
	return rpc.HistoryItem{
		Index:     index,
		TrxID:     fmt.Sprintf("trx-%d", index),
		Timestamp: timestamp,
		OpType:    opType,
		OpBody:    body,
	}
}

func TestCurationStats(t *testing.T) {
	now := time.Now().UTC()
	stamp := func(d time.Duration) string {
		return now.Add(-d).Format("2006-01-02T15:04:05")
	}

	chain := newFakeChain()
	chain.ops = []rpc.HistoryItem{
		historyOp(0, "curation_reward", stamp(30*24*time.Hour), map[string]any{"reward": "10000.000000 GESTS"}),
		historyOp(1, "curation_reward", stamp(48*time.Hour), map[string]any{"reward": "1000.000000 GESTS"}),
		historyOp(2, "curation_reward", stamp(time.Hour), map[string]any{"reward": "500.000000 GESTS"}),
		historyOp(3, "comment", stamp(time.Minute), map[string]any{}),
	}
	acct := newTestAccount(chain)

	stats, err := acct.CurationStats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// vests -> power divides by 500 here: 500 GESTS = 1, 1500 GESTS = 3.
	if !stats.Last24h.Equal(decimal.NewFromInt(1)) {
		t.Errorf("24h = %s, want 1", stats.Last24h)
	}
	if !stats.Last7d.Equal(decimal.NewFromInt(3)) {
		t.Errorf("7d = %s, want 3", stats.Last7d)
	}
	want := decimal.NewFromInt(3).Div(decimal.NewFromInt(7))
	if !stats.DailyAvg.Equal(want) {
		t.Errorf("avg = %s, want %s", stats.DailyAvg, want)
	}
}

func TestHasVoted(t *testing.T) {
	chain := newFakeChain()
	chain.ops = []rpc.HistoryItem{
		historyOp(0, "vote", "2017-03-01T00:00:00", map[string]any{"permlink": "first-post"}),
		historyOp(1, "vote", "2017-03-02T00:00:00", map[string]any{"permlink": "second-post"}),
		historyOp(2, "comment", "2017-03-03T00:00:00", map[string]any{}),
	}
	acct := newTestAccount(chain)
	ctx := context.Background()

	voted, err := acct.HasVoted(ctx, "first-post")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !voted {
		t.Error("expected vote on first-post to be found")
	}

	voted, err = acct.HasVoted(ctx, "missing-post")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if voted {
		t.Error("did not expect vote on missing-post")
	}
}

func TestFilterByDate(t *testing.T) {
	ops := []history.Operation{
		{Index: 0, Timestamp: "2017-03-01T00:00:00"},
		{Index: 1, Timestamp: "2017-03-05T12:00:00"},
		{Index: 2, Timestamp: "2017-03-10T00:00:00"},
	}

	start := time.Date(2017, 3, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2017, 3, 8, 0, 0, 0, 0, time.UTC)

	filtered, err := FilterByDate(ops, start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Index != 1 {
		t.Errorf("filtered = %v, want only index 1", filtered)
	}
}

func TestParseChainTimeRejectsZoneSuffix(t *testing.T) {
	if _, err := ParseChainTime("2017-03-01T00:00:00Z"); err == nil {
		t.Error("expected error for zone-suffixed timestamp")
	}
	ts, err := ParseChainTime("2017-03-01T12:30:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts.Location() != time.UTC {
		t.Errorf("timestamp location = %v, want UTC", ts.Location())
	}
}
