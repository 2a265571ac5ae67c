package rpc

import (
	"context"
	"encoding/json"
	"fmt"
)

// HistoryItem is one entry of an account's operation log. The node returns
// each entry as a two-element array: [index, {op, timestamp, trx_id}].
type HistoryItem struct {
	Index     uint64
	TrxID     string
	Timestamp string
	OpType    string
	OpBody    map[string]any
}

// UnmarshalJSON decodes the [index, detail] wire shape.
func (h *HistoryItem) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("decode history entry: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("history entry has %d elements, want 2", len(pair))
	}

	if err := json.Unmarshal(pair[0], &h.Index); err != nil {
		return fmt.Errorf("decode history index: %w", err)
	}

	var detail struct {
		Op        []json.RawMessage `json:"op"`
		Timestamp string            `json:"timestamp"`
		TrxID     string            `json:"trx_id"`
	}
	if err := json.Unmarshal(pair[1], &detail); err != nil {
		return fmt.Errorf("decode history detail: %w", err)
	}
	if len(detail.Op) != 2 {
		return fmt.Errorf("history op has %d elements, want 2", len(detail.Op))
	}
	if err := json.Unmarshal(detail.Op[0], &h.OpType); err != nil {
		return fmt.Errorf("decode op type: %w", err)
	}
	if err := json.Unmarshal(detail.Op[1], &h.OpBody); err != nil {
		return fmt.Errorf("decode op body: %w", err)
	}

	h.Timestamp = detail.Timestamp
	h.TrxID = detail.TrxID
	return nil
}

// DynamicGlobalProperties is the subset of the node's global state used for
// reward arithmetic. Amount fields are asset strings except the raw share
// counters, which arrive as numbers or numeric strings.
type DynamicGlobalProperties struct {
	TotalVestingFundSteem string      `json:"total_vesting_fund_steem"`
	TotalVestingShares    string      `json:"total_vesting_shares"`
	TotalRewardFundSteem  string      `json:"total_reward_fund_steem"`
	TotalRewardShares2    json.Number `json:"total_reward_shares2"`
	HeadBlockNumber       uint64      `json:"head_block_number"`
	Time                  string      `json:"time"`
}

// FeedHistory carries the price oracle feed; only the current median is used.
type FeedHistory struct {
	CurrentMedianHistory struct {
		Base  string `json:"base"`
		Quote string `json:"quote"`
	} `json:"current_median_history"`
}

// AccountData is the subset of on-chain account state consumed by analytics.
type AccountData struct {
	Name          string      `json:"name"`
	Reputation    json.Number `json:"reputation"`
	VotingPower   int64       `json:"voting_power"`
	VestingShares string      `json:"vesting_shares"`
	Balance       string      `json:"balance"`
	SBDBalance    string      `json:"sbd_balance"`
	JSONMetadata  string      `json:"json_metadata"`
	PostCount     uint64      `json:"post_count"`
}

// FollowEntry is one row of the follow plugin's follower/following lists.
type FollowEntry struct {
	Follower  string   `json:"follower"`
	Following string   `json:"following"`
	What      []string `json:"what"`
}

// AccountHistory fetches up to limit+1 operations ending at the given index.
// from = -1 addresses the most recent operation.
func (c *Client) AccountHistory(ctx context.Context, account string, from int64, limit uint32) ([]HistoryItem, error) {
	var items []HistoryItem
	err := c.Call(ctx, "database_api", "get_account_history", []any{account, from, limit}, &items)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// DynamicGlobalProperties fetches the node's current global chain state.
func (c *Client) DynamicGlobalProperties(ctx context.Context) (*DynamicGlobalProperties, error) {
	var props DynamicGlobalProperties
	if err := c.Call(ctx, "database_api", "get_dynamic_global_properties", nil, &props); err != nil {
		return nil, err
	}
	return &props, nil
}

// FeedHistory fetches the price feed history.
func (c *Client) FeedHistory(ctx context.Context) (*FeedHistory, error) {
	var feed FeedHistory
	if err := c.Call(ctx, "database_api", "get_feed_history", nil, &feed); err != nil {
		return nil, err
	}
	return &feed, nil
}

// Accounts fetches on-chain state for the named accounts.
func (c *Client) Accounts(ctx context.Context, names ...string) ([]AccountData, error) {
	var accounts []AccountData
	if err := c.Call(ctx, "database_api", "get_accounts", []any{names}, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// Followers fetches one page of an account's followers, starting at start.
func (c *Client) Followers(ctx context.Context, account, start string, limit uint32) ([]FollowEntry, error) {
	var entries []FollowEntry
	err := c.Call(ctx, "follow_api", "get_followers", []any{account, start, "blog", limit}, &entries)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Following fetches one page of the accounts an account follows.
func (c *Client) Following(ctx context.Context, account, start string, limit uint32) ([]FollowEntry, error) {
	var entries []FollowEntry
	err := c.Call(ctx, "follow_api", "get_following", []any{account, start, "blog", limit}, &entries)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
