package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"chainlens/internal/convert"
	"chainlens/internal/history"
	"chainlens/internal/models"
	"chainlens/internal/rpc"
	"chainlens/internal/ticker"
)

// fakeChain backs the RPC capabilities the handlers reach for.
type fakeChain struct {
	account rpc.AccountData
	ops     []rpc.HistoryItem
	props   rpc.DynamicGlobalProperties
	feed    rpc.FeedHistory
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

func (f *fakeChain) Followers(ctx context.Context, account, start string, limit uint32) ([]rpc.FollowEntry, error) {
	return nil, nil
}

func (f *fakeChain) Following(ctx context.Context, account, start string, limit uint32) ([]rpc.FollowEntry, error) {
	return nil, nil
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

// fakeRepo is a canned archive for handler tests.
type fakeRepo struct {
	ops        []history.Operation
	pingErr    error
	lastOpType *string
	lastLimit  int
	lastOffset int
}

func (r *fakeRepo) SaveOperations(ctx context.Context, account string, ops []history.Operation) error {
	return nil
}

func (r *fakeRepo) LatestIndex(ctx context.Context, account string) (uint64, bool, error) {
	return 0, false, nil
}

func (r *fakeRepo) ListOperations(ctx context.Context, account string, opType *string, limit, offset int) ([]history.Operation, error) {
	r.lastOpType = opType
	r.lastLimit = limit
	r.lastOffset = offset
	if offset >= len(r.ops) {
		return nil, nil
	}
	end := offset + limit
	if end > len(r.ops) {
		end = len(r.ops)
	}
	return r.ops[offset:end], nil
}

func (r *fakeRepo) CountOperations(ctx context.Context, account string, opType *string) (int, error) {
	return len(r.ops), nil
}

func (r *fakeRepo) Ping(ctx context.Context) error { return r.pingErr }
func (r *fakeRepo) Close() error                   { return nil }

func newTestServer(repo *fakeRepo) *Server {
	chain := newFakeChain()
	converter := convert.NewConverter(chain, convert.NewCache(0))
	replayer := history.NewReplayer(chain, 100)
	aggregator := ticker.NewAggregator(nil, 0)
	gold := ticker.NewGold(nil)
	return NewServer(0, repo, chain, converter, replayer, aggregator, gold)
}

func do(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(&fakeRepo{})

	rec := do(t, s, http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status = %q, want healthy", body["status"])
	}
}

func TestHealthDatabaseDown(t *testing.T) {
	s := newTestServer(&fakeRepo{pingErr: errors.New("connection refused")})

	rec := do(t, s, http.MethodGet, "/health")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestAccountSummary(t *testing.T) {
	s := newTestServer(&fakeRepo{ops: make([]history.Operation, 7)})

	rec := do(t, s, http.MethodGet, "/accounts/alice")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var summary models.AccountSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if summary.Name != "alice" {
		t.Errorf("Name = %q, want alice", summary.Name)
	}
	if summary.Reputation != 52 {
		t.Errorf("Reputation = %v, want 52", summary.Reputation)
	}
	if summary.VotingPower != 92 {
		t.Errorf("VotingPower = %v, want 92", summary.VotingPower)
	}
	if summary.Liquid != "10" {
		t.Errorf("Liquid = %q, want 10", summary.Liquid)
	}
	if summary.ArchivedOperations != 7 {
		t.Errorf("ArchivedOperations = %d, want 7", summary.ArchivedOperations)
	}
}

func TestAccountHistoryPagination(t *testing.T) {
	repo := &fakeRepo{}
	for i := range 30 {
		repo.ops = append(repo.ops, history.Operation{Index: uint64(i), Type: "vote"})
	}
	s := newTestServer(repo)

	rec := do(t, s, http.MethodGet, "/accounts/alice/history?type=vote&limit=10&offset=10")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp models.HistoryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if len(resp.Operations) != 10 {
		t.Errorf("got %d operations, want 10", len(resp.Operations))
	}
	if resp.Operations[0].Index != 10 {
		t.Errorf("first index = %d, want 10", resp.Operations[0].Index)
	}
	if resp.Total != 30 || resp.Page != 2 || resp.PageSize != 10 {
		t.Errorf("total/page/size = %d/%d/%d, want 30/2/10", resp.Total, resp.Page, resp.PageSize)
	}
	if repo.lastOpType == nil || *repo.lastOpType != "vote" {
		t.Errorf("type filter not forwarded to storage: %v", repo.lastOpType)
	}
}

func TestAccountHistoryBadLimit(t *testing.T) {
	s := newTestServer(&fakeRepo{})

	rec := do(t, s, http.MethodGet, "/accounts/alice/history?limit=5000")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAccountMethodNotAllowed(t *testing.T) {
	s := newTestServer(&fakeRepo{})

	rec := do(t, s, http.MethodPost, "/accounts/alice")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestPriceInvalidPair(t *testing.T) {
	s := newTestServer(&fakeRepo{})

	rec := do(t, s, http.MethodGet, "/price/btcusd")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var errResp models.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if errResp.Code != http.StatusBadRequest {
		t.Errorf("Code = %d, want 400", errResp.Code)
	}
}

func TestUnknownPath(t *testing.T) {
	s := newTestServer(&fakeRepo{})

	rec := do(t, s, http.MethodGet, "/nope")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestIndexListsEndpoints(t *testing.T) {
	s := newTestServer(&fakeRepo{})

	rec := do(t, s, http.MethodGet, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body["service"] != "chainlens" {
		t.Errorf("service = %v, want chainlens", body["service"])
	}
}
