package metrics

import (
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"fundlens/internal/clientcache"
	"fundlens/internal/navcache"
)

type fakeProvider struct {
	histories map[string]json.RawMessage
	details   map[string]map[string]any
	quotes    map[string]map[string]any
}

func (p *fakeProvider) ListCodes() (map[string]string, error) { return nil, nil }

func (p *fakeProvider) GetDetails(code string) (map[string]any, error) {
	if d, ok := p.details[code]; ok {
		return d, nil
	}
	return nil, errors.New("no details")
}

func (p *fakeProvider) GetQuote(code string) (map[string]any, error) {
	if q, ok := p.quotes[code]; ok {
		return q, nil
	}
	return nil, errors.New("no quote")
}

func (p *fakeProvider) GetHistoricalNav(code string) (json.RawMessage, error) {
	if h, ok := p.histories[code]; ok {
		return h, nil
	}
	return nil, errors.New("history unavailable")
}

func twoPointHistory() json.RawMessage {
	return json.RawMessage(`{"data":[
		{"date":"01-01-2024","nav":"100.0"},
		{"date":"31-12-2025","nav":"121.0"}
	]}`)
}

func newTestOrchestrator(t *testing.T, p *fakeProvider, workers int) (*Orchestrator, *ProgressHub) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(clientcache.Schema)
	require.NoError(t, err)

	repo := clientcache.NewRepository(db)
	details := clientcache.NewCache("scheme_details", clientcache.TTLDetails, repo, zerolog.Nop())
	quotes := clientcache.NewCache("scheme_quotes", clientcache.TTLQuotes, repo, zerolog.Nop())

	navs, err := navcache.New(t.TempDir(), p, zerolog.Nop())
	require.NoError(t, err)

	hub := NewProgressHub()
	return NewOrchestrator(navs, details, quotes, p, hub, workers, zerolog.Nop()), hub
}

func TestComputeForCode_IncludesFees(t *testing.T) {
	p := &fakeProvider{
		histories: map[string]json.RawMessage{"100033": twoPointHistory()},
		details:   map[string]map[string]any{"100033": {"expense_ratio": "0.75"}},
		quotes:    map[string]map[string]any{"100033": {"aum": "5,000"}},
	}
	orch, _ := newTestOrchestrator(t, p, 2)

	result, err := orch.ComputeForCode("100033", RiskFreeDefault)
	require.NoError(t, err)
	require.NotNil(t, result.CAGR)
	require.NotNil(t, result.ExpenseRatioPercent)
	assert.Equal(t, 0.75, *result.ExpenseRatioPercent)
	require.NotNil(t, result.AUM)
	assert.Equal(t, 5000.0, *result.AUM)
}

func TestComputeForCode_NoHistoryStillReturnsResult(t *testing.T) {
	p := &fakeProvider{
		histories: map[string]json.RawMessage{"100033": json.RawMessage(`{"data":[]}`)},
	}
	orch, _ := newTestOrchestrator(t, p, 2)

	result, err := orch.ComputeForCode("100033", RiskFreeDefault)
	require.NoError(t, err)
	assert.Zero(t, result.DataPoints)
	assert.Nil(t, result.CAGR)
}

func TestRunBatch_IsolatesPerCodeFailures(t *testing.T) {
	p := &fakeProvider{
		histories: map[string]json.RawMessage{
			"001": twoPointHistory(),
			"002": twoPointHistory(),
			"003": twoPointHistory(),
			"004": twoPointHistory(),
			// "005" has no history and no file: its fetch fails
		},
	}
	orch, _ := newTestOrchestrator(t, p, 3)

	results := orch.RunBatch([]string{"001", "002", "003", "004", "005"}, RiskFreeDefault)
	require.Len(t, results, 5)

	for _, code := range []string{"001", "002", "003", "004"} {
		entry := results[code]
		require.NoError(t, entry.Err, code)
		require.NotNil(t, entry.Result, code)
		assert.NotNil(t, entry.Result.CAGR, code)
	}

	failed := results["005"]
	assert.Error(t, failed.Err)
	assert.Nil(t, failed.Result)
}

func TestRunBatch_EmptyCodesIsANoOp(t *testing.T) {
	orch, _ := newTestOrchestrator(t, &fakeProvider{}, 2)
	assert.Empty(t, orch.RunBatch(nil, RiskFreeDefault))
}

func TestRunBatch_PublishesProgress(t *testing.T) {
	histories := make(map[string]json.RawMessage)
	var codes []string
	for i := 0; i < 10; i++ {
		code := string(rune('a'+i)) + "01"
		histories[code] = twoPointHistory()
		codes = append(codes, code)
	}
	p := &fakeProvider{histories: histories}
	orch, hub := newTestOrchestrator(t, p, 2)

	events, cancel := hub.Subscribe()
	defer cancel()

	orch.RunBatch(codes, RiskFreeDefault)

	ev := <-events
	assert.Equal(t, 10, ev.Total)
	assert.Equal(t, 10, ev.Completed)
	assert.True(t, ev.Done)
	assert.InDelta(t, 100.0, ev.Percent, 1e-9)
	assert.NotEmpty(t, ev.RunID)
}

func TestBatchEntry_JSONRoundTrip(t *testing.T) {
	ok := BatchEntry{Code: "001", Result: &Result{SchemeCode: "001", DataPoints: 5}}
	data, err := json.Marshal(ok)
	require.NoError(t, err)

	var back BatchEntry
	require.NoError(t, json.Unmarshal(data, &back))
	require.NotNil(t, back.Result)
	assert.Equal(t, 5, back.Result.DataPoints)

	failed := BatchEntry{Code: "002", Err: errors.New("history unavailable")}
	data, err = json.Marshal(failed)
	require.NoError(t, err)
	assert.JSONEq(t, `{"scheme_code":"002","error":"history unavailable"}`, string(data))

	var backErr BatchEntry
	require.NoError(t, json.Unmarshal(data, &backErr))
	assert.Equal(t, "002", backErr.Code)
	assert.EqualError(t, backErr.Err, "history unavailable")
}
