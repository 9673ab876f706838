package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marloweh/suggestd/internal/engine"
	"github.com/marloweh/suggestd/internal/heuristic"
	"github.com/marloweh/suggestd/internal/ledger"
	"github.com/marloweh/suggestd/internal/memory"
	"github.com/marloweh/suggestd/internal/metrics"
	"github.com/marloweh/suggestd/internal/model"
	"github.com/marloweh/suggestd/internal/rollout"
	"github.com/marloweh/suggestd/internal/rules"
	"github.com/marloweh/suggestd/internal/storage"
	"github.com/marloweh/suggestd/internal/testutil"
)

type apiFixture struct {
	server *Server
	store  *storage.SQLiteStorage
	ctrl   *rollout.Controller
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{
		{ID: "txn-rule", Merchant: "CITY POWER & LIGHT", Amount: -80, Date: time.Now()},
		{ID: "txn-amazon", Merchant: "AMAZON", Amount: -25, Date: time.Now()},
		{ID: "txn-coffee", Merchant: "STARBUCKS #1234", Amount: -6, Date: time.Now()},
		{ID: "txn-blank", Amount: -5, Date: time.Now()},
	}))

	rule := &model.Rule{
		Name: "utilities", Pattern: "city power", Field: model.RuleFieldMerchant,
		Category: "Utilities", Priority: 10, IsActive: true,
	}
	require.NoError(t, store.SaveRule(ctx, rule))
	coffee := &model.Rule{
		Name: "coffee", Pattern: "starbucks", Field: model.RuleFieldMerchant,
		Category: "Coffee", Priority: 5, IsActive: true,
	}
	require.NoError(t, store.SaveRule(ctx, coffee))
	for i := 0; i < 5; i++ {
		require.NoError(t, store.RecordLabel(ctx, "amazon", "Shopping"))
	}

	ruleList, err := store.ListRules(ctx)
	require.NoError(t, err)

	ctrl, err := rollout.New(rollout.DefaultConfig())
	require.NoError(t, err)

	m := metrics.New()
	tracker := ledger.New(store, store, m)
	eng := engine.New(
		rules.NewMatcher(ruleList, store),
		heuristic.New(store),
		nil,
		ctrl,
		memory.New(store, memory.DefaultTTL, m),
		tracker,
		m,
	)

	server, err := NewServer(eng, tracker, store, ctrl, nil, Config{Host: "localhost", Port: 0})
	require.NoError(t, err)

	return &apiFixture{server: server, store: store, ctrl: ctrl}
}

func (f *apiFixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echoHeaderContentType, "application/json")
	}
	rec := httptest.NewRecorder()
	f.server.Echo().ServeHTTP(rec, req)
	return rec
}

const echoHeaderContentType = "Content-Type"

func TestSuggestions_EmptyInput(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(http.MethodPost, "/ml/suggestions", `{"transaction_ids": []}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SuggestionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.EventID)
	assert.NotNil(t, resp.Items)
	assert.Empty(t, resp.Items)
}

func TestSuggestions_RuleMatch(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(http.MethodPost, "/ml/suggestions", `{"transaction_ids": ["txn-rule"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SuggestionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)

	item := resp.Items[0]
	assert.Equal(t, engine.OutcomeServed, item.Outcome)
	require.NotEmpty(t, item.Candidates)
	assert.Equal(t, model.SourceRule, item.Candidates[0].Source)
	assert.Equal(t, "Utilities", item.Candidates[0].Label)
	assert.NotEmpty(t, item.SuggestionID)
}

func TestSuggestions_MerchantMajority(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(http.MethodPost, "/ml/suggestions", `{"transaction_ids": ["txn-amazon"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SuggestionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)

	item := resp.Items[0]
	assert.Equal(t, engine.OutcomeServed, item.Outcome)
	assert.Equal(t, model.SourceMerchantMajority, item.Candidates[0].Source)
	assert.Equal(t, "Shopping", item.Candidates[0].Label)
	assert.InDelta(t, 1.0, item.Candidates[0].Confidence, 1e-9)
}

func TestSuggestions_AskWhenNoSignal(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(http.MethodPost, "/ml/suggestions", `{"transaction_ids": ["txn-blank"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SuggestionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, engine.OutcomeAsk, resp.Items[0].Outcome)
	assert.Empty(t, resp.Items[0].Candidates)
}

func TestSuggestions_UnknownTransactionID(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(http.MethodPost, "/ml/suggestions", `{"transaction_ids": ["no-such-txn"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no-such-txn")
}

func TestSuggestions_MalformedBody(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(http.MethodPost, "/ml/suggestions", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAccept_Idempotent(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(http.MethodPost, "/ml/suggestions", `{"transaction_ids": ["txn-rule"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SuggestionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	sid := resp.Items[0].SuggestionID
	require.NotEmpty(t, sid)

	for i := 0; i < 3; i++ {
		accRec := f.do(http.MethodPost, fmt.Sprintf("/ml/suggestions/%s/accept", sid), "")
		require.Equal(t, http.StatusOK, accRec.Code)

		var acc AcceptResponse
		require.NoError(t, json.Unmarshal(accRec.Body.Bytes(), &acc))
		assert.Equal(t, "ok", acc.Status)
		assert.Equal(t, sid, acc.ID)
		assert.True(t, acc.Accepted)
	}

	// Accepting feeds the merchant's label history exactly once.
	histogram, err := f.store.LabelHistogram(context.Background(), "city power & light")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Utilities": 1}, histogram)
}

func TestAccept_RecordsLabelUnderCanonicalMerchant(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(http.MethodPost, "/ml/suggestions", `{"transaction_ids": ["txn-coffee"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SuggestionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	sid := resp.Items[0].SuggestionID
	require.NotEmpty(t, sid)

	accRec := f.do(http.MethodPost, fmt.Sprintf("/ml/suggestions/%s/accept", sid), "")
	require.Equal(t, http.StatusOK, accRec.Code)

	// The store-number suffix is normalized away before the heuristic
	// consults history, so the accepted label must land under the
	// canonical merchant or future histogram lookups will never see it.
	ctx := context.Background()
	histogram, err := f.store.LabelHistogram(ctx, "starbucks")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Coffee": 1}, histogram)

	raw, err := f.store.LabelHistogram(ctx, "starbucks #1234")
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestAccept_UnknownID(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(http.MethodPost, "/ml/suggestions/does-not-exist/accept", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatus_ReturnsSnapshot(t *testing.T) {
	f := newAPIFixture(t)

	require.NoError(t, f.ctrl.Apply(model.RolloutConfig{
		Mode: model.ModeAuto, CanaryPct: 25, Shadow: true, MinConfidence: 0.7, TopK: 3,
	}))

	rec := f.do(http.MethodGet, "/ml/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, model.ModeAuto, status.Mode)
	assert.Equal(t, 25, status.CanaryPct)
	assert.True(t, status.Shadow)
	assert.InDelta(t, 0.7, status.MinConfidence, 1e-9)
	assert.Equal(t, "none", status.ModelVersion)
	assert.NotEmpty(t, status.FeatureSchema)
}

func TestMetricsEndpointExposed(t *testing.T) {
	f := newAPIFixture(t)

	// Drive one decision so counters exist, then scrape.
	_ = f.do(http.MethodPost, "/ml/suggestions", `{"transaction_ids": ["txn-rule"]}`)

	rec := f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "suggest_predict_requests_total")
}
