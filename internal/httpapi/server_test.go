package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/tally/internal/balance"
	"github.com/cleared-dev/tally/internal/journal"
	"github.com/cleared-dev/tally/internal/metrics"
)

func newTestServer(t *testing.T, root string) (*httptest.Server, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	src := journal.NewStore(root, nil)
	e := balance.NewEngine(src, src, balance.WithMetrics(metrics.New(reg)))
	s := New(e, reg, nil)
	s.now = func() time.Time { return time.Date(2024, 2, 29, 15, 0, 0, 0, time.UTC) }
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return ts, reg
}

func get(t *testing.T, ts *httptest.Server, path string, out any) int {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, "../../testdata/books")

	var body map[string]string
	assert.Equal(t, http.StatusOK, get(t, ts, "/health", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestAccounts(t *testing.T) {
	ts, _ := newTestServer(t, "../../testdata/books")

	var body []struct {
		Code       string `json:"code"`
		NormalSide string `json:"normal_side"`
	}
	require.Equal(t, http.StatusOK, get(t, ts, "/api/accounts", &body))
	require.Len(t, body, 7, "inactive accounts are hidden")
	assert.Equal(t, "1010", body[0].Code)
	assert.Equal(t, "debit", body[0].NormalSide)
	assert.Equal(t, "credit", body[2].NormalSide)
}

func TestLedger(t *testing.T) {
	ts, _ := newTestServer(t, "../../testdata/books")

	var body struct {
		OpeningBalance string `json:"opening_balance"`
		ClosingBalance string `json:"closing_balance"`
		Rows           []struct {
			EntryNumber string `json:"entry_number"`
			Balance     string `json:"balance"`
		} `json:"rows"`
	}
	code := get(t, ts, "/api/ledger?account=1010&from=2024-02-01&to=2024-02-29", &body)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "5000", body.OpeningBalance)
	assert.Equal(t, "8496", body.ClosingBalance)
	require.Len(t, body.Rows, 2)
	assert.Equal(t, "JE-005", body.Rows[0].EntryNumber)
	assert.Equal(t, "8500", body.Rows[0].Balance)
}

func TestLedger_Errors(t *testing.T) {
	ts, _ := newTestServer(t, "../../testdata/books")

	tests := []struct {
		name string
		path string
		want int
	}{
		{"missing account", "/api/ledger?from=2024-01-01&to=2024-01-31", http.StatusBadRequest},
		{"unknown account", "/api/ledger?account=9999", http.StatusNotFound},
		{"bad date", "/api/ledger?account=1010&from=January", http.StatusBadRequest},
		{"reversed range", "/api/ledger?account=1010&from=2024-02-01&to=2024-01-01", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body errorResponse
			assert.Equal(t, tt.want, get(t, ts, tt.path, &body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestGeneralLedger(t *testing.T) {
	ts, _ := newTestServer(t, "../../testdata/books")

	var body struct {
		Ledgers []json.RawMessage `json:"ledgers"`
	}
	require.Equal(t, http.StatusOK, get(t, ts, "/api/general-ledger?from=2024-01-01", &body))
	assert.Len(t, body.Ledgers, 6)
}

func TestCashbook(t *testing.T) {
	ts, _ := newTestServer(t, "../../testdata/books")

	type row struct {
		EntryNumber     string `json:"entry_number"`
		CombinedBalance string `json:"combined_balance"`
	}
	var body struct {
		Rows []row `json:"rows"`
	}
	require.Equal(t, http.StatusOK, get(t, ts, "/api/cashbook?from=2024-01-01&to=2024-01-31", &body))
	require.Len(t, body.Rows, 6)
	assert.Equal(t, "17008", body.Rows[5].CombinedBalance)

	body.Rows = nil
	require.Equal(t, http.StatusOK, get(t, ts, "/api/cashbook?from=2024-01-01&to=2024-02-29&account=1010", &body))
	assert.Len(t, body.Rows, 3)

	body.Rows = nil
	require.Equal(t, http.StatusOK, get(t, ts, "/api/cashbook?from=2024-01-01&to=2024-02-29&q=github", &body))
	require.Len(t, body.Rows, 2)
	assert.Equal(t, "JE-003", body.Rows[0].EntryNumber)
	assert.Equal(t, "17004", body.Rows[0].CombinedBalance)
}

func TestTrialBalance(t *testing.T) {
	ts, reg := newTestServer(t, "../../testdata/books")

	var body struct {
		AsOf   string `json:"as_of"`
		Status string `json:"status"`
		Rows   []any  `json:"rows"`
	}
	require.Equal(t, http.StatusOK, get(t, ts, "/api/trial-balance", &body))
	assert.True(t, strings.HasPrefix(body.AsOf, "2024-02-29"), "defaults to today")
	assert.Equal(t, "balanced", body.Status)
	assert.Len(t, body.Rows, 6)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestSourceUnavailable(t *testing.T) {
	ts, _ := newTestServer(t, t.TempDir())

	var body errorResponse
	assert.Equal(t, http.StatusServiceUnavailable, get(t, ts, "/api/trial-balance?as_of=2024-01-31", &body))
	assert.Contains(t, body.Error, "line source unavailable")
}

func TestListenAndServe_Shutdown(t *testing.T) {
	s := New(balance.NewEngine(journal.NewStore("../../testdata/books", nil), journal.NewStore("../../testdata/books", nil)), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
