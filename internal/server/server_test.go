package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mohammad-safakhou/dealwatch/config"
	"github.com/mohammad-safakhou/dealwatch/internal/catalog"
	"github.com/mohammad-safakhou/dealwatch/internal/exchange"
	"github.com/mohammad-safakhou/dealwatch/internal/session"
	"github.com/mohammad-safakhou/dealwatch/internal/settings"
	"github.com/mohammad-safakhou/dealwatch/internal/watcher"
)

type stubFetcher struct {
	result catalog.Result
}

func (f *stubFetcher) Fetch(ctx context.Context, appID string, q catalog.Query) catalog.Result {
	return f.result
}

func okResult() catalog.Result {
	return catalog.Result{Data: &catalog.PriceData{
		Lowest: &catalog.LowestPriceRecord{Amount: 5, Currency: "USD", Date: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), Store: "Steam"},
		History: []catalog.PriceHistoryEntry{
			{Amount: 20, Date: time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC), Store: "Steam"},
			{Amount: 5, Date: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), Store: "Steam"},
		},
		Links: catalog.Links{SteamDB: "https://steamdb.info/app/123/"},
	}}
}

func testDeps(fetcher session.Fetcher) Deps {
	prefs := settings.NewMemory(config.SettingsConfig{Enabled: true, Country: "US", Shops: []int{61}})
	mgr := session.NewManager(config.SessionConfig{}, session.Options{Fetcher: fetcher, Settings: prefs})
	return Deps{
		Fetcher:  fetcher,
		Settings: prefs,
		Session:  mgr,
		Feed:     watcher.NewFeed(),
		Now:      func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) },
	}
}

func do(t *testing.T, deps Deps, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := New(deps)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := do(t, testDeps(&stubFetcher{}), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestMetricsExposed(t *testing.T) {
	rec := do(t, testDeps(&stubFetcher{}), http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "dealwatch_") {
		t.Fatal("metrics output carries no dealwatch series")
	}
}

func TestMetricsDisabled(t *testing.T) {
	deps := testDeps(&stubFetcher{})
	deps.Config = &config.Config{}
	rec := do(t, deps, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 with metrics disabled", rec.Code)
	}
}

func TestPriceEndpoint(t *testing.T) {
	rec := do(t, testDeps(&stubFetcher{result: okResult()}), http.MethodGet, "/api/price/123", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Command struct {
			AppID        string  `json:"app_id"`
			CurrentPrice float64 `json:"current_price"`
			Lowest       *struct {
				Amount float64 `json:"amount"`
			} `json:"lowest"`
		} `json:"command"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("bad body %s: %v", rec.Body.String(), err)
	}
	if out.Command.AppID != "123" || out.Command.CurrentPrice != 5 {
		t.Fatalf("command = %#v", out.Command)
	}
	if out.Command.Lowest == nil || out.Command.Lowest.Amount != 5 {
		t.Fatalf("lowest = %#v", out.Command.Lowest)
	}
}

func TestPriceEndpointRangeOverride(t *testing.T) {
	rec := do(t, testDeps(&stubFetcher{result: okResult()}), http.MethodGet, "/api/price/123?range=3m", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = do(t, testDeps(&stubFetcher{result: okResult()}), http.MethodGet, "/api/price/123?range=5y", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for an invalid range", rec.Code)
	}
}

func TestPriceEndpointUpstreamFailure(t *testing.T) {
	fetcher := &stubFetcher{result: catalog.Result{
		Error: "game not found",
		Debug: map[string]interface{}{"stage": "lookup"},
	}}
	rec := do(t, testDeps(fetcher), http.MethodGet, "/api/price/999", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "game not found") {
		t.Fatalf("body %s does not surface the upstream error", rec.Body.String())
	}
}

func TestNavEndpointFeedsWatcher(t *testing.T) {
	deps := testDeps(&stubFetcher{})
	rec := do(t, deps, http.MethodPost, "/api/nav", `{"path":"/steamweb"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	loc, ok := deps.Feed.Location()
	if !ok || loc.Path != "/steamweb" {
		t.Fatalf("feed location = %#v %v, want /steamweb", loc, ok)
	}
}

func TestNavEndpointRejectsEmptyPath(t *testing.T) {
	rec := do(t, testDeps(&stubFetcher{}), http.MethodPost, "/api/nav", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSessionEndpoint(t *testing.T) {
	rec := do(t, testDeps(&stubFetcher{}), http.MethodGet, "/api/session", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out struct {
		State   string `json:"state"`
		Mounted bool   `json:"mounted"`
		AppID   string `json:"app_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("bad body %s: %v", rec.Body.String(), err)
	}
	if out.State != "idle" || out.Mounted || out.AppID != "" {
		t.Fatalf("session = %#v, want idle and unmounted", out)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	deps := testDeps(&stubFetcher{})

	rec := do(t, deps, http.MethodPut, "/api/settings",
		`{"enabled":false,"country":"DE","history_range":"6m","shops":[61,35],"date_format":"EU"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = do(t, deps, http.MethodGet, "/api/settings", "")
	var got config.SettingsConfig
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("bad body %s: %v", rec.Body.String(), err)
	}
	if got.Enabled || got.Country != "DE" || got.HistoryRange != "6m" || got.DateFormat != "EU" {
		t.Fatalf("settings = %#v", got)
	}
	if len(got.Shops) != 2 || got.Shops[0] != 61 || got.Shops[1] != 35 {
		t.Fatalf("shops = %#v, want [61 35]", got.Shops)
	}
}

func TestSettingsUpdateRejectsInvalidRange(t *testing.T) {
	deps := testDeps(&stubFetcher{})
	rec := do(t, deps, http.MethodPut, "/api/settings", `{"enabled":true,"history_range":"10y"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if deps.Settings.HistoryRange() == "10y" {
		t.Fatal("invalid update was applied")
	}
}

func TestRatesEndpoint(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":"success","base_code":"USD","conversion_rates":{"EUR":0.9}}`))
	}))
	defer upstream.Close()

	deps := testDeps(&stubFetcher{})
	deps.Exchange = exchange.NewService(config.ExchangeConfig{APIKey: "k", BaseURL: upstream.URL}, nil)

	rec := do(t, deps, http.MethodGet, "/api/rates/USD", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var rates exchange.Rates
	if err := json.Unmarshal(rec.Body.Bytes(), &rates); err != nil {
		t.Fatalf("bad body %s: %v", rec.Body.String(), err)
	}
	if rates.Base != "USD" || rates.Rates["EUR"] != 0.9 {
		t.Fatalf("rates = %#v", rates)
	}
}

func TestRatesEndpointAbsentWithoutService(t *testing.T) {
	rec := do(t, testDeps(&stubFetcher{}), http.MethodGet, "/api/rates/USD", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 when no exchange service is wired", rec.Code)
	}
}
