package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mohammad-safakhou/dealwatch/config"
	"github.com/mohammad-safakhou/dealwatch/internal/telemetry"
)

// Query carries the user-configured scope of a history fetch.
type Query struct {
	Country string
	Shops   []int
}

// Client talks to the catalog service. All methods issue a single outbound
// request; Fetch combines them into the tagged-result pipeline.
type Client struct {
	apiKey   string
	baseURL  string
	lookback int
	http     *http.Client
	logger   *log.Logger
}

func New(cfg config.CatalogConfig) *Client {
	cfg = cfg.Normalize()
	return &Client{
		apiKey:   cfg.APIKey,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		lookback: cfg.Lookback,
		http:     &http.Client{Timeout: cfg.Timeout},
		logger:   telemetry.Logger("CATALOG"),
	}
}

func (c *Client) lookupURL(appID string) string {
	params := url.Values{}
	params.Add("key", c.apiKey)
	params.Add("appid", appID)
	return c.baseURL + "/games/lookup/v1?" + params.Encode()
}

func (c *Client) historyURL(gameID, country string, shops []int, since time.Time) string {
	ids := make([]string, 0, len(shops))
	for _, s := range shops {
		ids = append(ids, strconv.Itoa(s))
	}
	params := url.Values{}
	params.Add("key", c.apiKey)
	params.Add("id", gameID)
	params.Add("country", country)
	params.Add("shops", strings.Join(ids, ","))
	// seconds precision, UTC, no milliseconds
	params.Add("since", since.UTC().Format("2006-01-02T15:04:05Z"))
	return c.baseURL + "/games/history/v2?" + params.Encode()
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}
	return body, nil
}

// Lookup resolves an app id to its catalog identifier and slug.
func (c *Client) Lookup(ctx context.Context, appID string) (GameRef, error) {
	body, err := c.get(ctx, c.lookupURL(appID))
	if err != nil {
		return GameRef{}, fmt.Errorf("lookup fetch failed: %w", err)
	}
	var parsed struct {
		Found bool `json:"found"`
		Game  struct {
			ID   string `json:"id"`
			Slug string `json:"slug"`
		} `json:"game"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return GameRef{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !parsed.Found || parsed.Game.ID == "" {
		return GameRef{}, ErrNotFound
	}
	return GameRef{ID: parsed.Game.ID, Slug: parsed.Game.Slug}, nil
}

// History fetches raw price records for a catalog id since the given lower
// bound, in upstream response order.
func (c *Client) History(ctx context.Context, gameID string, q Query, since time.Time) ([]RawEntry, error) {
	body, err := c.get(ctx, c.historyURL(gameID, q.Country, q.Shops, since))
	if err != nil {
		return nil, fmt.Errorf("history fetch failed: %w", err)
	}
	var entries []RawEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("%w: history not a list: %v", ErrMalformed, err)
	}
	if len(entries) == 0 {
		return nil, ErrNoHistory
	}
	return entries, nil
}

// Fetch runs the full lookup -> history -> normalize pipeline for an app id.
// It never returns an error; failures are tagged into the Result.
func (c *Client) Fetch(ctx context.Context, appID string, q Query) Result {
	debug := map[string]interface{}{"request_id": uuid.NewString(), "app_id": appID}
	fail := func(reason string) Result {
		c.logger.Printf("fetch %s failed: %s", appID, reason)
		telemetry.CatalogFetches.WithLabelValues("error").Inc()
		return Result{Error: reason, Debug: debug}
	}

	ref, err := c.Lookup(ctx, appID)
	if err != nil {
		return fail(err.Error())
	}
	debug["game_id"] = ref.ID

	since := time.Now().AddDate(-c.lookback, 0, 0)
	raw, err := c.History(ctx, ref.ID, q, since)
	if err != nil {
		return fail(err.Error())
	}
	debug["entries"] = len(raw)

	history := Normalize(raw)
	lowest := Lowest(raw)
	if lowest == nil || len(history) == 0 {
		return fail("no valid deals in history")
	}

	slug := ref.Slug
	if slug == "" {
		slug = appID
	}
	telemetry.CatalogFetches.WithLabelValues("ok").Inc()
	return Result{
		Data: &PriceData{
			Lowest:  lowest,
			History: history,
			Links: Links{
				SteamDB: "https://steamdb.info/app/" + appID + "/",
				ITAD:    "https://isthereanydeal.com/game/" + slug + "/",
			},
		},
		Debug: debug,
	}
}
