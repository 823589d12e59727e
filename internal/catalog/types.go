// Package catalog fetches and normalizes historical pricing data from the
// IsThereAnyDeal catalog service.
package catalog

import (
	"errors"
	"time"
)

var (
	// ErrNotFound means the catalog service does not know the app.
	ErrNotFound = errors.New("game not found in catalog")
	// ErrNoHistory means the history endpoint returned an empty list.
	ErrNoHistory = errors.New("no history entries")
	// ErrMalformed means a response body did not have the expected shape.
	ErrMalformed = errors.New("malformed catalog response")
)

// PriceHistoryEntry is one canonical observation. Entries in a canonical
// history are sorted ascending by date.
type PriceHistoryEntry struct {
	Amount float64   `json:"amount"`
	Date   time.Time `json:"date"`
	Store  string    `json:"store"`
}

// LowestPriceRecord is the all-time (or per-window) minimum observation.
type LowestPriceRecord struct {
	Amount   float64   `json:"amount"`
	Currency string    `json:"currency"`
	Date     time.Time `json:"date"`
	Store    string    `json:"store"`
	StoreID  int       `json:"store_id"`
}

// Links are the quick-link targets shown next to the overlay.
type Links struct {
	SteamDB string `json:"steamdb"`
	ITAD    string `json:"itad"`
}

// PriceData is the assembled output of a successful fetch.
type PriceData struct {
	Lowest  *LowestPriceRecord  `json:"lowest"`
	History []PriceHistoryEntry `json:"history"`
	Links   Links               `json:"links"`
}

// Result is the tagged outcome of the fetch pipeline. Callers never receive
// an error value from Fetch: failures are carried in Error with diagnostic
// context in Debug.
type Result struct {
	Data  *PriceData             `json:"data"`
	Error string                 `json:"error,omitempty"`
	Debug map[string]interface{} `json:"debug,omitempty"`
}

// GameRef identifies a game in the catalog service.
type GameRef struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
}

// RawEntry mirrors one record of the history/v2 response. The upstream list
// order is preserved; Lowest depends on it.
type RawEntry struct {
	Timestamp string `json:"timestamp"`
	Shop      struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"shop"`
	Deal *struct {
		Price struct {
			Amount   *float64 `json:"amount"`
			Currency string   `json:"currency"`
		} `json:"price"`
	} `json:"deal"`
}

func (e RawEntry) amount() (float64, bool) {
	if e.Deal == nil || e.Deal.Price.Amount == nil {
		return 0, false
	}
	return *e.Deal.Price.Amount, true
}

func (e RawEntry) currency() string {
	if e.Deal == nil {
		return ""
	}
	return e.Deal.Price.Currency
}

func (e RawEntry) date() (time.Time, bool) {
	if e.Timestamp == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, e.Timestamp)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
