// Package overlay turns analytics output into render commands for the store
// page. The session core only produces the structured command; translating it
// into page mutations is this package's concern.
package overlay

import (
	"time"

	"github.com/mohammad-safakhou/dealwatch/internal/catalog"
	"github.com/mohammad-safakhou/dealwatch/internal/predict"
	"github.com/mohammad-safakhou/dealwatch/internal/settings"
)

// RenderCommand is the complete data contract delivered to a renderer.
type RenderCommand struct {
	AppID        string                      `json:"app_id"`
	CurrentPrice float64                     `json:"current_price"`
	CurrentStore string                      `json:"current_store"`
	Currency     string                      `json:"currency"`
	FreeGame     bool                        `json:"free_game"`
	Lowest       *catalog.LowestPriceRecord  `json:"lowest"`
	// AboveLowestPct is how far the current price sits above the window
	// lowest, in percent. Zero when at the lowest or when unknown.
	AboveLowestPct float64                     `json:"above_lowest_pct"`
	Series         []catalog.PriceHistoryEntry `json:"series"`
	Prediction     *predict.Prediction         `json:"prediction"`
	Links          catalog.Links               `json:"links"`

	// presentation preferences
	HistoryRange   string `json:"history_range"`
	ShowQuickLinks bool   `json:"show_quick_links"`
	DateFormat     string `json:"date_format"`

	// set when the fetch pipeline failed; renderers show a
	// "data unavailable" state
	Error string `json:"error,omitempty"`
}

// Build assembles a render command from a fetch result. The series and the
// displayed lowest are restricted to the user-selected lookback window; the
// prediction was computed over the full history by the caller.
func Build(appID string, res catalog.Result, pred *predict.Prediction, st settings.Store, now time.Time) RenderCommand {
	cmd := RenderCommand{
		AppID:          appID,
		HistoryRange:   st.HistoryRange(),
		ShowQuickLinks: st.ShowQuickLinks(),
		DateFormat:     st.DateFormat(),
	}
	if res.Data == nil {
		cmd.Error = res.Error
		return cmd
	}

	data := res.Data
	currency := "USD"
	if data.Lowest != nil {
		currency = data.Lowest.Currency
	}
	cmd.Currency = currency
	cmd.Links = data.Links
	cmd.Prediction = pred

	if n := len(data.History); n > 0 {
		latest := data.History[n-1]
		cmd.CurrentPrice = latest.Amount
		cmd.CurrentStore = latest.Store
	}
	cmd.FreeGame = cmd.CurrentPrice == 0 && len(data.History) > 0

	start := catalog.WindowStart(st.HistoryRange(), now)
	cmd.Series = catalog.FilterWindow(data.History, start)
	cmd.Lowest = catalog.LowestIn(cmd.Series, currency)
	if cmd.Lowest != nil && cmd.Lowest.Amount > 0 && cmd.CurrentPrice > cmd.Lowest.Amount {
		cmd.AboveLowestPct = (cmd.CurrentPrice - cmd.Lowest.Amount) / cmd.Lowest.Amount * 100
	}
	return cmd
}
