package catalog

import (
	"sort"
	"time"
)

// Normalize maps raw records into the canonical shape, skipping records
// missing a numeric amount or a parseable date, and sorts the result
// chronologically ascending.
func Normalize(raw []RawEntry) []PriceHistoryEntry {
	entries := make([]PriceHistoryEntry, 0, len(raw))
	for _, e := range raw {
		amount, ok := e.amount()
		if !ok {
			continue
		}
		date, ok := e.date()
		if !ok {
			continue
		}
		entries = append(entries, PriceHistoryEntry{
			Amount: amount,
			Date:   date,
			Store:  ShopName(e.Shop.ID, e.Shop.Name),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Date.Before(entries[j].Date) })
	return entries
}

// Lowest scans entries in their original response order and keeps the first
// entry with the strictly smallest amount. Ties keep the earlier upstream
// entry, which is not necessarily the chronologically earlier one.
func Lowest(raw []RawEntry) *LowestPriceRecord {
	var best *LowestPriceRecord
	for _, e := range raw {
		amount, ok := e.amount()
		if !ok {
			continue
		}
		date, ok := e.date()
		if !ok {
			continue
		}
		if best != nil && amount >= best.Amount {
			continue
		}
		currency := e.currency()
		if currency == "" {
			currency = "USD"
		}
		best = &LowestPriceRecord{
			Amount:   amount,
			Currency: currency,
			Date:     date,
			Store:    ShopName(e.Shop.ID, e.Shop.Name),
			StoreID:  e.Shop.ID,
		}
	}
	return best
}

// WindowStart returns the lower bound of a lookback window relative to now.
// Unknown ranges fall back to one year.
func WindowStart(historyRange string, now time.Time) time.Time {
	switch historyRange {
	case "3m":
		return now.AddDate(0, -3, 0)
	case "6m":
		return now.AddDate(0, -6, 0)
	case "2y":
		return now.AddDate(-2, 0, 0)
	default:
		return now.AddDate(-1, 0, 0)
	}
}

// FilterWindow returns the canonical entries at or after start, preserving
// chronological order.
func FilterWindow(history []PriceHistoryEntry, start time.Time) []PriceHistoryEntry {
	out := make([]PriceHistoryEntry, 0, len(history))
	for _, e := range history {
		if !e.Date.Before(start) {
			out = append(out, e)
		}
	}
	return out
}

// LowestIn recomputes the minimum over an already-filtered chronological
// window. Currency carries over from the all-time record, the upstream
// history points do not repeat it.
func LowestIn(window []PriceHistoryEntry, currency string) *LowestPriceRecord {
	var best *LowestPriceRecord
	for _, e := range window {
		if best != nil && e.Amount >= best.Amount {
			continue
		}
		best = &LowestPriceRecord{
			Amount:   e.Amount,
			Currency: currency,
			Date:     e.Date,
			Store:    e.Store,
		}
	}
	return best
}
