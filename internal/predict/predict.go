// Package predict estimates the next likely sale window from recurring
// seasonal discount patterns. It is a calendar-recurrence heuristic, not a
// statistical model: it trades recall for simplicity.
package predict

import (
	"sort"
	"time"

	"github.com/mohammad-safakhou/dealwatch/internal/catalog"
	"github.com/mohammad-safakhou/dealwatch/internal/telemetry"
)

const (
	minHistory    = 10
	saleDropRatio = 0.9  // >=10% drop vs the immediately preceding observation
	activeSaleCut = 0.95 // current price below 95% of the peak means a sale is on
	lookaheadDays = 60
	clusterGap    = 10
	minClusterLen = 2
	minYears      = 2
)

// Prediction is the predicted next-sale window. Ephemeral: recomputed per
// fetch, never cached.
type Prediction struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

type candidate struct {
	original time.Time
	amount   float64
	diff     int
}

// Predict returns the next likely sale window for a chronologically ascending
// history and the current price, or nil when no qualifying recurrence exists.
// now supplies "today" so the projection is testable.
func Predict(history []catalog.PriceHistoryEntry, currentPrice float64, now time.Time) *Prediction {
	p := predict(history, currentPrice, now)
	if p == nil {
		telemetry.Predictions.WithLabelValues("skipped").Inc()
	} else {
		telemetry.Predictions.WithLabelValues("predicted").Inc()
	}
	return p
}

func predict(history []catalog.PriceHistoryEntry, currentPrice float64, now time.Time) *Prediction {
	if len(history) < minHistory {
		return nil
	}

	var sales []catalog.PriceHistoryEntry
	for i := 1; i < len(history); i++ {
		if history[i].Amount < history[i-1].Amount*saleDropRatio {
			sales = append(sales, history[i])
		}
	}
	if len(sales) == 0 {
		return nil
	}

	// Project each sale onto the annual cycle: how many days from today
	// until its day-of-year comes around again.
	todayDOY := now.YearDay()
	var candidates []candidate
	for _, sale := range sales {
		diff := sale.Date.YearDay() - todayDOY
		if diff < 0 {
			diff += 365
		}
		if diff > 0 && diff <= lookaheadDays {
			candidates = append(candidates, candidate{original: sale.Date, amount: sale.Amount, diff: diff})
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].diff < candidates[j].diff })

	var clusters [][]candidate
	current := []candidate{candidates[0]}
	for _, c := range candidates[1:] {
		if c.diff-current[len(current)-1].diff <= clusterGap {
			current = append(current, c)
			continue
		}
		if len(current) >= minClusterLen {
			clusters = append(clusters, current)
		}
		current = []candidate{c}
	}
	if len(current) >= minClusterLen {
		clusters = append(clusters, current)
	}

	// Require cross-year evidence that the sale recurs, not just multiple
	// close-together discounts within one year.
	var best []candidate
	for _, cluster := range clusters {
		years := map[int]struct{}{}
		for _, c := range cluster {
			years[c.original.Year()] = struct{}{}
		}
		if len(years) >= minYears {
			best = cluster
			break
		}
	}
	if best == nil {
		return nil
	}

	// If a sale looks active right now, predicting the "next" one would be
	// noise; suppress.
	var recentMax float64
	for _, h := range history {
		if h.Amount > recentMax {
			recentMax = h.Amount
		}
	}
	if currentPrice < recentMax*activeSaleCut {
		return nil
	}

	sum := 0
	minPrice := best[0].amount
	for _, c := range best {
		sum += c.diff
		if c.amount < minPrice {
			minPrice = c.amount
		}
	}
	avgDiff := sum / len(best)

	return &Prediction{Date: now.AddDate(0, 0, avgDiff), Price: minPrice}
}
