package predict

import (
	"testing"
	"time"

	"github.com/mohammad-safakhou/dealwatch/internal/catalog"
)

func entry(y int, m time.Month, d int, amount float64) catalog.PriceHistoryEntry {
	return catalog.PriceHistoryEntry{Amount: amount, Date: time.Date(y, m, d, 12, 0, 0, 0, time.UTC), Store: "Steam"}
}

// Three years of a spring sale around day-of-year 100, full price otherwise.
func springSaleHistory() []catalog.PriceHistoryEntry {
	return []catalog.PriceHistoryEntry{
		entry(2023, time.March, 1, 50),
		entry(2023, time.April, 10, 20), // DOY 100
		entry(2023, time.June, 1, 50),
		entry(2024, time.March, 1, 50),
		entry(2024, time.April, 9, 20), // DOY 100 (leap year)
		entry(2024, time.June, 1, 50),
		entry(2025, time.March, 1, 50),
		entry(2025, time.April, 10, 20), // DOY 100
		entry(2025, time.June, 1, 50),
		entry(2026, time.January, 15, 50),
	}
}

// day-of-year 70
var today = time.Date(2026, time.March, 11, 9, 0, 0, 0, time.UTC)

func TestPredictTooLittleHistory(t *testing.T) {
	history := springSaleHistory()[:9]
	if p := Predict(history, 50, today); p != nil {
		t.Fatalf("expected no prediction for %d entries, got %+v", len(history), p)
	}
}

func TestPredictRecurringSpringSale(t *testing.T) {
	p := Predict(springSaleHistory(), 50, today)
	if p == nil {
		t.Fatalf("expected a prediction")
	}
	if p.Price != 20 {
		t.Fatalf("expected predicted price 20, got %v", p.Price)
	}
	lead := p.Date.Sub(today)
	if lead <= 0 || lead > 60*24*time.Hour {
		t.Fatalf("predicted date %v not within the next 60 days of %v", p.Date, today)
	}
	// sale events sit exactly 30 days out on the annual cycle
	if got := p.Date.YearDay(); got != 100 {
		t.Fatalf("expected predicted day-of-year 100, got %d", got)
	}
}

func TestPredictSuppressedWhileOnSale(t *testing.T) {
	// current price below 95% of the historical peak: a sale is active now
	if p := Predict(springSaleHistory(), 40, today); p != nil {
		t.Fatalf("expected suppression while on sale, got %+v", p)
	}
}

func TestPredictNoSaleEvents(t *testing.T) {
	var history []catalog.PriceHistoryEntry
	for i := 0; i < 12; i++ {
		history = append(history, entry(2024, time.January, 1+i*7, 50))
	}
	if p := Predict(history, 50, today); p != nil {
		t.Fatalf("expected no prediction for flat history, got %+v", p)
	}
}

func TestPredictNoCandidatesOutsideLookahead(t *testing.T) {
	// sales recur around DOY 300, far beyond the 60-day window from DOY 70
	history := []catalog.PriceHistoryEntry{
		entry(2023, time.September, 1, 50),
		entry(2023, time.October, 27, 20),
		entry(2023, time.December, 1, 50),
		entry(2024, time.September, 1, 50),
		entry(2024, time.October, 26, 20),
		entry(2024, time.December, 1, 50),
		entry(2025, time.September, 1, 50),
		entry(2025, time.October, 27, 20),
		entry(2025, time.December, 1, 50),
		entry(2026, time.January, 15, 50),
	}
	if p := Predict(history, 50, today); p != nil {
		t.Fatalf("expected no prediction outside lookahead window, got %+v", p)
	}
}

func TestPredictSingleYearClusterRejected(t *testing.T) {
	// two close-together drops within one year are not recurrence evidence
	history := []catalog.PriceHistoryEntry{
		entry(2025, time.January, 1, 50),
		entry(2025, time.February, 1, 50),
		entry(2025, time.April, 8, 20),
		entry(2025, time.April, 9, 50),
		entry(2025, time.April, 12, 20),
		entry(2025, time.May, 1, 50),
		entry(2025, time.June, 1, 50),
		entry(2025, time.July, 1, 50),
		entry(2025, time.August, 1, 50),
		entry(2025, time.September, 1, 50),
	}
	if p := Predict(history, 50, today); p != nil {
		t.Fatalf("expected rejection of single-year cluster, got %+v", p)
	}
}

func TestPredictYearBoundaryWrap(t *testing.T) {
	// today near year end, recurring sale in early January: diff wraps into
	// the lookahead window
	december := time.Date(2025, time.December, 20, 9, 0, 0, 0, time.UTC)
	history := []catalog.PriceHistoryEntry{
		entry(2023, time.November, 1, 50),
		entry(2024, time.January, 5, 20),
		entry(2024, time.March, 1, 50),
		entry(2024, time.November, 1, 50),
		entry(2025, time.January, 4, 20),
		entry(2025, time.March, 1, 50),
		entry(2025, time.June, 1, 50),
		entry(2025, time.August, 1, 50),
		entry(2025, time.October, 1, 50),
		entry(2025, time.November, 20, 50),
	}
	p := Predict(history, 50, december)
	if p == nil {
		t.Fatalf("expected a wrapped prediction")
	}
	if !p.Date.After(december) {
		t.Fatalf("predicted date %v should be after today %v", p.Date, december)
	}
}
