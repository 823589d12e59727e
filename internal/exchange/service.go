package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mohammad-safakhou/dealwatch/config"
	"github.com/mohammad-safakhou/dealwatch/internal/telemetry"
)

// Service resolves conversion rates, serving from cache while fresh.
type Service struct {
	apiKey  string
	baseURL string
	ttl     time.Duration
	cache   Cache
	http    *http.Client
	logger  *log.Logger
}

func NewService(cfg config.ExchangeConfig, cache Cache) *Service {
	cfg = cfg.Normalize()
	if cache == nil {
		cache = NewMemory()
	}
	return &Service{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		ttl:     cfg.CacheTTL,
		cache:   cache,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  telemetry.Logger("EXCHANGE"),
	}
}

// Rates returns the conversion table for a base currency.
func (s *Service) Rates(ctx context.Context, base string) (*Rates, error) {
	if cached, ok, err := s.cache.Get(ctx, base); err == nil && ok {
		telemetry.RateLookups.WithLabelValues("cache").Inc()
		return cached, nil
	} else if err != nil {
		s.logger.Printf("rate cache read for %s: %v", base, err)
	}
	return s.fetch(ctx, base)
}

// Convert converts an amount between currencies. Same-currency conversions
// short-circuit without touching the cache.
func (s *Service) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	if from == to {
		return amount, nil
	}
	rates, err := s.Rates(ctx, from)
	if err != nil {
		return 0, err
	}
	rate, ok := rates.Rates[to]
	if !ok {
		return 0, fmt.Errorf("no rate from %s to %s", from, to)
	}
	return amount * rate, nil
}

// Refresh forces a remote fetch, re-warming the cache.
func (s *Service) Refresh(ctx context.Context, base string) error {
	_, err := s.fetch(ctx, base)
	return err
}

func (s *Service) fetch(ctx context.Context, base string) (*Rates, error) {
	url := fmt.Sprintf("%s/%s/latest/%s", s.baseURL, s.apiKey, base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		telemetry.RateLookups.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("rate fetch failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Result          string             `json:"result"`
		BaseCode        string             `json:"base_code"`
		ConversionRates map[string]float64 `json:"conversion_rates"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		telemetry.RateLookups.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("malformed rate response: %w", err)
	}
	if parsed.Result != "success" || parsed.ConversionRates == nil {
		telemetry.RateLookups.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("rate response not successful (%s)", parsed.Result)
	}

	rates := &Rates{Base: parsed.BaseCode, Rates: parsed.ConversionRates, FetchedAt: time.Now()}
	if rates.Base == "" {
		rates.Base = base
	}
	if err := s.cache.Set(ctx, base, rates, s.ttl); err != nil {
		s.logger.Printf("rate cache write for %s: %v", base, err)
	}
	telemetry.RateLookups.WithLabelValues("remote").Inc()
	return rates, nil
}
