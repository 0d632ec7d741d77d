package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Feed fetches the current market buy/sell quotes from the configured upstream
// source. Quotes come back as strings with thousands separators, so parsing
// strips commas before converting.
type Feed struct {
	client       *http.Client
	url          string
	fallbackBuy  float64
	fallbackSell float64
}

type quotePayload struct {
	Buy  string `json:"buy"`
	Sell string `json:"sell"`
}

func NewFeed() *Feed {
	viper.SetDefault("rates.source_url", "")
	viper.SetDefault("rates.timeout_seconds", 10)
	viper.SetDefault("rates.fallback_buy", 89000.0)
	viper.SetDefault("rates.fallback_sell", 89700.0)

	return &Feed{
		client: &http.Client{
			Timeout: time.Duration(viper.GetInt("rates.timeout_seconds")) * time.Second,
		},
		url:          viper.GetString("rates.source_url"),
		fallbackBuy:  viper.GetFloat64("rates.fallback_buy"),
		fallbackSell: viper.GetFloat64("rates.fallback_sell"),
	}
}

// Fetch returns the current buy and sell rates in LBP per USD. With no source
// configured it serves the configured fallback quotes so the rest of the
// system keeps working in development.
func (f *Feed) Fetch(ctx context.Context) (buy, sell float64, err error) {
	if f.url == "" {
		return f.fallbackBuy, f.fallbackSell, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return 0, 0, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("rate source request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("rate source returned status %d", resp.StatusCode)
	}

	var payload quotePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, 0, fmt.Errorf("rate source payload malformed: %w", err)
	}

	buy, err = parseQuote(payload.Buy)
	if err != nil {
		return 0, 0, err
	}
	sell, err = parseQuote(payload.Sell)
	if err != nil {
		return 0, 0, err
	}
	if buy <= 0 || sell <= 0 {
		return 0, 0, fmt.Errorf("rate source returned non-positive quote")
	}
	return buy, sell, nil
}

func parseQuote(raw string) (float64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable quote %q: %w", raw, err)
	}
	return v, nil
}

// Mid returns the midpoint of a buy/sell pair.
func Mid(buy, sell float64) float64 {
	return (buy + sell) / 2
}
