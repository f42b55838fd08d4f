// Package pricing provides the cached SOL/USD reference price.
package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"whale-alerts/internal/dexscreener"
	"whale-alerts/internal/domain"
	"whale-alerts/internal/httpjson"
)

// Source fetches a fresh SOL/USD quote.
type Source interface {
	Name() string
	FetchPrice(ctx context.Context) (decimal.Decimal, error)
}

// SOLUSDFeedID is the Pyth SOL/USD price feed.
const SOLUSDFeedID = "ef0d8b6fda2ceba41da15d4095d1da392a0d2f8ed0c6c7bc0f4cfac8c280b56d"

// DefaultHermesURL is the public Pyth Hermes endpoint.
const DefaultHermesURL = "https://hermes.pyth.network"

var errNoQuote = errors.New("no quote in response")

// PythSource reads the latest SOL/USD update from Pyth Hermes.
type PythSource struct {
	http   *httpjson.Client
	feedID string
}

// NewPythSource creates a Hermes-backed source.
func NewPythSource(baseURL string, opts ...httpjson.Option) *PythSource {
	if baseURL == "" {
		baseURL = DefaultHermesURL
	}
	return &PythSource{http: httpjson.New(baseURL, opts...), feedID: SOLUSDFeedID}
}

// Name implements Source.
func (s *PythSource) Name() string { return "pyth" }

type pythPrice struct {
	Price       string `json:"price"`
	Conf        string `json:"conf"`
	Expo        int32  `json:"expo"`
	PublishTime int64  `json:"publish_time"`
}

type pythParsedFeed struct {
	ID    string    `json:"id"`
	Price pythPrice `json:"price"`
}

type pythLatestResponse struct {
	Parsed []pythParsedFeed `json:"parsed"`
}

// FetchPrice implements Source.
func (s *PythSource) FetchPrice(ctx context.Context) (decimal.Decimal, error) {
	var resp pythLatestResponse
	path := "/v2/updates/price/latest?parsed=true&ids[]=" + s.feedID
	if err := s.http.Get(ctx, path, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("pyth latest: %w", err)
	}
	for _, feed := range resp.Parsed {
		if feed.ID != s.feedID {
			continue
		}
		return ParsePythPrice(feed.Price.Price, feed.Price.Expo)
	}
	return decimal.Zero, errNoQuote
}

// ParsePythPrice converts an integer mantissa and exponent to a decimal.
func ParsePythPrice(mantissa string, expo int32) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(mantissa)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse pyth price %q: %w", mantissa, err)
	}
	return v.Shift(expo), nil
}

// DexScreenerSource prices SOL from its most liquid DexScreener pair.
type DexScreenerSource struct {
	client *dexscreener.Client
}

// NewDexScreenerSource creates a DexScreener-backed source.
func NewDexScreenerSource(client *dexscreener.Client) *DexScreenerSource {
	return &DexScreenerSource{client: client}
}

// Name implements Source.
func (s *DexScreenerSource) Name() string { return "dexscreener" }

// FetchPrice implements Source.
func (s *DexScreenerSource) FetchPrice(ctx context.Context) (decimal.Decimal, error) {
	pairs, err := s.client.TokenPairs(ctx, domain.NativeMint)
	if err != nil {
		return decimal.Zero, err
	}
	best, ok := dexscreener.BestPair(pairs, domain.NativeMint)
	if !ok {
		return decimal.Zero, errNoQuote
	}
	return best.PriceUSD, nil
}
