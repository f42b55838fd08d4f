package metadata

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"whale-alerts/internal/dexscreener"
	"whale-alerts/internal/domain"
	"whale-alerts/internal/httpjson"
)

// Source looks up metadata for a mint. An empty Symbol counts as a miss.
type Source interface {
	Name() string
	Fetch(ctx context.Context, mint string) (*domain.TokenMetadata, error)
}

// DexScreenerSource reads symbol, market cap and pool age from the most
// liquid pair of the mint.
type DexScreenerSource struct {
	client *dexscreener.Client
}

// NewDexScreenerSource creates a DexScreener-backed source.
func NewDexScreenerSource(client *dexscreener.Client) *DexScreenerSource {
	return &DexScreenerSource{client: client}
}

// Name implements Source.
func (s *DexScreenerSource) Name() string { return "dexscreener" }

// Fetch implements Source.
func (s *DexScreenerSource) Fetch(ctx context.Context, mint string) (*domain.TokenMetadata, error) {
	pairs, err := s.client.TokenPairs(ctx, mint)
	if err != nil {
		return nil, err
	}
	best, ok := dexscreener.BestPair(pairs, mint)
	if !ok {
		return nil, dexscreener.ErrNoPairs
	}

	meta := &domain.TokenMetadata{
		Mint:   mint,
		Symbol: best.BaseToken.Symbol,
		Name:   best.BaseToken.Name,
	}
	switch {
	case best.MarketCap != nil && best.MarketCap.IsPositive():
		meta.MarketCapUSD = best.MarketCap
	case best.FDV != nil && best.FDV.IsPositive():
		meta.MarketCapUSD = best.FDV
	}
	if best.PairCreatedAt > 0 {
		created := time.UnixMilli(best.PairCreatedAt)
		meta.CreatedAt = &created
	}
	return meta, nil
}

// DefaultPumpFunURL is the pump.fun frontend API.
const DefaultPumpFunURL = "https://frontend-api-v3.pump.fun"

// PumpFunSource reads bonding-curve coins that have no DEX pair yet.
type PumpFunSource struct {
	http *httpjson.Client
}

// NewPumpFunSource creates a pump.fun-backed source.
func NewPumpFunSource(baseURL string, opts ...httpjson.Option) *PumpFunSource {
	if baseURL == "" {
		baseURL = DefaultPumpFunURL
	}
	return &PumpFunSource{http: httpjson.New(baseURL, opts...)}
}

// Name implements Source.
func (s *PumpFunSource) Name() string { return "pumpfun" }

type pumpCoin struct {
	Mint             string          `json:"mint"`
	Name             string          `json:"name"`
	Symbol           string          `json:"symbol"`
	USDMarketCap     decimal.Decimal `json:"usd_market_cap"`
	CreatedTimestamp int64           `json:"created_timestamp"` // ms
}

// Fetch implements Source.
func (s *PumpFunSource) Fetch(ctx context.Context, mint string) (*domain.TokenMetadata, error) {
	var coin pumpCoin
	if err := s.http.Get(ctx, "/coins/"+mint, &coin); err != nil {
		return nil, fmt.Errorf("pumpfun coin %s: %w", mint, err)
	}
	meta := &domain.TokenMetadata{
		Mint:   mint,
		Symbol: coin.Symbol,
		Name:   coin.Name,
	}
	if coin.USDMarketCap.IsPositive() {
		mcap := coin.USDMarketCap
		meta.MarketCapUSD = &mcap
	}
	if coin.CreatedTimestamp > 0 {
		created := time.UnixMilli(coin.CreatedTimestamp)
		meta.CreatedAt = &created
	}
	return meta, nil
}
