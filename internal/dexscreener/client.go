// Package dexscreener reads token pair data from the public DexScreener API.
package dexscreener

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"whale-alerts/internal/httpjson"
)

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://api.dexscreener.com"

// ErrNoPairs is returned when the API knows no pairs for a token.
var ErrNoPairs = errors.New("dexscreener: no pairs")

// Token is one side of a pair.
type Token struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// Pair is a single liquidity pool as reported by the API.
type Pair struct {
	ChainID       string           `json:"chainId"`
	DexID         string           `json:"dexId"`
	PairAddress   string           `json:"pairAddress"`
	BaseToken     Token            `json:"baseToken"`
	QuoteToken    Token            `json:"quoteToken"`
	PriceUSD      decimal.Decimal  `json:"priceUsd"`
	Liquidity     Liquidity        `json:"liquidity"`
	FDV           *decimal.Decimal `json:"fdv"`
	MarketCap     *decimal.Decimal `json:"marketCap"`
	PairCreatedAt int64            `json:"pairCreatedAt"` // ms
}

// Liquidity of a pair in USD.
type Liquidity struct {
	USD float64 `json:"usd"`
}

type tokensResponse struct {
	Pairs []Pair `json:"pairs"`
}

// Client queries DexScreener.
type Client struct {
	http *httpjson.Client
}

// NewClient creates a Client against baseURL (DefaultBaseURL when empty).
func NewClient(baseURL string, opts ...httpjson.Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: httpjson.New(baseURL, opts...)}
}

// TokenPairs returns all Solana pairs that include mint.
func (c *Client) TokenPairs(ctx context.Context, mint string) ([]Pair, error) {
	var resp tokensResponse
	if err := c.http.Get(ctx, "/latest/dex/tokens/"+mint, &resp); err != nil {
		return nil, fmt.Errorf("dexscreener tokens %s: %w", mint, err)
	}

	pairs := resp.Pairs[:0]
	for _, p := range resp.Pairs {
		if p.ChainID == "" || p.ChainID == "solana" {
			pairs = append(pairs, p)
		}
	}
	if len(pairs) == 0 {
		return nil, ErrNoPairs
	}
	return pairs, nil
}

// BestPair picks the most liquid pair whose base token is mint.
func BestPair(pairs []Pair, mint string) (Pair, bool) {
	var best Pair
	found := false
	for _, p := range pairs {
		if p.BaseToken.Address != mint {
			continue
		}
		if !found || p.Liquidity.USD > best.Liquidity.USD {
			best = p
			found = true
		}
	}
	return best, found
}
