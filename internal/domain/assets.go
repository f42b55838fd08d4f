package domain

import "github.com/shopspring/decimal"

// Well-known mints.
const (
	NativeMint = "So11111111111111111111111111111111111111112" // wrapped SOL
	USDCMint   = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDTMint   = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
)

// LamportsPerSOL is the fixed native unit conversion factor.
const LamportsPerSOL = 1_000_000_000

// DustThreshold is the smallest native movement treated as a real transfer.
// Fee-only balance noise is a few thousandths of a SOL at most.
var DustThreshold = decimal.RequireFromString("0.01")

var stablecoinMints = map[string]string{
	USDCMint: "USDC",
	USDTMint: "USDT",
}

// AssetClass is the aggregation bucket a mint falls into.
type AssetClass int

const (
	AssetToken AssetClass = iota
	AssetNative
	AssetStable
)

// ClassifyMint maps a mint to its bucket.
func ClassifyMint(mint string) AssetClass {
	if mint == NativeMint {
		return AssetNative
	}
	if _, ok := stablecoinMints[mint]; ok {
		return AssetStable
	}
	return AssetToken
}

// IsStablecoin reports whether mint is one of the USD-pegged mints.
func IsStablecoin(mint string) bool {
	_, ok := stablecoinMints[mint]
	return ok
}

// StablecoinSymbol returns the ticker of a stablecoin mint, or "".
func StablecoinSymbol(mint string) string {
	return stablecoinMints[mint]
}

// LamportsToSOL converts lamports to whole SOL exactly.
func LamportsToSOL(lamports int64) decimal.Decimal {
	return decimal.New(lamports, -9)
}
