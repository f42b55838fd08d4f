package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction of a classified trade from the whale's point of view.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// InputAsset is the payment leg of a trade.
type InputAsset string

const (
	InputNative     InputAsset = "native"
	InputStablecoin InputAsset = "stablecoin"
)

// RejectReason explains why a transaction produced no trade.
type RejectReason string

const (
	RejectNone              RejectReason = ""
	RejectMissingSignature  RejectReason = "missing_signature"
	RejectFailedTransaction RejectReason = "failed_transaction"
	RejectNoTokenMovement   RejectReason = "no_token_movement"
	RejectNoCounterAsset    RejectReason = "no_counter_asset"
	RejectDust              RejectReason = "dust"
	RejectBelowMinimum      RejectReason = "below_minimum"
)

// ClassifiedTrade is one economically meaningful swap by a tracked address.
// TokenAmount and InputAmount are always positive.
type ClassifiedTrade struct {
	Direction      Direction
	TrackedAddress string
	Mint           string
	Symbol         string
	Name           string
	TokenAmount    decimal.Decimal
	InputAsset     InputAsset
	InputAmount    decimal.Decimal
	ValueUSD       decimal.Decimal
	PriceUSD       decimal.Decimal  // reference price used for native valuation (zero for stablecoin)
	MarketCapUSD   *decimal.Decimal // nullable
	TokenAge       *time.Duration   // nullable
	Signature      string
	Timestamp      int64 // unix seconds
}

// InputSymbol returns the display ticker of the payment leg.
func (t *ClassifiedTrade) InputSymbol() string {
	if t.InputAsset == InputNative {
		return "SOL"
	}
	return "USD"
}
