// Package classify turns reconciled balance deltas into BUY/SELL trades and
// filters out transactions that are not worth an alert.
package classify

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"whale-alerts/internal/aggregate"
	"whale-alerts/internal/domain"
	"whale-alerts/internal/fallback"
)

// DefaultMinValueUSD is the default alert floor.
var DefaultMinValueUSD = decimal.NewFromInt(10)

// PriceOracle supplies the SOL→USD reference price. It must not block past its
// own network budget and never fails.
type PriceOracle interface {
	CurrentPrice(ctx context.Context) decimal.Decimal
}

// MetadataResolver supplies display metadata for a mint. It never fails.
type MetadataResolver interface {
	Resolve(ctx context.Context, mint string) domain.TokenMetadata
}

// Options configures a Classifier.
type Options struct {
	// MinValueUSD is both the stablecoin significance floor and the final
	// alert floor.
	MinValueUSD decimal.Decimal
	Logger      logrus.FieldLogger
	Now         func() time.Time
}

// Classifier decides whether a transaction is an alertable trade.
type Classifier struct {
	oracle   PriceOracle
	resolver MetadataResolver
	minUSD   decimal.Decimal
	logger   logrus.FieldLogger
	now      func() time.Time
}

// New creates a Classifier.
func New(oracle PriceOracle, resolver MetadataResolver, opts Options) *Classifier {
	if opts.MinValueUSD.IsZero() {
		opts.MinValueUSD = DefaultMinValueUSD
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Classifier{
		oracle:   oracle,
		resolver: resolver,
		minUSD:   opts.MinValueUSD,
		logger:   opts.Logger.WithField("component", "classifier"),
		now:      opts.Now,
	}
}

// Result is either an accepted trade or a rejection reason.
type Result struct {
	Trade  *domain.ClassifiedTrade
	Reject domain.RejectReason
	Deltas domain.DeltaSet
}

// Accepted reports whether a trade was produced.
func (r Result) Accepted() bool {
	return r.Trade != nil
}

// Classify aggregates ev for address and classifies the result.
func (c *Classifier) Classify(ctx context.Context, ev *domain.RawTransactionEvent, address string) Result {
	if ev == nil || ev.Signature == "" {
		return c.reject(domain.DeltaSet{TrackedAddress: address}, domain.RejectMissingSignature)
	}
	if ev.Failed() {
		return c.reject(domain.DeltaSet{Signature: ev.Signature, TrackedAddress: address}, domain.RejectFailedTransaction)
	}
	return c.ClassifyDeltas(ctx, aggregate.Aggregate(ev, address))
}

// ClassifyDeltas runs the decision procedure on an already aggregated set.
func (c *Classifier) ClassifyDeltas(ctx context.Context, set domain.DeltaSet) Result {
	received, sent := set.Received(), set.Sent()
	if len(received) == 0 && len(sent) == 0 {
		return c.reject(set, domain.RejectNoTokenMovement)
	}

	// Mixed legs resolve to BUY; the acquired asset is what gets reported.
	direction := domain.DirectionBuy
	output := largest(received)
	if len(received) == 0 {
		direction = domain.DirectionSell
		output = largest(sent)
	}

	pay, _ := c.inputChain(set, direction).Resolve(ctx)
	if pay.asset == "" {
		return c.reject(set, domain.RejectNoCounterAsset)
	}

	var valueUSD, price decimal.Decimal
	switch pay.asset {
	case domain.InputStablecoin:
		valueUSD = pay.amount
	case domain.InputNative:
		price = c.oracle.CurrentPrice(ctx)
		valueUSD = pay.amount.Mul(price)
	}

	if pay.asset == domain.InputNative && !aggregate.ClearsDust(pay.amount) {
		return c.reject(set, domain.RejectDust)
	}
	if valueUSD.LessThan(c.minUSD) {
		return c.reject(set, domain.RejectBelowMinimum)
	}

	trade := &domain.ClassifiedTrade{
		Direction:      direction,
		TrackedAddress: set.TrackedAddress,
		Mint:           output.Mint,
		TokenAmount:    output.Amount.Abs(),
		InputAsset:     pay.asset,
		InputAmount:    pay.amount,
		ValueUSD:       valueUSD,
		PriceUSD:       price,
		Signature:      set.Signature,
		Timestamp:      set.Timestamp,
	}

	meta := c.resolver.Resolve(ctx, output.Mint)
	trade.Symbol = meta.Symbol
	trade.Name = meta.Name
	trade.MarketCapUSD = meta.MarketCapUSD
	trade.TokenAge = meta.Age(c.now())

	return Result{Trade: trade, Deltas: set}
}

type payment struct {
	asset  domain.InputAsset
	amount decimal.Decimal // magnitude
}

var errNoLeg = errors.New("no payment leg")

// inputChain lists the payment-leg candidates in priority order. A BUY spends
// (negative delta), a SELL receives (positive delta).
func (c *Classifier) inputChain(set domain.DeltaSet, dir domain.Direction) fallback.Chain[payment] {
	spendSign := -1
	if dir == domain.DirectionSell {
		spendSign = 1
	}
	consistent := func(v decimal.Decimal) bool { return v.Sign() == spendSign }

	leg := func(name string, asset domain.InputAsset, v decimal.Decimal, ok func() bool) fallback.Step[payment] {
		return fallback.Step[payment]{
			Name: name,
			Run: func(context.Context) (payment, error) {
				if !consistent(v) || !ok() {
					return payment{}, errNoLeg
				}
				return payment{asset: asset, amount: v.Abs()}, nil
			},
		}
	}

	return fallback.Chain[payment]{
		Steps: []fallback.Step[payment]{
			leg("stable", domain.InputStablecoin, set.Stable, func() bool { return set.Stable.Abs().GreaterThan(c.minUSD) }),
			leg("native", domain.InputNative, set.Native, func() bool { return aggregate.ClearsDust(set.Native) }),
			leg("stable_small", domain.InputStablecoin, set.Stable, func() bool { return !set.Stable.IsZero() }),
		},
	}
}

// largest returns the entry with the biggest magnitude; the first one wins ties.
func largest(deltas []domain.TokenDelta) domain.TokenDelta {
	var best domain.TokenDelta
	for i, d := range deltas {
		if i == 0 || d.Amount.Abs().GreaterThan(best.Amount.Abs()) {
			best = d
		}
	}
	return best
}

func (c *Classifier) reject(set domain.DeltaSet, reason domain.RejectReason) Result {
	c.logger.WithFields(logrus.Fields{
		"signature": set.Signature,
		"address":   set.TrackedAddress,
		"reason":    reason,
	}).Debug("transaction rejected")
	return Result{Reject: reason, Deltas: set}
}
