package pricing

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"whale-alerts/internal/fallback"
	"whale-alerts/internal/observability"
)

// Defaults for Oracle.
const (
	DefaultTTL     = 30 * time.Second
	DefaultTimeout = 5 * time.Second
)

// DefaultFallbackPrice is used when no quote has ever been fetched.
var DefaultFallbackPrice = decimal.NewFromInt(150)

// Step names reported by the oracle.
const (
	StepLastGood = "last_good"
)

// Options configures Oracle.
type Options struct {
	TTL      time.Duration
	Timeout  time.Duration
	Fallback decimal.Decimal
	Logger   logrus.FieldLogger
	Now      func() time.Time
}

// Oracle caches one SOL/USD quote. Reads are served from cache while fresh;
// a stale read refreshes from the sources in order, then falls back to the
// last good value and finally to a fixed price. One refresh is bounded by
// Timeout as a whole, and a failed refresh is not retried until TTL has
// passed since the attempt.
type Oracle struct {
	sources  []Source
	ttl      time.Duration
	timeout  time.Duration
	fallback decimal.Decimal
	logger   logrus.FieldLogger
	now      func() time.Time

	mu        sync.RWMutex
	price     decimal.Decimal
	fetchedAt time.Time
	hasPrice  bool

	// Set after a refresh where no source answered.
	failedAt time.Time
	served   decimal.Decimal

	group singleflight.Group
}

// NewOracle creates an Oracle over sources, tried in the given order.
func NewOracle(opts Options, sources ...Source) *Oracle {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if !opts.Fallback.IsPositive() {
		opts.Fallback = DefaultFallbackPrice
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Oracle{
		sources:  sources,
		ttl:      opts.TTL,
		timeout:  opts.Timeout,
		fallback: opts.Fallback,
		logger:   opts.Logger.WithField("component", "price_oracle"),
		now:      opts.Now,
	}
}

// CurrentPrice returns the SOL/USD reference price. It never fails.
func (o *Oracle) CurrentPrice(ctx context.Context) decimal.Decimal {
	if p, ok := o.cached(); ok {
		return p
	}
	v, _, _ := o.group.Do("sol_usd", func() (any, error) {
		return o.refresh(ctx), nil
	})
	return v.(decimal.Decimal)
}

// cached returns the quote if it is still within TTL, or the value served
// after a recent failed refresh.
func (o *Oracle) cached() (decimal.Decimal, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	now := o.now()
	if o.hasPrice && now.Sub(o.fetchedAt) < o.ttl {
		return o.price, true
	}
	if !o.failedAt.IsZero() && now.Sub(o.failedAt) < o.ttl {
		return o.served, true
	}
	return decimal.Zero, false
}

func (o *Oracle) refresh(ctx context.Context) decimal.Decimal {
	steps := make([]fallback.Step[decimal.Decimal], 0, len(o.sources))
	for _, src := range o.sources {
		steps = append(steps, fallback.Step[decimal.Decimal]{
			Name: src.Name(),
			Run:  src.FetchPrice,
		})
	}

	chain := fallback.Chain[decimal.Decimal]{
		Steps:   steps,
		Valid:   func(p decimal.Decimal) bool { return p.IsPositive() },
		Default: decimal.Zero,
		OnError: func(step string, err error) {
			observability.RecordPriceSourceError(step)
			o.logger.WithError(err).WithField("source", step).Warn("price refresh failed")
		},
	}

	// Detached from the caller's cancellation; every source shares one deadline.
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout)
	price, step := chain.Resolve(fetchCtx)
	cancel()

	o.mu.Lock()
	now := o.now()
	if step != fallback.DefaultName {
		o.price = price
		o.fetchedAt = now
		o.hasPrice = true
		o.failedAt = time.Time{}
	} else {
		if o.hasPrice {
			price, step = o.price, StepLastGood
		} else {
			price = o.fallback
		}
		o.failedAt = now
		o.served = price
	}
	o.mu.Unlock()

	observability.RecordPriceResolved(step)
	observability.SetSOLPrice(price.InexactFloat64())
	return price
}
