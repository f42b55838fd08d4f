// Package metadata resolves display metadata (symbol, name, market cap, age)
// for token mints from an ordered list of sources.
package metadata

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"whale-alerts/internal/domain"
	"whale-alerts/internal/fallback"
	"whale-alerts/internal/observability"
)

// DefaultTimeout bounds one lookup across all sources.
const DefaultTimeout = 5 * time.Second

// SourceFallback marks metadata synthesized from the mint itself.
const SourceFallback = "fallback"

var errNilMetadata = errors.New("source returned no metadata")

// Options configures Resolver.
type Options struct {
	Timeout time.Duration
	Logger  logrus.FieldLogger
	Now     func() time.Time
}

// Resolver answers from cache, otherwise from the first source that yields a
// symbol, otherwise with an abbreviation of the mint.
type Resolver struct {
	sources []Source
	cache   *Cache
	timeout time.Duration
	logger  logrus.FieldLogger
	now     func() time.Time
	group   singleflight.Group
}

// NewResolver creates a Resolver. A nil cache gets a default one.
func NewResolver(cache *Cache, opts Options, sources ...Source) *Resolver {
	if cache == nil {
		cache = NewCache(DefaultTTL, DefaultMaxEntries)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Resolver{
		sources: sources,
		cache:   cache,
		timeout: opts.Timeout,
		logger:  opts.Logger.WithField("component", "metadata_resolver"),
		now:     opts.Now,
	}
}

// Resolve returns metadata for mint. It never fails.
func (r *Resolver) Resolve(ctx context.Context, mint string) domain.TokenMetadata {
	if meta, ok := r.cache.Get(mint, r.now()); ok {
		observability.RecordMetadataLookup("hit")
		return meta
	}
	observability.RecordMetadataLookup("miss")

	v, _, _ := r.group.Do(mint, func() (any, error) {
		return r.lookup(ctx, mint), nil
	})
	return v.(domain.TokenMetadata)
}

func (r *Resolver) lookup(ctx context.Context, mint string) domain.TokenMetadata {
	steps := make([]fallback.Step[*domain.TokenMetadata], 0, len(r.sources))
	for _, src := range r.sources {
		steps = append(steps, fallback.Step[*domain.TokenMetadata]{
			Name: src.Name(),
			Run: func(ctx context.Context) (*domain.TokenMetadata, error) {
				meta, err := src.Fetch(ctx, mint)
				if err == nil && meta == nil {
					err = errNilMetadata
				}
				return meta, err
			},
		})
	}

	chain := fallback.Chain[*domain.TokenMetadata]{
		Steps: steps,
		Valid: func(m *domain.TokenMetadata) bool { return m.Symbol != "" },
		Default: &domain.TokenMetadata{
			Mint:   mint,
			Symbol: Abbreviate(mint),
			Source: SourceFallback,
		},
		OnError: func(step string, err error) {
			r.logger.WithError(err).WithFields(logrus.Fields{"source": step, "mint": mint}).Debug("metadata source failed")
		},
	}

	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	found, source := chain.Resolve(fetchCtx)
	cancel()
	meta := *found
	meta.Mint = mint
	if source != fallback.DefaultName {
		meta.Source = source
	}
	meta.FetchedAt = r.now()
	observability.RecordMetadataSource(meta.Source)

	r.cache.Set(mint, meta, meta.FetchedAt)
	return meta
}

// Abbreviate shortens a mint to a fixed-length display form, e.g. "7xKX..sAsU".
func Abbreviate(mint string) string {
	if len(mint) <= 10 {
		return mint
	}
	return mint[:4] + ".." + mint[len(mint)-4:]
}
