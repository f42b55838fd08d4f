package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"whale-alerts/internal/solana"
	"whale-alerts/internal/storage"
)

// SourceRPC labels events fetched after a logs notification.
const SourceRPC = "rpc"

// Defaults for WatcherOptions.
const (
	DefaultRefreshInterval = time.Minute
	DefaultFetchRetries    = 3
	DefaultFetchDelay      = 500 * time.Millisecond
	DefaultFetchParallel   = 4
	recentSignatures       = 4096
)

var errTxUnavailable = errors.New("transaction not yet available")

// WatcherOptions configures an RPCWatcher.
type WatcherOptions struct {
	// RefreshInterval is how often the tracked address list is re-read.
	RefreshInterval time.Duration
	FetchRetries    int
	FetchDelay      time.Duration
	FetchParallel   int
	Logger          logrus.FieldLogger
}

// RPCWatcher subscribes to logs mentioning each tracked address and feeds the
// full transactions to a Submitter.
type RPCWatcher struct {
	ws        solana.WSClient
	rpc       solana.RPCClient
	registry  storage.SubscriberRegistry
	submitter Submitter
	opts      WatcherOptions
	logger    logrus.FieldLogger

	mu         sync.Mutex
	subscribed map[string]struct{}
	seen       map[string]struct{}
	seenOrder  []string
}

// NewRPCWatcher creates a watcher.
func NewRPCWatcher(ws solana.WSClient, rpc solana.RPCClient, registry storage.SubscriberRegistry, submitter Submitter, opts WatcherOptions) *RPCWatcher {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	if opts.FetchRetries <= 0 {
		opts.FetchRetries = DefaultFetchRetries
	}
	if opts.FetchDelay <= 0 {
		opts.FetchDelay = DefaultFetchDelay
	}
	if opts.FetchParallel <= 0 {
		opts.FetchParallel = DefaultFetchParallel
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &RPCWatcher{
		ws:         ws,
		rpc:        rpc,
		registry:   registry,
		submitter:  submitter,
		opts:       opts,
		logger:     opts.Logger.WithField("component", "rpc_watcher"),
		subscribed: make(map[string]struct{}),
		seen:       make(map[string]struct{}),
	}
}

// Subscribed returns the number of addresses with a live subscription.
func (w *RPCWatcher) Subscribed() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subscribed)
}

// Run subscribes and forwards transactions until ctx is cancelled.
func (w *RPCWatcher) Run(ctx context.Context) error {
	notes := make(chan solana.LogNotification, 256)
	if err := w.refresh(ctx, notes); err != nil {
		return fmt.Errorf("initial subscribe: %w", err)
	}

	ticker := time.NewTicker(w.opts.RefreshInterval)
	defer ticker.Stop()

	var g errgroup.Group
	g.SetLimit(w.opts.FetchParallel)
	defer g.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.refresh(ctx, notes); err != nil {
				w.logger.WithError(err).Warn("refresh subscriptions failed")
			}
		case n := <-notes:
			if n.Err != nil || !w.firstSighting(n.Signature) {
				continue
			}
			g.Go(func() error {
				w.handle(ctx, n)
				return nil
			})
		}
	}
}

// refresh subscribes every tracked address that has no subscription yet.
func (w *RPCWatcher) refresh(ctx context.Context, notes chan<- solana.LogNotification) error {
	addrs, err := w.registry.ListTrackedAddresses(ctx)
	if err != nil {
		return fmt.Errorf("list tracked addresses: %w", err)
	}
	for _, addr := range addrs {
		w.mu.Lock()
		_, ok := w.subscribed[addr]
		w.mu.Unlock()
		if ok {
			continue
		}

		ch, err := w.ws.SubscribeLogs(ctx, solana.LogsFilter{Mentions: []string{addr}})
		if err != nil {
			w.logger.WithError(err).WithField("address", addr).Warn("logs subscribe failed")
			continue
		}
		w.mu.Lock()
		w.subscribed[addr] = struct{}{}
		w.mu.Unlock()
		w.logger.WithField("address", addr).Info("subscribed")

		go forward(ctx, ch, notes)
	}
	return nil
}

func forward(ctx context.Context, in <-chan solana.LogNotification, out chan<- solana.LogNotification) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-in:
			if !ok {
				return
			}
			select {
			case out <- n:
			case <-ctx.Done():
				return
			}
		}
	}
}

// firstSighting reports whether sig is new. One transaction mentioning several
// tracked addresses arrives once per subscription.
func (w *RPCWatcher) firstSighting(sig string) bool {
	if sig == "" {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.seen[sig]; ok {
		return false
	}
	w.seen[sig] = struct{}{}
	w.seenOrder = append(w.seenOrder, sig)
	if len(w.seenOrder) > recentSignatures {
		delete(w.seen, w.seenOrder[0])
		w.seenOrder = w.seenOrder[1:]
	}
	return true
}

func (w *RPCWatcher) handle(ctx context.Context, n solana.LogNotification) {
	log := w.logger.WithField("signature", n.Signature)
	tx, err := w.fetch(ctx, n.Signature)
	if err != nil {
		log.WithError(err).Warn("get transaction failed, dropping")
		return
	}
	if !w.submitter.Submit(SourceRPC, solana.ToRawEvent(tx)) {
		log.Warn("ingest queue full")
	}
}

// fetch gets a transaction with exponential backoff. A node that has not
// indexed the transaction yet returns nil, which is retried too.
func (w *RPCWatcher) fetch(ctx context.Context, sig string) (*solana.Transaction, error) {
	var lastErr error
	for attempt := 0; attempt < w.opts.FetchRetries; attempt++ {
		tx, err := w.rpc.GetTransaction(ctx, sig)
		if err == nil && tx != nil {
			return tx, nil
		}
		lastErr = err
		if lastErr == nil {
			lastErr = errTxUnavailable
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		delay := w.opts.FetchDelay * time.Duration(1<<attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}
