// Package pipeline runs one transaction through classification, fan-out and
// the trade journal.
package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"whale-alerts/internal/classify"
	"whale-alerts/internal/domain"
	"whale-alerts/internal/idhash"
	"whale-alerts/internal/observability"
	"whale-alerts/internal/storage"
)

// Classifier decides whether an event is an alertable trade for address.
type Classifier interface {
	Classify(ctx context.Context, ev *domain.RawTransactionEvent, address string) classify.Result
}

// Deliverer fans a trade out to subscribers.
type Deliverer interface {
	Deliver(ctx context.Context, trade domain.ClassifiedTrade) (*domain.DeliveryReport, error)
}

// Options configures a Processor.
type Options struct {
	// Journal, if set, records accepted trades. Write failures are logged only.
	Journal storage.TradeJournal
	Logger  logrus.FieldLogger
	Now     func() time.Time
}

// Outcome is what happened to one (event, address) pair.
type Outcome struct {
	Result classify.Result
	Report *domain.DeliveryReport // nil when rejected
}

// Stats are cumulative counters for the status endpoint.
type Stats struct {
	Processed int64 `json:"processed"`
	Accepted  int64 `json:"accepted"`
	Rejected  int64 `json:"rejected"`
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
	Errors    int64 `json:"errors"`
}

// Processor is safe for concurrent use.
type Processor struct {
	classifier Classifier
	deliverer  Deliverer
	journal    storage.TradeJournal
	logger     logrus.FieldLogger
	now        func() time.Time

	processed, accepted, rejected atomic.Int64
	delivered, failed, errs       atomic.Int64
}

// New creates a Processor.
func New(classifier Classifier, deliverer Deliverer, opts Options) *Processor {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Processor{
		classifier: classifier,
		deliverer:  deliverer,
		journal:    opts.Journal,
		logger:     opts.Logger.WithField("component", "pipeline"),
		now:        opts.Now,
	}
}

// Process classifies ev for address and, when accepted, delivers and journals it.
// The returned error is a delivery abort; the outcome still carries the result.
func (p *Processor) Process(ctx context.Context, ev *domain.RawTransactionEvent, address string) (*Outcome, error) {
	start := p.now()
	defer func() { observability.ObserveProcessing(p.now().Sub(start).Seconds()) }()
	p.processed.Add(1)

	result := p.classifier.Classify(ctx, ev, address)
	outcome := &Outcome{Result: result}
	if !result.Accepted() {
		p.rejected.Add(1)
		observability.RecordClassification(string(result.Reject))
		return outcome, nil
	}
	p.accepted.Add(1)
	observability.RecordClassification("accepted")

	trade := *result.Trade
	log := p.logger.WithFields(logrus.Fields{
		"signature": trade.Signature,
		"address":   address,
		"direction": trade.Direction,
		"symbol":    trade.Symbol,
		"value_usd": trade.ValueUSD.StringFixed(2),
	})
	log.Info("trade classified")

	report, err := p.deliverer.Deliver(ctx, trade)
	if err != nil {
		p.errs.Add(1)
		log.WithError(err).Error("delivery aborted")
		return outcome, fmt.Errorf("deliver %s: %w", trade.Signature, err)
	}
	outcome.Report = report
	p.delivered.Add(int64(report.Count(domain.DeliveryDelivered)))
	p.failed.Add(int64(report.Count(domain.DeliveryFailed)))

	if p.journal != nil {
		id := idhash.ComputeTradeID(trade.Signature, trade.TrackedAddress, trade.Mint, string(trade.Direction))
		entry := domain.NewJournalEntry(id, trade, report, p.now())
		if err := p.journal.Append(ctx, []*domain.JournalEntry{entry}); err != nil {
			observability.RecordJournalError()
			log.WithError(err).Warn("journal write failed")
		}
	}
	return outcome, nil
}

// Stats returns a snapshot of the counters.
func (p *Processor) Stats() Stats {
	return Stats{
		Processed: p.processed.Load(),
		Accepted:  p.accepted.Load(),
		Rejected:  p.rejected.Load(),
		Delivered: p.delivered.Load(),
		Failed:    p.failed.Load(),
		Errors:    p.errs.Load(),
	}
}
