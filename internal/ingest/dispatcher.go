package ingest

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"whale-alerts/internal/domain"
	"whale-alerts/internal/observability"
	"whale-alerts/internal/pipeline"
	"whale-alerts/internal/storage"
)

// Defaults for DispatcherOptions.
const (
	DefaultWorkers      = 8
	DefaultQueueSize    = 1024
	DefaultEventTimeout = 30 * time.Second
)

// Processor handles one (event, address) pair.
type Processor interface {
	Process(ctx context.Context, ev *domain.RawTransactionEvent, address string) (*pipeline.Outcome, error)
}

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	Workers   int
	QueueSize int
	// EventTimeout bounds the work done for one event across all its addresses.
	EventTimeout time.Duration
	Logger       logrus.FieldLogger
}

// Dispatcher is a bounded worker pool between the transports and the pipeline.
type Dispatcher struct {
	registry  storage.SubscriberRegistry
	processor Processor
	queue     chan *domain.RawTransactionEvent
	workers   int
	timeout   time.Duration
	logger    logrus.FieldLogger

	dropped atomic.Int64
}

// NewDispatcher creates a Dispatcher. Call Run to start the workers.
func NewDispatcher(registry storage.SubscriberRegistry, processor Processor, opts DispatcherOptions) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.EventTimeout <= 0 {
		opts.EventTimeout = DefaultEventTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Dispatcher{
		registry:  registry,
		processor: processor,
		queue:     make(chan *domain.RawTransactionEvent, opts.QueueSize),
		workers:   opts.Workers,
		timeout:   opts.EventTimeout,
		logger:    opts.Logger.WithField("component", "dispatcher"),
	}
}

// Submit enqueues ev without blocking. It returns false when the queue is full.
func (d *Dispatcher) Submit(source string, ev *domain.RawTransactionEvent) bool {
	observability.RecordEventReceived(source)
	select {
	case d.queue <- ev:
		observability.SetIngestQueueDepth(len(d.queue))
		return true
	default:
		d.dropped.Add(1)
		observability.RecordEventDropped("queue_full")
		return false
	}
}

// Dropped returns the number of events rejected by Submit.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Run processes queued events until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.WithField("workers", d.workers).Info("dispatcher started")
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < d.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case ev := <-d.queue:
					observability.SetIngestQueueDepth(len(d.queue))
					d.dispatch(ctx, ev)
				}
			}
		})
	}
	err := g.Wait()
	d.logger.Info("dispatcher stopped")
	return err
}

// dispatch runs the pipeline for every candidate that has a binding.
func (d *Dispatcher) dispatch(ctx context.Context, ev *domain.RawTransactionEvent) {
	if ev == nil || ev.Signature == "" {
		observability.RecordEventDropped("missing_signature")
		return
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	log := d.logger.WithField("signature", ev.Signature)
	for _, addr := range CandidateAddresses(ev) {
		bindings, err := d.registry.ListBindings(ctx, addr)
		if err != nil {
			log.WithError(err).WithField("address", addr).Warn("list bindings failed")
			continue
		}
		if len(bindings) == 0 {
			continue
		}
		if _, err := d.processor.Process(ctx, ev, addr); err != nil {
			log.WithError(err).WithField("address", addr).Error("process failed")
		}
	}
}
