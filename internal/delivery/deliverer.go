// Package delivery fans a classified trade out to the subscribers of its
// tracked address, sending each (subscriber, signature) pair at most once.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"whale-alerts/internal/domain"
	"whale-alerts/internal/notify"
	"whale-alerts/internal/observability"
	"whale-alerts/internal/render"
	"whale-alerts/internal/storage"
)

// DefaultMaxConcurrentSends bounds in-flight sends across all Deliver calls.
const DefaultMaxConcurrentSends = 20

// Options configures a Deliverer.
type Options struct {
	MaxConcurrentSends int64
	Logger             logrus.FieldLogger
	Now                func() time.Time
}

// Deliverer is safe for concurrent use. All calls share one send semaphore.
type Deliverer struct {
	registry storage.SubscriberRegistry
	dedup    storage.DedupStore
	sender   notify.Sender
	sem      *semaphore.Weighted
	logger   logrus.FieldLogger
	now      func() time.Time
}

// New creates a Deliverer.
func New(registry storage.SubscriberRegistry, dedup storage.DedupStore, sender notify.Sender, opts Options) *Deliverer {
	if opts.MaxConcurrentSends <= 0 {
		opts.MaxConcurrentSends = DefaultMaxConcurrentSends
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Deliverer{
		registry: registry,
		dedup:    dedup,
		sender:   sender,
		sem:      semaphore.NewWeighted(opts.MaxConcurrentSends),
		logger:   opts.Logger.WithField("component", "deliverer"),
		now:      opts.Now,
	}
}

type pending struct {
	index   int
	binding domain.SubscriberBinding
}

// Deliver sends trade to every eligible subscriber of trade.TrackedAddress.
//
// All registry and dedup reads happen before the first send. If any of them
// fails the error is returned and nothing is sent. A failed send is reported
// per subscriber and leaves no marker, so a replay of the same signature
// retries only the subscribers that did not receive it.
func (d *Deliverer) Deliver(ctx context.Context, trade domain.ClassifiedTrade) (*domain.DeliveryReport, error) {
	if trade.Signature == "" {
		return nil, fmt.Errorf("deliver: %w", storage.ErrInvalidInput)
	}

	bindings, err := d.registry.ListBindings(ctx, trade.TrackedAddress)
	if err != nil {
		return nil, fmt.Errorf("list bindings for %s: %w", trade.TrackedAddress, err)
	}

	report := &domain.DeliveryReport{
		Signature: trade.Signature,
		Address:   trade.TrackedAddress,
		Outcomes:  make([]domain.DeliveryOutcome, len(bindings)),
	}

	toSend, err := d.eligible(ctx, trade.Signature, bindings, report)
	if err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	for _, p := range toSend {
		wg.Add(1)
		go func(p pending) {
			defer wg.Done()
			report.Outcomes[p.index] = d.send(ctx, trade, p.binding)
		}(p)
	}
	wg.Wait()

	for _, o := range report.Outcomes {
		observability.RecordDelivery(string(o.Status))
	}
	if n := report.Count(domain.DeliveryDelivered); n > 0 {
		observability.RecordAlertDelivered(d.now().Unix())
	}
	d.logger.WithFields(logrus.Fields{
		"signature": trade.Signature,
		"address":   trade.TrackedAddress,
		"delivered": report.Count(domain.DeliveryDelivered),
		"duplicate": report.Count(domain.DeliveryDuplicate),
		"failed":    report.Count(domain.DeliveryFailed),
	}).Debug("fan-out complete")

	return report, nil
}

// eligible fills the skip outcomes of report and returns the bindings to send to.
func (d *Deliverer) eligible(ctx context.Context, signature string, bindings []domain.SubscriberBinding, report *domain.DeliveryReport) ([]pending, error) {
	settings := make(map[int64]*domain.SubscriberSettings)
	var toSend []pending

	for i, b := range bindings {
		report.Outcomes[i].SubscriberID = b.SubscriberID

		if !b.Active {
			report.Outcomes[i].Status = domain.DeliveryInactive
			continue
		}

		s, ok := settings[b.SubscriberID]
		if !ok {
			var err error
			s, err = d.registry.GetSettings(ctx, b.SubscriberID)
			switch {
			case errors.Is(err, storage.ErrNotFound):
				s = nil
			case err != nil:
				return nil, fmt.Errorf("get settings for %d: %w", b.SubscriberID, err)
			}
			settings[b.SubscriberID] = s
		}
		if s == nil || !s.AlertsEnabled {
			report.Outcomes[i].Status = domain.DeliveryDisabled
			continue
		}

		delivered, err := d.dedup.IsDelivered(ctx, b.SubscriberID, signature)
		if err != nil {
			return nil, fmt.Errorf("check delivered for %d: %w", b.SubscriberID, err)
		}
		if delivered {
			report.Outcomes[i].Status = domain.DeliveryDuplicate
			continue
		}

		toSend = append(toSend, pending{index: i, binding: b})
	}
	return toSend, nil
}

func (d *Deliverer) send(ctx context.Context, trade domain.ClassifiedTrade, b domain.SubscriberBinding) domain.DeliveryOutcome {
	outcome := domain.DeliveryOutcome{SubscriberID: b.SubscriberID}

	if err := d.sem.Acquire(ctx, 1); err != nil {
		outcome.Status = domain.DeliveryFailed
		outcome.Err = err
		return outcome
	}
	start := time.Now()
	err := d.sender.Send(ctx, b.SubscriberID, render.Render(trade, b.Label))
	d.sem.Release(1)
	observability.ObserveSendLatency(d.sender.Name(), time.Since(start).Seconds())

	log := d.logger.WithFields(logrus.Fields{"subscriber": b.SubscriberID, "signature": trade.Signature})
	if err != nil {
		log.WithError(err).Warn("send failed")
		outcome.Status = domain.DeliveryFailed
		outcome.Err = err
		return outcome
	}

	outcome.Status = domain.DeliveryDelivered
	if err := d.dedup.MarkDelivered(context.WithoutCancel(ctx), b.SubscriberID, trade.Signature); err != nil {
		log.WithError(err).Error("alert sent but marker not written")
		outcome.MarkErr = err
	}
	return outcome
}
