package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whale-alerts/internal/domain"
	"whale-alerts/internal/pipeline"
	"whale-alerts/internal/storage/memory"
)

type call struct {
	signature string
	address   string
}

type recordingProcessor struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (p *recordingProcessor) Process(_ context.Context, ev *domain.RawTransactionEvent, address string) (*pipeline.Outcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call{ev.Signature, address})
	return &pipeline.Outcome{}, p.err
}

func (p *recordingProcessor) snapshot() []call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]call(nil), p.calls...)
}

func swapEvent(sig string) *domain.RawTransactionEvent {
	return &domain.RawTransactionEvent{
		Signature: sig,
		FeePayer:  "relayer",
		NativeTransfers: []domain.NativeTransfer{
			{FromUserAccount: "whale", ToUserAccount: "pool", Amount: 2_000_000_000},
		},
		TokenTransfers: []domain.TokenTransfer{
			{FromUserAccount: "pool", ToUserAccount: "whale", Mint: "MintX", TokenAmount: decimal.NewFromInt(10)},
		},
	}
}

func newRegistry(t *testing.T, addrs ...string) *memory.SubscriberRegistry {
	t.Helper()
	reg := memory.NewSubscriberRegistry()
	for i, a := range addrs {
		require.NoError(t, reg.AddBinding(context.Background(), &domain.SubscriberBinding{
			SubscriberID: int64(i + 1), Address: a, Active: true,
		}))
	}
	return reg
}

func TestDispatcher_ProcessesTrackedCandidatesOnly(t *testing.T) {
	proc := &recordingProcessor{}
	d := NewDispatcher(newRegistry(t, "whale"), proc, DispatcherOptions{Workers: 2})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.True(t, d.Submit(SourceWebhook, swapEvent("sig1")))

	assert.Eventually(t, func() bool { return len(proc.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []call{{"sig1", "whale"}}, proc.snapshot())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestDispatcher_ProcessErrorDoesNotStopOtherAddresses(t *testing.T) {
	proc := &recordingProcessor{err: errors.New("boom")}
	d := NewDispatcher(newRegistry(t, "whale", "pool"), proc, DispatcherOptions{Workers: 1})

	d.dispatch(context.Background(), swapEvent("sig1"))

	assert.Equal(t, []call{{"sig1", "whale"}, {"sig1", "pool"}}, proc.snapshot())
}

func TestDispatcher_SkipsMissingSignature(t *testing.T) {
	proc := &recordingProcessor{}
	d := NewDispatcher(newRegistry(t, "whale"), proc, DispatcherOptions{})

	d.dispatch(context.Background(), swapEvent(""))
	d.dispatch(context.Background(), nil)

	assert.Empty(t, proc.snapshot())
}

func TestDispatcher_SubmitRejectsWhenFull(t *testing.T) {
	d := NewDispatcher(newRegistry(t), &recordingProcessor{}, DispatcherOptions{QueueSize: 1})

	assert.True(t, d.Submit(SourceWebhook, swapEvent("a")))
	assert.False(t, d.Submit(SourceWebhook, swapEvent("b")))
	assert.Equal(t, int64(1), d.Dropped())
}
