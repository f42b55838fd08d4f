package domain

import "time"

// JournalEntry is one accepted trade with the tally of its fan-out.
type JournalEntry struct {
	ID         string // deterministic, see idhash.TradeID
	Trade      ClassifiedTrade
	Delivered  int
	Duplicate  int
	Skipped    int // inactive + disabled
	Failed     int
	RecordedAt time.Time
}

// NewJournalEntry tallies report into an entry for trade.
func NewJournalEntry(id string, trade ClassifiedTrade, report *DeliveryReport, now time.Time) *JournalEntry {
	e := &JournalEntry{ID: id, Trade: trade, RecordedAt: now}
	if report == nil {
		return e
	}
	e.Delivered = report.Count(DeliveryDelivered)
	e.Duplicate = report.Count(DeliveryDuplicate)
	e.Skipped = report.Count(DeliveryInactive) + report.Count(DeliveryDisabled)
	e.Failed = report.Count(DeliveryFailed)
	return e
}
