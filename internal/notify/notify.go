// Package notify delivers rendered alerts to subscribers.
package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"whale-alerts/internal/render"
)

// Sender delivers one message to one subscriber. Implementations must be safe
// for concurrent use.
type Sender interface {
	Name() string
	Send(ctx context.Context, subscriberID int64, msg render.Message) error
}

// LogSender writes alerts to the log instead of a transport. It backs dry runs.
type LogSender struct {
	logger logrus.FieldLogger
}

// NewLogSender creates a LogSender. A nil logger uses the standard logger.
func NewLogSender(logger logrus.FieldLogger) *LogSender {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogSender{logger: logger.WithField("component", "notify_log")}
}

// Name implements Sender.
func (s *LogSender) Name() string { return "log" }

// Send implements Sender.
func (s *LogSender) Send(_ context.Context, subscriberID int64, msg render.Message) error {
	s.logger.WithFields(logrus.Fields{
		"subscriber": subscriberID,
		"signature":  msg.Trade.Signature,
		"direction":  msg.Trade.Direction,
		"symbol":     msg.Trade.Symbol,
		"value_usd":  msg.Trade.ValueUSD.StringFixed(2),
	}).Info("alert")
	return nil
}
