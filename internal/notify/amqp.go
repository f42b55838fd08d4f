package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"whale-alerts/internal/idhash"
	"whale-alerts/internal/render"
)

// DefaultExchange is the topic exchange alerts are published to.
const DefaultExchange = "whale_alerts"

// publisherChannel is the part of *amqp.Channel the publisher uses.
type publisherChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSender publishes alerts as JSON to a topic exchange with routing key
// alert.<direction>.<subscriber>.
type AMQPSender struct {
	ch       publisherChannel
	exchange string
	now      func() time.Time
}

// NewAMQPSender creates a sender on an open channel.
func NewAMQPSender(ch *amqp.Channel, exchange string) *AMQPSender {
	return newAMQPSender(ch, exchange)
}

func newAMQPSender(ch publisherChannel, exchange string) *AMQPSender {
	if exchange == "" {
		exchange = DefaultExchange
	}
	return &AMQPSender{ch: ch, exchange: exchange, now: time.Now}
}

// Name implements Sender.
func (s *AMQPSender) Name() string { return "amqp" }

// Alert is the published message body.
type Alert struct {
	AlertID        string           `json:"alert_id"`
	SubscriberID   int64            `json:"subscriber_id"`
	Label          string           `json:"label"`
	Direction      string           `json:"direction"`
	TrackedAddress string           `json:"tracked_address"`
	Mint           string           `json:"mint"`
	Symbol         string           `json:"symbol"`
	TokenAmount    decimal.Decimal  `json:"token_amount"`
	InputAsset     string           `json:"input_asset"`
	InputAmount    decimal.Decimal  `json:"input_amount"`
	ValueUSD       decimal.Decimal  `json:"value_usd"`
	MarketCapUSD   *decimal.Decimal `json:"market_cap_usd,omitempty"`
	TokenAgeSecs   *int64           `json:"token_age_seconds,omitempty"`
	Signature      string           `json:"signature"`
	Timestamp      int64            `json:"timestamp"`
	Text           string           `json:"text"`
}

// NewAlert builds the published body for one subscriber.
func NewAlert(subscriberID int64, msg render.Message) Alert {
	t := msg.Trade
	a := Alert{
		AlertID:        idhash.ComputeAlertID(subscriberID, t.Signature),
		SubscriberID:   subscriberID,
		Label:          msg.Label,
		Direction:      string(t.Direction),
		TrackedAddress: t.TrackedAddress,
		Mint:           t.Mint,
		Symbol:         t.Symbol,
		TokenAmount:    t.TokenAmount,
		InputAsset:     string(t.InputAsset),
		InputAmount:    t.InputAmount,
		ValueUSD:       t.ValueUSD,
		MarketCapUSD:   t.MarketCapUSD,
		Signature:      t.Signature,
		Timestamp:      t.Timestamp,
		Text:           msg.Text,
	}
	if t.TokenAge != nil {
		secs := int64(t.TokenAge.Seconds())
		a.TokenAgeSecs = &secs
	}
	return a
}

// RoutingKey returns alert.<direction>.<subscriber>, e.g. alert.buy.-1001234.
func RoutingKey(direction string, subscriberID int64) string {
	return fmt.Sprintf("alert.%s.%d", strings.ToLower(direction), subscriberID)
}

// Send implements Sender.
func (s *AMQPSender) Send(ctx context.Context, subscriberID int64, msg render.Message) error {
	alert := NewAlert(subscriberID, msg)
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	err = s.ch.PublishWithContext(ctx,
		s.exchange,
		RoutingKey(alert.Direction, subscriberID),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     alert.AlertID,
			CorrelationId: uuid.NewString(),
			Timestamp:     s.now(),
			Body:          body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	return nil
}

// DialAMQP connects to url and declares the durable topic exchange.
func DialAMQP(url, exchange string) (*amqp.Connection, *amqp.Channel, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("declare exchange: %w", err)
	}
	return conn, ch, nil
}
