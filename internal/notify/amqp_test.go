package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whale-alerts/internal/domain"
	"whale-alerts/internal/idhash"
	"whale-alerts/internal/render"
)

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	got []published
	err error
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.got = append(c.got, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "alert.buy.42", RoutingKey("BUY", 42))
	assert.Equal(t, "alert.sell.-1001234", RoutingKey("SELL", -1001234))
}

func TestAMQPSender_Send(t *testing.T) {
	ch := &fakeChannel{}
	sender := newAMQPSender(ch, "")
	sender.now = func() time.Time { return time.Unix(1_760_000_000, 0) }

	age := 2 * time.Hour
	msg := render.Message{
		Text:  "text",
		Label: "fund",
		Trade: domain.ClassifiedTrade{
			Direction:   domain.DirectionSell,
			Mint:        "mint",
			Symbol:      "WIF",
			TokenAmount: decimal.NewFromInt(1000),
			InputAsset:  domain.InputNative,
			InputAmount: decimal.RequireFromString("5.5"),
			ValueUSD:    decimal.NewFromInt(825),
			TokenAge:    &age,
			Signature:   "sig",
		},
	}

	require.NoError(t, sender.Send(context.Background(), 7, msg))
	require.Len(t, ch.got, 1)

	p := ch.got[0]
	assert.Equal(t, DefaultExchange, p.exchange)
	assert.Equal(t, "alert.sell.7", p.key)
	assert.Equal(t, "application/json", p.msg.ContentType)
	assert.Equal(t, amqp.Persistent, p.msg.DeliveryMode)
	assert.Equal(t, idhash.ComputeAlertID(7, "sig"), p.msg.MessageId)
	assert.NotEmpty(t, p.msg.CorrelationId)

	var alert Alert
	require.NoError(t, json.Unmarshal(p.msg.Body, &alert))
	assert.Equal(t, "SELL", alert.Direction)
	assert.Equal(t, "fund", alert.Label)
	assert.True(t, alert.InputAmount.Equal(decimal.RequireFromString("5.5")))
	require.NotNil(t, alert.TokenAgeSecs)
	assert.Equal(t, int64(7200), *alert.TokenAgeSecs)
	assert.Nil(t, alert.MarketCapUSD)
}

func TestAMQPSender_PublishError(t *testing.T) {
	sender := newAMQPSender(&fakeChannel{err: errors.New("channel closed")}, "x")
	err := sender.Send(context.Background(), 1, render.Message{})
	assert.ErrorContains(t, err, "channel closed")
}
