package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// logsNode emulates a node: it confirms every logsSubscribe with an increasing
// subscription id and then pushes one notification for it.
func logsNode(t *testing.T, subIDs *atomic.Int64, dropAfterFirst bool) *httptest.Server {
	t.Helper()
	var conns atomic.Int32
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()
		connNo := conns.Add(1)

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			var req wsRequest
			if err := json.Unmarshal(msg, &req); err != nil {
				continue
			}
			if req.Method != "logsSubscribe" {
				t.Errorf("expected logsSubscribe, got %s", req.Method)
				continue
			}
			subID := subIDs.Add(1)
			c.WriteJSON(wsSubscribeResponse{JSONRPC: "2.0", ID: req.ID, Result: subID})
			c.WriteJSON(wsNotification{
				JSONRPC: "2.0",
				Method:  "logsNotification",
				Params: &wsNotificationParams{
					Subscription: subID,
					Result: wsNotificationResult{
						Context: &wsContext{Slot: 100 + subID},
						Value:   wsLogsValue{Signature: "sig-" + string(rune('a'+subID-1)), Logs: []string{"Program log: x"}},
					},
				},
			})
			if dropAfterFirst && connNo == 1 {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWSClient_SubscribeLogs(t *testing.T) {
	var subIDs atomic.Int64
	server := logsNode(t, &subIDs, false)
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), nil)
	require.NoError(t, err)
	defer client.Close()

	ch, err := client.SubscribeLogs(ctx, LogsFilter{Mentions: []string{"whale"}})
	require.NoError(t, err)

	select {
	case n := <-ch:
		assert.Equal(t, "sig-a", n.Signature)
		assert.Equal(t, int64(101), n.Slot)
		assert.Len(t, n.Logs, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("no notification received")
	}
}

func TestWSClient_ResubscribesAfterReconnect(t *testing.T) {
	var subIDs atomic.Int64
	server := logsNode(t, &subIDs, true)
	defer server.Close()

	cfg := DefaultWSConfig()
	cfg.ReconnectDelay = 10 * time.Millisecond
	cfg.MaxReconnectDelay = 50 * time.Millisecond

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), &cfg)
	require.NoError(t, err)
	defer client.Close()

	ch, err := client.SubscribeLogs(ctx, LogsFilter{Mentions: []string{"whale"}})
	require.NoError(t, err)

	var got []string
	deadline := time.After(3 * time.Second)
	for len(got) < 2 {
		select {
		case n := <-ch:
			got = append(got, n.Signature)
		case <-deadline:
			t.Fatalf("expected notifications on both connections, got %v", got)
		}
	}
	assert.Equal(t, []string{"sig-a", "sig-b"}, got)
}

func TestWSClient_CloseClosesChannels(t *testing.T) {
	var subIDs atomic.Int64
	server := logsNode(t, &subIDs, false)
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), nil)
	require.NoError(t, err)

	ch, err := client.SubscribeLogs(ctx, LogsFilter{Mentions: []string{"whale"}})
	require.NoError(t, err)
	<-ch

	require.NoError(t, client.Close())
	_, open := <-ch
	assert.False(t, open)

	_, err = client.SubscribeLogs(ctx, LogsFilter{})
	assert.Error(t, err)
	assert.NoError(t, client.Close(), "second close is a no-op")
}

func TestWSClient_DialError(t *testing.T) {
	_, err := NewWSClient(context.Background(), "ws://127.0.0.1:1", nil)
	assert.Error(t, err)
}
