package bridge

import (
	"math/rand"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zappabad/moodmarket/internal/session"
	"github.com/zappabad/moodmarket/internal/trader"
	"github.com/zappabad/moodmarket/internal/trader/runner"
)

type backend struct {
	*session.Session
	*runner.Runner
}

func setup(t *testing.T) (*session.Session, *Hub, *websocket.Conn) {
	t.Helper()
	cfg := session.DefaultConfig()
	cfg.HorizonDays = 10
	sess, err := session.New(cfg, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	t.Cleanup(sess.Close)

	r := runner.NewRunner(runner.DefaultConfig(), sess)
	t.Cleanup(r.Close)

	hub := NewHub(DefaultConfig(), backend{sess, r}, zaptest.NewLogger(t))
	sess.AddNotifier(hub)

	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	t.Cleanup(hub.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return sess, hub, conn
}

func TestClientReceivesSnapshots(t *testing.T) {
	sess, hub, conn := setup(t)

	var first Snapshot
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, TypeSnapshot, first.Type)
	assert.Equal(t, "2015-11-24", first.Date)
	assert.Equal(t, "100000.00", first.Cash)
	require.Len(t, first.Quotes, 8)
	assert.Equal(t, "AAPL", first.Quotes[0].Symbol)
	assert.Equal(t, 1, hub.Clients())

	_, err := sess.TriggerRecession()
	require.NoError(t, err)

	var shock Snapshot
	require.NoError(t, conn.ReadJSON(&shock))
	assert.Equal(t, string(session.ReasonShock), shock.Reason)
	require.NotNil(t, shock.Event)
	assert.Equal(t, "recession", shock.Event.Kind)
	for _, q := range shock.Quotes {
		assert.Equal(t, 1.0, q.Price)
	}
}

func TestClientSendsSignals(t *testing.T) {
	sess, _, conn := setup(t)
	var first Snapshot
	require.NoError(t, conn.ReadJSON(&first))

	require.NoError(t, sess.Select("AAPL"))
	var sel Snapshot
	require.NoError(t, conn.ReadJSON(&sel))
	assert.Equal(t, "AAPL", sel.Selected)

	require.NoError(t, conn.WriteJSON(trader.Signal{Kind: trader.SignalBuy, Confidence: 0.9}))

	// The trade snapshot and the signal result can arrive in either order.
	var gotTrade, gotResult bool
	for !(gotTrade && gotResult) {
		var raw map[string]any
		require.NoError(t, conn.ReadJSON(&raw))
		switch raw["type"] {
		case TypeSnapshot:
			assert.Equal(t, string(session.ReasonTrade), raw["reason"])
			gotTrade = true
		case TypeSignal:
			assert.Equal(t, "executed", raw["outcome"])
			gotResult = true
		}
	}
	assert.Equal(t, int64(1), sess.Holding("AAPL"))
}

func TestMalformedFramesAreReported(t *testing.T) {
	_, _, conn := setup(t)
	var first Snapshot
	require.NoError(t, conn.ReadJSON(&first))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"kind":}`)))
	var msg ErrorMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, TypeError, msg.Type)

	require.NoError(t, conn.WriteJSON(map[string]any{"kind": "wink", "confidence": 1}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Contains(t, msg.Message, "unknown signal kind")
}
