package realtime

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qr-attendance/backend/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type loopbackBus struct {
	handler   func(event string, payload []byte)
	published int
	failWith  error
}

func (b *loopbackBus) PublishFeedEvent(event string, payload []byte) error {
	if b.failWith != nil {
		return b.failWith
	}
	b.published++
	if b.handler != nil {
		b.handler(event, payload)
	}
	return nil
}

func (b *loopbackBus) SubscribeFeed(handler func(event string, payload []byte)) (func(), error) {
	b.handler = handler
	return func() { b.handler = nil }, nil
}

func newTestClient(hub *Hub, id string) *Client {
	c := &Client{ID: id, hub: hub, send: make(chan WSMessage, 4)}
	hub.Register(c)
	return c
}

func TestHub_LocalBroadcast(t *testing.T) {
	hub := NewHub(nil, nil)
	a := newTestClient(hub, "a")
	b := newTestClient(hub, "b")
	assert.Equal(t, 2, hub.ClientCount())

	hub.AttendanceRecorded(models.AttendanceRecord{ID: 7, EventName: "Conference"})

	for _, c := range []*Client{a, b} {
		msg := <-c.send
		assert.Equal(t, EventAttendanceRecorded, msg.Event)
		var rec models.AttendanceRecord
		require.NoError(t, json.Unmarshal(msg.Data, &rec))
		assert.Equal(t, int64(7), rec.ID)
	}

	hub.Unregister(a)
	assert.Equal(t, 1, hub.ClientCount())
}

func TestHub_PublishThroughSubscriberDeliversOnce(t *testing.T) {
	bus := &loopbackBus{}
	hub := NewHub(nil, bus)
	require.NoError(t, hub.Subscribe(bus))
	c := newTestClient(hub, "a")

	hub.AttendanceRecorded(models.AttendanceRecord{ID: 1})

	assert.Equal(t, 1, bus.published)
	assert.Len(t, c.send, 1)

	hub.Close()
	assert.Nil(t, bus.handler)
}

func TestHub_PublishFailureFallsBackToLocal(t *testing.T) {
	bus := &loopbackBus{failWith: errors.New("redis down")}
	hub := NewHub(zap.NewNop(), bus)
	require.NoError(t, hub.Subscribe(bus))
	c := newTestClient(hub, "a")

	hub.AttendanceRecorded(models.AttendanceRecord{ID: 1})
	assert.Len(t, c.send, 1)
}

func TestHub_FullBufferSkipsClient(t *testing.T) {
	hub := NewHub(nil, nil)
	c := &Client{ID: "slow", hub: hub, send: make(chan WSMessage, 1)}
	hub.Register(c)

	hub.Broadcast("x", map[string]int{"n": 1})
	hub.Broadcast("x", map[string]int{"n": 2})
	assert.Len(t, c.send, 1)
}

func TestServeWs_StreamsRecords(t *testing.T) {
	hub := NewHub(nil, nil)
	r := gin.New()
	r.GET("/ws/attendance", ServeWs(hub, zap.NewNop()))
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/attendance"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.AttendanceRecorded(models.AttendanceRecord{ID: 3, FirstName: "Ada"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, EventAttendanceRecorded, msg.Event)
	assert.Contains(t, string(msg.Data), `"first_name":"Ada"`)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
