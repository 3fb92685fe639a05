package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/qr-attendance/backend/internal/models"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60

	// EventAttendanceRecorded carries a newly stored models.AttendanceRecord.
	EventAttendanceRecorded = "attendance_recorded"
)

// Publisher publishes feed events to other instances.
type Publisher interface {
	PublishFeedEvent(event string, payload []byte) error
}

// Subscriber delivers feed events published by any instance.
type Subscriber interface {
	SubscribeFeed(handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub keeps the connected listing clients and fans feed events out to them.
type Hub struct {
	clients map[string]*Client
	mu      sync.RWMutex
	logger  *zap.Logger
	pub     Publisher
	cancel  func()
}

// NewHub creates a hub. With a nil publisher events are only delivered locally.
func NewHub(logger *zap.Logger, pub Publisher) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
		pub:     pub,
	}
}

// Subscribe starts delivering events from sub to local clients. Once subscribed,
// Publish goes through the subscriber only so local clients are not served twice.
func (h *Hub) Subscribe(sub Subscriber) error {
	cancel, err := sub.SubscribeFeed(func(event string, payload []byte) {
		h.Broadcast(event, json.RawMessage(payload))
	})
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.cancel = cancel
	h.mu.Unlock()
	return nil
}

// Close stops the subscription, if any.
func (h *Hub) Close() {
	h.mu.Lock()
	cancel := h.cancel
	h.cancel = nil
	h.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Register adds a client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("feed client connected", zap.String("client_id", c.ID))
}

// Unregister removes a client.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.ID)
	h.mu.Unlock()
	h.logger.Debug("feed client disconnected", zap.String("client_id", c.ID))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends a message to all local clients. Slow clients with a full buffer miss it.
func (h *Hub) Broadcast(event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			h.logger.Warn("marshal feed payload", zap.Error(err))
			return
		}
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// Publish delivers an event to every instance. Without Redis it is a local broadcast.
func (h *Hub) Publish(event string, payload interface{}) {
	h.mu.RLock()
	subscribed := h.cancel != nil
	h.mu.RUnlock()
	if h.pub == nil || !subscribed {
		h.Broadcast(event, payload)
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := h.pub.PublishFeedEvent(event, data); err != nil {
		h.logger.Warn("publish feed event failed, broadcasting locally", zap.Error(err))
		h.Broadcast(event, json.RawMessage(data))
	}
}

// AttendanceRecorded implements attendance.Notifier.
func (h *Hub) AttendanceRecorded(rec models.AttendanceRecord) {
	h.Publish(EventAttendanceRecorded, rec)
}
