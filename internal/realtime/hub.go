package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// Snapshotter produces the full authoritative state for a topic. The hub
// sends it to a newly subscribed client before any deltas, because events
// published while the client was disconnected are not queued for it.
type Snapshotter func(ctx context.Context) (json.RawMessage, error)

// Client is one connected observer. Send is buffered; a slow client whose
// buffer fills has events dropped (it recovers via resubscribe + snapshot),
// never blocking the publishing staff action.
type Client struct {
	ID   string
	Send chan []byte

	mu     sync.Mutex
	topics map[Topic]bool
}

func NewClient(id string, buffer int) *Client {
	return &Client{
		ID:     id,
		Send:   make(chan []byte, buffer),
		topics: make(map[Topic]bool),
	}
}

func (c *Client) subscribed(t Topic) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.topics[t]
}

func (c *Client) setSubscribed(t Topic, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if on {
		c.topics[t] = true
	} else {
		delete(c.topics, t)
	}
}

// Hub tracks connected observers and fans committed state changes out to
// them. It implements Publisher for the service layer.
type Hub struct {
	mu           sync.RWMutex
	clients      map[string]*Client
	snapshotters map[Topic]Snapshotter
}

func NewHub() *Hub {
	return &Hub{
		clients:      make(map[string]*Client),
		snapshotters: make(map[Topic]Snapshotter),
	}
}

// SetSnapshotter registers the full-state producer for a topic. Wired at
// composition time, before any client connects.
func (h *Hub) SetSnapshotter(t Topic, fn Snapshotter) {
	h.snapshotters[t] = fn
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	close(client.Send)
}

// Subscribe sends the topic snapshot, then adds the client to the topic. The
// snapshot is enqueued BEFORE the subscribed flag flips so a concurrently
// published delta can never land in the send buffer ahead of it.
func (h *Hub) Subscribe(ctx context.Context, client *Client, t Topic) {
	defer client.setSubscribed(t, true)

	fn, ok := h.snapshotters[t]
	if !ok {
		return
	}
	state, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Str("topic", string(t)).Msg("realtime: snapshot failed")
		return
	}
	evt := Event{Topic: t, Type: EventSnapshot, EventID: "snapshot:" + client.ID, Payload: state}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	select {
	case client.Send <- data:
	default:
		log.Warn().Str("client", client.ID).Str("topic", string(t)).Msg("realtime: snapshot dropped, send buffer full")
	}
}

func (h *Hub) Unsubscribe(client *Client, t Topic) {
	client.setSubscribed(t, false)
}

// Publish fans one committed event out to every subscriber of its topic.
// Fire-and-forget: full buffers drop the message rather than block.
func (h *Hub) Publish(evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		log.Error().Err(err).Str("type", evt.Type).Msg("realtime: marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if !client.subscribed(evt.Topic) {
			continue
		}
		select {
		case client.Send <- data:
		default:
			log.Warn().Str("client", client.ID).Str("event", evt.EventID).Msg("realtime: drop event, send buffer full")
		}
	}
}

// ClientCount is exposed for the health endpoint.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SubscribeMessage is the control frame clients send over the socket.
type SubscribeMessage struct {
	Action string `json:"action"` // subscribe | unsubscribe
	Topic  string `json:"topic"`  // queue | transactions
}

// ParseSubscribe validates a raw control frame. Unknown actions or topics are
// rejected rather than ignored.
func ParseSubscribe(data []byte) (SubscribeMessage, bool) {
	var msg SubscribeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return SubscribeMessage{}, false
	}
	if msg.Action != "subscribe" && msg.Action != "unsubscribe" {
		return SubscribeMessage{}, false
	}
	if Topic(msg.Topic) != TopicQueue && Topic(msg.Topic) != TopicTransactions {
		return SubscribeMessage{}, false
	}
	return msg, true
}
