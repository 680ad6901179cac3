// Package realtime provides the room-based dashboard fanout: a per-process
// websocket hub bridged across server processes by a redis backplane.
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/observability/logging"
)

// Room name builders. Memberships are session-scoped: they exist only while
// the connection is open.
func TenantRoom(tenantID string) string { return "tenant:" + tenantID }
func UserRoom(userID string) string     { return "user:" + userID }

// envelope is the backplane wire format. Every emit crosses the backplane,
// including the emitting process's own copy, so each connected client gets
// exactly one delivery per emit regardless of which process it hangs off.
type envelope struct {
	Room    string          `json:"room"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// serverMessage is the frame pushed to dashboard clients.
type serverMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Hub manages connected dashboard clients and their room memberships for
// one server process. It is an explicit handle injected wherever emits
// happen; there is no process-wide singleton.
type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]map[*Client]bool
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client

	backplane *Backplane
	logger    *logging.ChanneledLogger
}

// NewHub creates a hub. backplane may be nil, in which case emits are
// delivered to local clients only (single-process mode).
func NewHub(backplane *Backplane, logger *logging.ChanneledLogger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		backplane:  backplane,
		logger:     logger,
	}
}

// Run starts the hub's registration loop and the backplane subscription.
// It should be run as a goroutine; it exits when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	if h.backplane != nil {
		go h.backplane.Subscribe(ctx, h.deliverEnvelope)
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Realtime().Info("Client connected", "clientId", client.ID, "userId", client.UserID)

		case client := <-h.unregister:
			h.removeClient(client)
			h.logger.Realtime().Info("Client disconnected", "clientId", client.ID)

		case <-ctx.Done():
			return
		}
	}
}

// Register queues a client for registration.
func (h *Hub) Register(client *Client) { h.register <- client }

// Unregister queues a client for removal. All of its room memberships are
// dropped implicitly.
func (h *Hub) Unregister(client *Client) { h.unregister <- client }

// JoinRoom adds a client to a room.
func (h *Hub) JoinRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][client] = true
	client.rooms[room] = true
}

// LeaveRoom removes a client from a room.
func (h *Hub) LeaveRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropMembership(client, room)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	for room := range client.rooms {
		h.dropMembership(client, room)
	}
	close(client.Send)
}

// dropMembership must be called with h.mu held.
func (h *Hub) dropMembership(client *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(client.rooms, room)
}

// Emit broadcasts an event to every member of a room across all server
// processes. Delivery is best-effort: there is no acknowledgement or
// replay, and a disconnected client misses the window. A backplane publish
// failure degrades to local-only delivery.
func (h *Hub) Emit(room, event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		h.logger.Realtime().Error("Failed to marshal fanout payload",
			"room", room, "event", event, "error", err.Error())
		return
	}

	env := envelope{Room: room, Event: event, Payload: raw}

	if h.backplane != nil {
		data, err := json.Marshal(env)
		if err == nil {
			if err := h.backplane.Publish(context.Background(), data); err == nil {
				return
			}
			h.logger.Realtime().Error("Backplane publish failed, delivering locally",
				"room", room, "event", event)
		}
	}

	h.deliverLocal(env)
}

// deliverEnvelope handles a raw backplane frame.
func (h *Hub) deliverEnvelope(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		h.logger.Realtime().Error("Malformed backplane envelope", "error", err.Error())
		return
	}
	h.deliverLocal(env)
}

// deliverLocal pushes the event to local members of the room. Slow clients
// whose send buffers are full drop the message rather than stall the hub.
func (h *Hub) deliverLocal(env envelope) {
	message, err := json.Marshal(serverMessage{Event: env.Event, Data: env.Payload})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[env.Room] {
		select {
		case client.Send <- message:
		default:
		}
	}
}

// EmitOrderCreated notifies a tenant's dashboards of a new order.
func (h *Hub) EmitOrderCreated(tenantID string, payload any) {
	h.Emit(TenantRoom(tenantID), "order:created", payload)
}

// EmitOrderUpdated notifies a tenant's dashboards of a status change, and
// additionally the customer's personal room when customerID is set.
func (h *Hub) EmitOrderUpdated(tenantID, customerID string, payload any) {
	h.Emit(TenantRoom(tenantID), "order:updated", payload)
	if customerID != "" {
		h.Emit(UserRoom(customerID), "order:updated", payload)
	}
}

// EmitMetricsUpdate pushes a fresh metrics snapshot to a tenant's dashboards.
func (h *Hub) EmitMetricsUpdate(tenantID string, payload any) {
	h.Emit(TenantRoom(tenantID), "metrics:update", payload)
}

// RoomSize reports local membership of a room. Diagnostic surface.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// handleControl applies one client->server control frame. Unknown events
// and malformed frames are ignored; an unauthenticated dashboard must keep
// functioning, so authorization failures are silent no-ops.
func (h *Hub) handleControl(client *Client, raw []byte) {
	var frame struct {
		Event string `json:"event"`
		Data  string `json:"data"`
	}
	if err := json.Unmarshal(raw, &frame); err != nil {
		h.logger.Realtime().Debug("Malformed client frame", "clientId", client.ID)
		return
	}
	if frame.Data == "" {
		return
	}

	switch frame.Event {
	case "join:tenant":
		room := TenantRoom(frame.Data)
		h.JoinRoom(client, room)
		client.sendJoined(room, "Successfully joined tenant room")

	case "join:user":
		// Joining a personal room requires the connection's verified
		// identity to match the requested user id.
		if client.UserID == "" || client.UserID != frame.Data {
			h.logger.Realtime().Warn("Rejected user room join",
				"clientId", client.ID, "requested", frame.Data)
			return
		}
		room := UserRoom(frame.Data)
		h.JoinRoom(client, room)
		client.sendJoined(room, "Successfully joined user room")

	case "leave:tenant":
		h.LeaveRoom(client, TenantRoom(frame.Data))

	default:
		h.logger.Realtime().Debug("Unknown client event",
			"clientId", client.ID, "event", frame.Event)
	}
}

func (c *Client) sendJoined(room, message string) {
	frame, err := json.Marshal(serverMessage{
		Event: "joined",
		Data:  map[string]string{"room": room, "message": message},
	})
	if err != nil {
		return
	}
	select {
	case c.Send <- frame:
	default:
	}
}
