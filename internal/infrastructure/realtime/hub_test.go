package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/observability/logging"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func quietLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	cfg := logging.DefaultLoggerConfig()
	cfg.DefaultLevel = slog.LevelError
	logger, err := logging.NewChanneledLogger(cfg)
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return logger
}

// newTestClient builds a client without a websocket connection; tests read
// frames straight off Send.
func newTestClient(id, userID string) *Client {
	return &Client{
		ID:     id,
		UserID: userID,
		Send:   make(chan []byte, 8),
		rooms:  make(map[string]bool),
	}
}

func attach(h *Hub, c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	c.hub = h
}

func recvFrame(t *testing.T, c *Client) serverMessage {
	t.Helper()
	select {
	case raw := <-c.Send:
		var msg serverMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no frame delivered")
		return serverMessage{}
	}
}

func assertNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.Send:
		t.Fatalf("unexpected frame: %s", raw)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestJoinAndLeaveRoom(t *testing.T) {
	h := NewHub(nil, quietLogger(t))
	c := newTestClient("c1", "")
	attach(h, c)

	h.JoinRoom(c, TenantRoom("acme"))
	if got := h.RoomSize(TenantRoom("acme")); got != 1 {
		t.Errorf("room size = %d, want 1", got)
	}

	h.LeaveRoom(c, TenantRoom("acme"))
	if got := h.RoomSize(TenantRoom("acme")); got != 0 {
		t.Errorf("room size after leave = %d, want 0", got)
	}
}

func TestEmitDeliversToRoomMembersOnly(t *testing.T) {
	h := NewHub(nil, quietLogger(t))
	member := newTestClient("c1", "")
	other := newTestClient("c2", "")
	attach(h, member)
	attach(h, other)
	h.JoinRoom(member, TenantRoom("acme"))
	h.JoinRoom(other, TenantRoom("globex"))

	h.EmitOrderCreated("acme", map[string]string{"orderId": "o1"})

	frame := recvFrame(t, member)
	if frame.Event != "order:created" {
		t.Errorf("event = %q, want order:created", frame.Event)
	}
	assertNoFrame(t, other)
}

func TestEmitOrderUpdatedReachesCustomerRoom(t *testing.T) {
	h := NewHub(nil, quietLogger(t))
	customer := newTestClient("c1", "user-7")
	attach(h, customer)
	h.JoinRoom(customer, UserRoom("user-7"))

	h.EmitOrderUpdated("acme", "user-7", map[string]string{"status": "ready"})

	frame := recvFrame(t, customer)
	if frame.Event != "order:updated" {
		t.Errorf("event = %q, want order:updated", frame.Event)
	}
}

func TestEmitDropsWhenClientBufferFull(t *testing.T) {
	h := NewHub(nil, quietLogger(t))
	slow := newTestClient("c1", "")
	slow.Send = make(chan []byte) // no buffer, nobody draining
	attach(h, slow)
	h.JoinRoom(slow, TenantRoom("acme"))

	done := make(chan struct{})
	go func() {
		h.EmitOrderCreated("acme", map[string]string{"orderId": "o1"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("emit blocked on a slow client")
	}
}

func TestHandleControlJoinTenant(t *testing.T) {
	h := NewHub(nil, quietLogger(t))
	c := newTestClient("c1", "")
	attach(h, c)

	h.handleControl(c, []byte(`{"event":"join:tenant","data":"acme"}`))

	if h.RoomSize(TenantRoom("acme")) != 1 {
		t.Error("client not in tenant room")
	}
	if frame := recvFrame(t, c); frame.Event != "joined" {
		t.Errorf("ack event = %q, want joined", frame.Event)
	}
}

func TestHandleControlJoinUserRequiresMatchingIdentity(t *testing.T) {
	tests := []struct {
		name     string
		userID   string
		joinAs   string
		wantJoin bool
	}{
		{"anonymous denied", "", "user-7", false},
		{"mismatch denied", "user-9", "user-7", false},
		{"match allowed", "user-7", "user-7", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHub(nil, quietLogger(t))
			c := newTestClient("c1", tt.userID)
			attach(h, c)

			h.handleControl(c, []byte(`{"event":"join:user","data":"`+tt.joinAs+`"}`))

			joined := h.RoomSize(UserRoom(tt.joinAs)) == 1
			if joined != tt.wantJoin {
				t.Errorf("joined = %v, want %v", joined, tt.wantJoin)
			}
			if !tt.wantJoin {
				assertNoFrame(t, c)
			}
		})
	}
}

func TestHandleControlLeaveTenant(t *testing.T) {
	h := NewHub(nil, quietLogger(t))
	c := newTestClient("c1", "")
	attach(h, c)
	h.JoinRoom(c, TenantRoom("acme"))

	h.handleControl(c, []byte(`{"event":"leave:tenant","data":"acme"}`))

	if h.RoomSize(TenantRoom("acme")) != 0 {
		t.Error("client still in tenant room")
	}
}

func TestHandleControlToleratesGarbage(t *testing.T) {
	h := NewHub(nil, quietLogger(t))
	c := newTestClient("c1", "")
	attach(h, c)

	h.handleControl(c, []byte(`not json`))
	h.handleControl(c, []byte(`{"event":"join:tenant","data":""}`))
	h.handleControl(c, []byte(`{"event":"self:destruct","data":"now"}`))

	h.mu.RLock()
	roomCount := len(h.rooms)
	h.mu.RUnlock()
	if roomCount != 0 {
		t.Errorf("rooms = %d, want 0", roomCount)
	}
}

func TestRemoveClientDropsMemberships(t *testing.T) {
	h := NewHub(nil, quietLogger(t))
	c := newTestClient("c1", "user-7")
	attach(h, c)
	h.JoinRoom(c, TenantRoom("acme"))
	h.JoinRoom(c, UserRoom("user-7"))

	h.removeClient(c)

	if h.RoomSize(TenantRoom("acme")) != 0 || h.RoomSize(UserRoom("user-7")) != 0 {
		t.Error("memberships survived removal")
	}
	if _, ok := <-c.Send; ok {
		t.Error("send channel not closed")
	}
}

func TestBackplaneBridgesProcesses(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	logger := quietLogger(t)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	// Two hubs standing in for two server processes on one backplane channel.
	hubA := NewHub(NewBackplane(client, "realtime:test", logger), logger)
	hubB := NewHub(NewBackplane(client, "realtime:test", logger), logger)
	go hubA.Run(ctx)
	go hubB.Run(ctx)

	// Give both backplane subscriptions time to establish.
	time.Sleep(100 * time.Millisecond)

	local := newTestClient("a1", "")
	remote := newTestClient("b1", "")
	hubA.Register(local)
	hubB.Register(remote)
	time.Sleep(50 * time.Millisecond)
	hubA.JoinRoom(local, TenantRoom("acme"))
	hubB.JoinRoom(remote, TenantRoom("acme"))

	hubA.EmitMetricsUpdate("acme", map[string]int{"totalOrders": 3})

	// Both sides receive it, and the emitting process's client receives
	// exactly one copy (delivery rides the backplane, not a local shortcut).
	if frame := recvFrame(t, remote); frame.Event != "metrics:update" {
		t.Errorf("remote event = %q, want metrics:update", frame.Event)
	}
	if frame := recvFrame(t, local); frame.Event != "metrics:update" {
		t.Errorf("local event = %q, want metrics:update", frame.Event)
	}
	assertNoFrame(t, local)
}
