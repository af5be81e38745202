package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wooahyo/internal/logger"
	"github.com/wooahyo/internal/service"
)

type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*Client]struct{}
	total    int
	maxConns int

	rooms    *service.Rooms
	messages *service.Messages

	// relay fans events out to other instances; nil means single-instance.
	relay *Relay

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub(rooms *service.Rooms, messages *service.Messages, maxConns int) *Hub {
	if maxConns <= 0 {
		maxConns = 10000
	}
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		maxConns:   maxConns,
		rooms:      rooms,
		messages:   messages,
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
	}
}

// SetRelay attaches the cross-instance relay. Must be called before Run.
func (h *Hub) SetRelay(r *Relay) {
	h.relay = r
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) shutdown() {
	// Collect all clients under the lock, do NOT perform I/O under mutex.
	h.mu.Lock()
	allClients := make([]*Client, 0, h.total)
	for _, clients := range h.clients {
		for c := range clients {
			allClients = append(allClients, c)
		}
	}
	h.clients = make(map[string]map[*Client]struct{})
	h.total = 0
	h.mu.Unlock()

	// Close connections outside the lock (network I/O).
	for _, c := range allClients {
		c.Close()
	}
	for _, c := range allClients {
		c.Wait()
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	if h.total >= h.maxConns {
		h.mu.Unlock()
		logger.Errorf("ws connection limit reached (%d), rejecting user=%s", h.maxConns, c.userID)
		c.Close()
		return
	}
	if _, ok := h.clients[c.userID]; !ok {
		h.clients[c.userID] = make(map[*Client]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
	h.total++
	h.mu.Unlock()
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	clients, ok := h.clients[c.userID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, exists := clients[c]; !exists {
		h.mu.Unlock()
		return
	}
	delete(clients, c)
	h.total--
	if len(clients) == 0 {
		delete(h.clients, c.userID)
	}
	h.mu.Unlock()

	// Network I/O outside the lock.
	c.Close()
}

// HandleMessage dispatches incoming WebSocket messages.
func (h *Hub) HandleMessage(ctx context.Context, c *Client, msg IncomingMessage) {
	switch msg.Type {
	case EventNewMessage:
		h.handleNewMessage(ctx, c, msg)
	case EventTyping:
		h.handleTyping(ctx, c, msg)
	case EventRead:
		h.handleRead(ctx, c, msg)
	default:
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "unknown event type"})
	}
}

func (h *Hub) handleNewMessage(ctx context.Context, c *Client, msg IncomingMessage) {
	defer logger.DeferLogDuration("ws.handleNewMessage", time.Now())()
	if msg.RoomID == "" {
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "room_id required"})
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var clientKey *string
	if msg.ClientKey != "" {
		clientKey = &msg.ClientKey
	}

	m, err := h.messages.Send(ctx, msg.RoomID, c.userID, msg.Content, clientKey)
	if err != nil {
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: userFacing(err)})
		return
	}

	room, err := h.rooms.Get(ctx, msg.RoomID, c.userID)
	if err != nil {
		logger.Errorf("ws load room %s: %v", msg.RoomID, err)
		return
	}
	h.Broadcast(ctx, msg.RoomID, []string{room.BuyerID, room.SellerID},
		OutgoingMessage{Type: EventNewMessage, Payload: m})
}

func (h *Hub) handleTyping(ctx context.Context, c *Client, msg IncomingMessage) {
	if msg.RoomID == "" {
		return
	}
	// At most one typing broadcast per room per interval; extras are dropped.
	if !c.allowTyping(msg.RoomID) {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	room, err := h.rooms.Get(ctx, msg.RoomID, c.userID)
	if err != nil {
		return
	}
	peer := room.PeerOf(c.userID)
	h.Broadcast(ctx, msg.RoomID, []string{peer},
		OutgoingMessage{Type: EventTyping, Payload: TypingPayload{RoomID: msg.RoomID, UserID: c.userID}})
}

func (h *Hub) handleRead(ctx context.Context, c *Client, msg IncomingMessage) {
	defer logger.DeferLogDuration("ws.handleRead", time.Now())()
	if msg.RoomID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	room, err := h.rooms.Get(ctx, msg.RoomID, c.userID)
	if err != nil {
		return
	}
	if err := h.rooms.MarkRead(ctx, msg.RoomID, c.userID); err != nil {
		logger.Errorf("ws mark read room=%s user=%s: %v", msg.RoomID, c.userID, err)
		return
	}
	peer := room.PeerOf(c.userID)
	h.Broadcast(ctx, msg.RoomID, []string{peer},
		OutgoingMessage{Type: EventRead, Payload: ReadPayload{RoomID: msg.RoomID, UserID: c.userID, ReadAt: time.Now().UTC()}})
}

// Broadcast delivers an event to the given users on this instance and, when a
// relay is attached, republishes it for other instances. Relay failures are
// logged only: persistence is the system of record and clients reconcile on
// the next history fetch.
func (h *Hub) Broadcast(ctx context.Context, roomID string, userIDs []string, out OutgoingMessage) {
	h.Deliver(userIDs, out)
	if h.relay != nil {
		if err := h.relay.Publish(ctx, roomID, userIDs, out); err != nil {
			logger.Errorf("ws relay publish room=%s: %v", roomID, err)
		}
	}
}

// Deliver fans an event out to local connections only. The relay uses it
// as the sink for remotely published events.
func (h *Hub) Deliver(userIDs []string, out OutgoingMessage) {
	for _, uid := range userIDs {
		h.sendToUser(uid, out)
	}
}

func (h *Hub) sendToUser(userID string, msg OutgoingMessage) {
	h.mu.RLock()
	clients := make([]*Client, 0, 2)
	for c := range h.clients[userID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.sendToClient(c, msg)
	}
}

func (h *Hub) sendToClient(c *Client, msg OutgoingMessage) {
	select {
	case <-c.done:
	case c.send <- msg:
	default:
		// Slow consumer: drop the connection rather than block the hub.
		logger.Errorf("ws send buffer full, closing user=%s", c.userID)
		h.Unregister(c)
	}
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.Close()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// userFacing picks the error text a client may see.
func userFacing(err error) string {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Msg
	case errors.Is(err, service.ErrForbidden):
		return "not a participant"
	case errors.Is(err, service.ErrNotFound):
		return "room not found"
	default:
		return "internal error"
	}
}
