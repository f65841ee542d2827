package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"critico/internal/models"
	"critico/internal/observability"
)

// client pairs a connection's metadata with its write lock. gorilla/websocket
// allows at most one concurrent writer per connection, so every write goes
// through the client's mutex.
type client struct {
	info ConnInfo
	mu   sync.Mutex
}

// Hub maintains active websocket rooms. Three scopes exist: one room per
// direct chat, one per product comment thread, and one feed per user for
// conversation-list and badge events. Registration is idempotent per
// (scope, conn) and every connection is removed when its reader exits, so
// no subscription outlives its scope.
type Hub struct {
	chatRooms    map[int]map[*websocket.Conn]*client
	productRooms map[int]map[*websocket.Conn]*client
	userFeeds    map[int]map[*websocket.Conn]*client
	mu           sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		chatRooms:    make(map[int]map[*websocket.Conn]*client),
		productRooms: make(map[int]map[*websocket.Conn]*client),
		userFeeds:    make(map[int]map[*websocket.Conn]*client),
	}
}

// AddChatClient registers a websocket connection to a chat room.
func (h *Hub) AddChatClient(chatID int, conn *websocket.Conn, info ConnInfo) {
	h.add(h.chatRooms, chatID, conn, info)
}

// RemoveChatClient removes a chat websocket connection.
func (h *Hub) RemoveChatClient(chatID int, conn *websocket.Conn) {
	h.remove(h.chatRooms, chatID, conn)
}

// AddProductClient registers a websocket connection to a product thread.
func (h *Hub) AddProductClient(productID int, conn *websocket.Conn, info ConnInfo) {
	h.add(h.productRooms, productID, conn, info)
}

// RemoveProductClient removes a product-thread websocket connection.
func (h *Hub) RemoveProductClient(productID int, conn *websocket.Conn) {
	h.remove(h.productRooms, productID, conn)
}

// AddFeedClient registers a user's feed connection.
func (h *Hub) AddFeedClient(userID int, conn *websocket.Conn, info ConnInfo) {
	h.add(h.userFeeds, userID, conn, info)
}

// RemoveFeedClient removes a user's feed connection.
func (h *Hub) RemoveFeedClient(userID int, conn *websocket.Conn) {
	h.remove(h.userFeeds, userID, conn)
}

func (h *Hub) add(rooms map[int]map[*websocket.Conn]*client, id int, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := rooms[id]; !ok {
		rooms[id] = make(map[*websocket.Conn]*client)
	}
	rooms[id][conn] = &client{info: info}
}

func (h *Hub) remove(rooms map[int]map[*websocket.Conn]*client, id int, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := rooms[id]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(rooms, id)
		}
	}
}

// BroadcastChatMessage sends a message event to all clients in a chat.
func (h *Hub) BroadcastChatMessage(chatID int, msg models.Message) {
	h.broadcast("chat", h.chatRooms, chatID, models.ChatEvent{Type: "message", Message: &msg})
}

// BroadcastChatUpdate notifies chat clients of a message-row change such as
// a request status flip.
func (h *Hub) BroadcastChatUpdate(chatID int, msg models.Message) {
	h.broadcast("chat", h.chatRooms, chatID, models.ChatEvent{Type: "update", Message: &msg})
}

// BroadcastProductComment sends a comment event to a product thread.
func (h *Hub) BroadcastProductComment(productID int, msg models.Message) {
	h.broadcast("product", h.productRooms, productID, models.ChatEvent{Type: "message", Message: &msg})
}

// SendFeedEvent pushes an event to every feed connection of one user.
func (h *Hub) SendFeedEvent(userID int, event models.FeedEvent) {
	h.broadcast("feed", h.userFeeds, userID, event)
}

func (h *Hub) broadcast(kind string, rooms map[int]map[*websocket.Conn]*client, id int, event any) {
	type target struct {
		conn *websocket.Conn
		cl   *client
	}
	h.mu.RLock()
	targets := make([]target, 0, len(rooms[id]))
	for conn, cl := range rooms[id] {
		targets = append(targets, target{conn: conn, cl: cl})
	}
	h.mu.RUnlock()

	payload, _ := json.Marshal(event)
	for _, tg := range targets {
		tg.cl.mu.Lock()
		err := tg.conn.WriteMessage(websocket.TextMessage, payload)
		tg.cl.mu.Unlock()
		if err != nil {
			log.Printf("websocket write error: %v", err)
			tg.conn.Close()
			h.remove(rooms, id, tg.conn)
			observability.IncWSEvent(kind, "ws_error")
		}
	}
}
