package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// WSMessage is an incoming command frame.
type WSMessage struct {
	Action string   `json:"action"`
	Room   string   `json:"room,omitempty"`
	Params []string `json:"params,omitempty"`
}

// WSEvent is an outgoing frame: a direct reply, a rejection, a private
// whisper, or a group announcement.
type WSEvent struct {
	Type string `json:"type"` // reply | error | private | group
	Text string `json:"text"`
}

// Client represents a websocket connection with player info
type Client struct {
	conn    *websocket.Conn
	userID  string
	writeMu sync.Mutex // Serialize writes to WebSocket (required by gorilla/websocket)
}

// WebSocket hub fanning engine output to connected players
type Hub struct {
	clients    map[*websocket.Conn]*Client
	register   chan *Client
	unregister chan *websocket.Conn
	mu         sync.RWMutex
	done       chan struct{}
	wg         sync.WaitGroup
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]*Client),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn, 64),
		done:       make(chan struct{}),
	}
}

// start launches the fan-out loop in its own goroutine.
func (h *Hub) start() {
	h.wg.Add(1)
	go h.run()
}

// stop signals the hub goroutine to exit and waits for it to finish
func (h *Hub) stop() {
	close(h.done)
	h.wg.Wait()
}

var hub = newHub()

// sendToUser writes a frame to every connection the player has open.
// Delivery is best-effort; write errors are logged and swallowed.
func (h *Hub) sendToUser(userID string, ev WSEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		logError("sendToUser: marshal", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.userID != userID {
			continue
		}
		LogWSMessage("OUT", userID, string(payload))
		client.writeMu.Lock()
		err := client.conn.WriteMessage(websocket.TextMessage, payload)
		client.writeMu.Unlock()
		if err != nil {
			log.Printf("WebSocket write error to player %s: %v", userID, err)
		}
	}
}

func (h *Hub) run() {
	defer h.wg.Done()
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("WebSocket client connected (player %s). Total: %d", client.userID, total)
			DebugLog("hub.register", "player %s connected", client.userID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if client, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
				DebugLog("hub.unregister", "player %s disconnected", client.userID)
			}
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("WebSocket client disconnected. Total: %d", total)
		}
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Capture globals at entry to avoid race conditions in parallel tests
	currentHub := hub
	currentDispatcher := dispatcher

	userID, greeting, err := authenticateWS(r)
	if err != nil {
		DebugLog("handleWebSocket", "rejected connection: %v", err)
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	var upgrader = websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error for player %s: %v", userID, err)
		return
	}

	DebugLog("handleWebSocket", "WebSocket upgraded for player %s", userID)
	client := &Client{conn: conn, userID: userID}
	currentHub.register <- client
	if greeting != "" {
		currentHub.sendToUser(userID, WSEvent{Type: "private", Text: greeting})
	}

	// Handle messages and disconnection
	go func() {
		defer func() {
			currentHub.unregister <- conn
		}()
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				break
			}
			handleWSMessage(currentHub, currentDispatcher, client, message)
		}
	}()
}

// handleWSMessage routes one incoming frame through the dispatcher and
// writes the outcome back on the same player's connections.
func handleWSMessage(h *Hub, d *Dispatcher, client *Client, raw []byte) {
	LogWSMessage("IN", client.userID, string(raw))

	var msg WSMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.sendToUser(client.userID, WSEvent{Type: "error", Text: "bad frame"})
		return
	}
	msg.Action = strings.TrimSpace(msg.Action)
	if msg.Action == "" {
		h.sendToUser(client.userID, WSEvent{Type: "error", Text: "missing action"})
		return
	}

	reply, err := d.Dispatch(client.userID, msg.Room, msg.Action, msg.Params)
	if err != nil {
		h.sendToUser(client.userID, WSEvent{Type: "error", Text: err.Error()})
		return
	}
	if reply != "" {
		h.sendToUser(client.userID, WSEvent{Type: "reply", Text: reply})
	}
}
