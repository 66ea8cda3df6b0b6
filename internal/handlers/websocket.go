package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/poirotw66/risk-dice--risky-dice/internal/dice"
	"github.com/poirotw66/risk-dice--risky-dice/internal/models"
	"github.com/poirotw66/risk-dice--risky-dice/internal/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	gameEngine   *services.GameEngine
	redisService *services.RedisService
	hub          *WebSocketHub
	streakSub    *redis.PubSub
}

type WebSocketHub struct {
	clients    map[string]*websocket.Conn
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
}

type Client struct {
	PlayerID string
	Conn     *websocket.Conn
}

type Message struct {
	Type     string      `json:"type"`
	PlayerID string      `json:"player_id,omitempty"`
	RollID   string      `json:"roll_id,omitempty"`
	Data     interface{} `json:"data"`
}

func NewWebSocketHandler(gameEngine *services.GameEngine, redisService *services.RedisService) *WebSocketHandler {
	hub := &WebSocketHub{
		clients:    make(map[string]*websocket.Conn),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 256),
	}

	go hub.run()

	h := &WebSocketHandler{
		gameEngine:   gameEngine,
		redisService: redisService,
		hub:          hub,
		streakSub:    redisService.SubscribeStreakEvents(),
	}

	go h.relayStreakEvents()

	return h
}

// Close tears down the streak subscription. The relay goroutine exits once
// the channel drains.
func (h *WebSocketHandler) Close() error {
	return h.streakSub.Close()
}

// relayStreakEvents fans redis streak messages out to every local client.
// Publishing through redis instead of calling the hub directly means every
// server instance relays the same event, not just the one that produced it.
func (h *WebSocketHandler) relayStreakEvents() {
	for msg := range h.streakSub.Channel() {
		var event models.StreakEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Printf("Failed to decode streak event: %v", err)
			continue
		}

		h.hub.broadcast <- &Message{
			Type: "GLOBAL_STREAK",
			Data: event,
		}
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	playerID := c.GetString("player_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	client := &Client{
		PlayerID: playerID,
		Conn:     conn,
	}

	h.hub.register <- client

	defer func() {
		h.hub.unregister <- client
		conn.Close()
	}()

	h.sendGlobalStreak(client)
	h.sendActiveRoll(client)

	for {
		var msg Message
		err := conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		h.handleMessage(client, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(client *Client, msg *Message) {
	switch msg.Type {
	case "PING":
		h.sendPong(client)
	}
}

// sendGlobalStreak pushes the counter as it stands, so a fresh connection is
// not waiting for someone else to roll before seeing a number.
func (h *WebSocketHandler) sendGlobalStreak(client *Client) {
	streak, err := h.redisService.GetGlobalStreak()
	if err != nil {
		log.Printf("Failed to get global streak for WS: %v", err)
		return
	}

	h.hub.broadcast <- &Message{
		Type:     "GLOBAL_STREAK",
		PlayerID: client.PlayerID,
		Data:     streak,
	}
}

// sendActiveRoll replays the roll in flight, if any, so a reconnecting client
// picks the animation back up mid-tumble.
func (h *WebSocketHandler) sendActiveRoll(client *Client) {
	roll, frame, ok := h.gameEngine.ActiveRoll(client.PlayerID)
	if !ok {
		return
	}

	h.hub.broadcast <- &Message{
		Type:     "ROLL_STARTED",
		PlayerID: client.PlayerID,
		RollID:   roll.ID,
		Data:     roll,
	}
	h.hub.broadcast <- &Message{
		Type:     "FRAME",
		PlayerID: client.PlayerID,
		RollID:   roll.ID,
		Data:     frame,
	}
}

func (h *WebSocketHandler) sendPong(client *Client) {
	h.hub.broadcast <- &Message{
		Type:     "PONG",
		PlayerID: client.PlayerID,
		Data: gin.H{
			"timestamp": time.Now().Unix(),
		},
	}
}

func (hub *WebSocketHub) run() {
	for {
		select {
		case client := <-hub.register:
			if old, ok := hub.clients[client.PlayerID]; ok && old != client.Conn {
				old.Close()
			}
			hub.clients[client.PlayerID] = client.Conn
			log.Printf("Client registered: %s", client.PlayerID)

		case client := <-hub.unregister:
			// Only drop the map entry if it is still this connection;
			// a newer tab may have replaced it.
			if conn, ok := hub.clients[client.PlayerID]; ok && conn == client.Conn {
				delete(hub.clients, client.PlayerID)
				log.Printf("Client unregistered: %s", client.PlayerID)
			}

		case message := <-hub.broadcast:
			hub.broadcastMessage(message)
		}
	}
}

func (hub *WebSocketHub) broadcastMessage(message *Message) {
	if message.PlayerID != "" {
		if conn, ok := hub.clients[message.PlayerID]; ok {
			if err := conn.WriteJSON(message); err != nil {
				conn.Close()
				delete(hub.clients, message.PlayerID)
			}
		}
	} else {
		for playerID, conn := range hub.clients {
			if err := conn.WriteJSON(message); err != nil {
				conn.Close()
				delete(hub.clients, playerID)
			}
		}
	}
}

// BroadcastFrame pushes one animation frame. Frames are disposable: if the
// hub is backed up, dropping a frame beats stalling the engine tick.
func (h *WebSocketHandler) BroadcastFrame(playerID, rollID string, frame dice.Frame) {
	msg := &Message{
		Type:     "FRAME",
		PlayerID: playerID,
		RollID:   rollID,
		Data:     frame,
	}

	select {
	case h.hub.broadcast <- msg:
	default:
	}
}

func (h *WebSocketHandler) BroadcastRollStarted(playerID string, roll *models.Roll) {
	h.hub.broadcast <- &Message{
		Type:     "ROLL_STARTED",
		PlayerID: playerID,
		RollID:   roll.ID,
		Data:     roll,
	}
}

func (h *WebSocketHandler) BroadcastRollSettled(playerID string, result *models.RollResult) {
	h.hub.broadcast <- &Message{
		Type:     "ROLL_SETTLED",
		PlayerID: playerID,
		RollID:   result.Roll.ID,
		Data:     result,
	}
}
