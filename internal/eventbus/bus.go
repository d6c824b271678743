// Package eventbus fans out round lifecycle notifications to in-process
// subscribers and to external real-time clients over a websocket hub,
// modeled directly on the teacher's api.Hub broadcast pattern.
package eventbus

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboard clients only; no credentials flow over this socket
	},
}

// FinishRoundEvent is published once per finished round, after every op
// for that round has been queued into the transaction.
type FinishRoundEvent struct {
	Round uint64 `json:"round"`
}

// BackwardTickEvent is published at the start of every backward_tick.
type BackwardTickEvent struct {
	BlockHeight uint64 `json:"blockHeight"`
	BlockID     string `json:"blockId"`
}

// Bus fans out finishRound/roundBackwardTick notifications. Delivery to
// in-process subscribers is buffered and non-blocking: a slow or absent
// subscriber can never stall a transaction commit. Delivery to external
// websocket clients goes through the embedded Hub, which drops a client
// rather than block the broadcast loop.
type Bus struct {
	hub *Hub

	mu              sync.Mutex
	finishRoundSubs []chan FinishRoundEvent
	backwardSubs    []chan BackwardTickEvent
}

// New returns a Bus with its websocket hub ready to Run.
func New() *Bus {
	return &Bus{hub: NewHub()}
}

// Hub exposes the websocket fan-out for wiring into the gin router.
func (b *Bus) Hub() *Hub { return b.hub }

// SubscribeFinishRound registers a new in-process listener. The returned
// channel is buffered; a subscriber that falls behind misses events
// rather than backing up the publisher.
func (b *Bus) SubscribeFinishRound() <-chan FinishRoundEvent {
	ch := make(chan FinishRoundEvent, 16)
	b.mu.Lock()
	b.finishRoundSubs = append(b.finishRoundSubs, ch)
	b.mu.Unlock()
	return ch
}

// SubscribeBackwardTick registers a new in-process listener for
// roundBackwardTick events.
func (b *Bus) SubscribeBackwardTick() <-chan BackwardTickEvent {
	ch := make(chan BackwardTickEvent, 16)
	b.mu.Lock()
	b.backwardSubs = append(b.backwardSubs, ch)
	b.mu.Unlock()
	return ch
}

// PublishFinishRound notifies subscribers and external clients that round
// has finished. Best-effort: a full subscriber channel is skipped, never
// blocked on.
func (b *Bus) PublishFinishRound(round uint64) {
	evt := FinishRoundEvent{Round: round}

	b.mu.Lock()
	subs := append([]chan FinishRoundEvent(nil), b.finishRoundSubs...)
	b.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- evt:
		default:
			log.Printf("[EventBus] finishRound subscriber channel full, dropping event for round %d", round)
		}
	}

	payload, err := json.Marshal(map[string]interface{}{"type": "rounds/change", "number": round})
	if err != nil {
		log.Printf("[EventBus] failed to marshal rounds/change payload: %v", err)
		return
	}
	b.hub.Broadcast(payload)
}

// PublishBackwardTick notifies subscribers that a backward tick for block
// is starting.
func (b *Bus) PublishBackwardTick(blockHeight uint64, blockID string) {
	evt := BackwardTickEvent{BlockHeight: blockHeight, BlockID: blockID}

	b.mu.Lock()
	subs := append([]chan BackwardTickEvent(nil), b.backwardSubs...)
	b.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- evt:
		default:
			log.Printf("[EventBus] roundBackwardTick subscriber channel full, dropping event for block %d", blockHeight)
		}
	}
}

// Hub maintains the set of active websocket clients and broadcasts
// messages to all of them. Lifted from the teacher's internal/api.Hub —
// same write-deadline-then-drop behavior so one stalled dashboard client
// can never back up round processing.
type Hub struct {
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	mutex     sync.Mutex
}

// NewHub returns an empty Hub. Call Run in its own goroutine.
func NewHub() *Hub {
	return &Hub{
		broadcast: make(chan []byte, 256),
		clients:   make(map[*websocket.Conn]bool),
	}
}

// Run drains the broadcast channel and fans messages out to every
// connected client. Intended to run for the lifetime of the process.
func (h *Hub) Run() {
	for message := range h.broadcast {
		h.mutex.Lock()
		for client := range h.clients {
			_ = client.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[EventBus] websocket write error: %v", err)
				client.Close()
				delete(h.clients, client)
			}
		}
		h.mutex.Unlock()
	}
}

// Subscribe upgrades an HTTP request to a websocket connection and
// registers it for broadcasts.
func (h *Hub) Subscribe(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[EventBus] failed to upgrade websocket: %v", err)
		return
	}

	h.mutex.Lock()
	h.clients[conn] = true
	h.mutex.Unlock()

	go func() {
		defer func() {
			h.mutex.Lock()
			delete(h.clients, conn)
			h.mutex.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// Broadcast enqueues data for delivery to every connected client. If the
// broadcast queue is full (Run is slow or not running), the message is
// dropped rather than blocking the publisher.
func (h *Hub) Broadcast(data []byte) {
	select {
	case h.broadcast <- data:
	default:
		log.Printf("[EventBus] websocket broadcast queue full, dropping message")
	}
}
