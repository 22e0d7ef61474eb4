// Package diagnostics is the "diagnostics channel" spec.md §7 says
// rule failures, cascade overflows, and translation errors fan out to
// when a host subscribes. Hub is a gorilla/websocket fan-out grounded
// on the teacher's cmd/mcrew WebSocketService: every connected client
// gets a buffered channel, frames are sent non-blocking, and a frame
// for a client whose buffer is full is dropped (the client stays
// connected) rather than allowed to back-pressure the engine.
package diagnostics

import (
	"encoding/json"
	"log"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/graphrules/engine/engine"
)

// Frame is one diagnostics message pushed to every connected client.
type Frame struct {
	Kind       string    `json:"kind"` // "rule_failed", "overflow", "translate_error", "eval_error"
	Rule       string    `json:"rule,omitempty"`
	EntityType string    `json:"entity_type,omitempty"`
	EntityID   string    `json:"entity_id,omitempty"`
	Property   string    `json:"property,omitempty"`
	Depth      int       `json:"depth,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

const clientBufferSize = 32

// Hub fans out Frames to every connected websocket client. It
// implements engine.Observer, so attaching it to an Engine's Observers
// slice is enough to wire C9's failures and overflows straight into
// C15 without the engine knowing websockets exist.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[string]chan Frame
}

// New returns an empty Hub. logger may be nil.
func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{logger: logger, clients: make(map[string]chan Frame)}
}

var upgrader = websocket.Upgrader{}

// ServeHTTP upgrades the connection and streams Frames to it until the
// client disconnects or the server shuts down.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("diagnostics: upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	id := conn.RemoteAddr().String()
	in := make(chan Frame, clientBufferSize)

	h.mu.Lock()
	h.clients[id] = in
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.clients, id)
		h.mu.Unlock()
	}()

	for frame := range in {
		js, err := json.Marshal(&frame)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, js); err != nil {
			return
		}
	}
}

// publish sends frame to every connected client, non-blocking; a full
// client buffer drops the frame for that client only.
func (h *Hub) publish(frame Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		select {
		case c <- frame:
		default:
			log.Printf("diagnostics: client %s buffer full, dropping frame", id)
		}
	}
}

// RuleMatched implements engine.Observer; diagnostics only cares about
// failures and overflow, so this is a no-op.
func (h *Hub) RuleMatched(string) {}

// CascadeFinished implements engine.Observer as a no-op; diagnostics
// reports per-rule and per-overflow events, not aggregate depth.
func (h *Hub) CascadeFinished(int) {}

// RuleFailed implements engine.Observer.
func (h *Hub) RuleFailed(rule, entityType, entityID string, err error) {
	h.publish(Frame{
		Kind:       "rule_failed",
		Rule:       rule,
		EntityType: entityType,
		EntityID:   entityID,
		Error:      err.Error(),
		At:         time.Now().UTC(),
	})
}

// Overflow implements engine.Observer.
func (h *Hub) Overflow(o *engine.CascadeOverflow) {
	h.publish(Frame{
		Kind:       "overflow",
		EntityType: o.EntityType,
		EntityID:   o.EntityID,
		Property:   o.Property,
		Depth:      o.Depth,
		Reason:     o.Reason,
		At:         time.Now().UTC(),
	})
}

// TranslateError implements engine.Observer: spec.md §7 names
// translation errors as a diagnostics channel event alongside rule
// failures and overflow.
func (h *Hub) TranslateError(kind string) {
	h.publish(Frame{Kind: "translate_error", Reason: kind, At: time.Now().UTC()})
}

// EvalError implements engine.Observer, for the same reason as
// TranslateError.
func (h *Hub) EvalError(kind string) {
	h.publish(Frame{Kind: "eval_error", Reason: kind, At: time.Now().UTC()})
}

var _ engine.Observer = (*Hub)(nil)
