// Package stream pushes article lists to websocket clients as they change.
//
// Every connection gets a snapshot of the current list first and then one
// update per published list that differs from the previous one. A slow client
// only ever receives the most recent list; intermediate lists are dropped.
package stream

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/articlefeed/internal/feed"
)

const (
	TypeSnapshot = "snapshot"
	TypeUpdate   = "update"

	writeWait = 2 * time.Second
)

// Source publishes item lists, replaying the current one on Subscribe.
type Source interface {
	Subscribe(handler func([]feed.Item)) (unsubscribe func())
}

// Message is one frame sent to a client.
type Message struct {
	Type    string        `json:"type"`
	Items   []feed.Item   `json:"items"`
	Changes *feed.Changes `json:"changes,omitempty"`
}

type Handler struct {
	source   Source
	logger   *zap.SugaredLogger
	upgrader websocket.Upgrader
	clients  atomic.Int64

	mu     sync.Mutex
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

func NewHandler(source Source, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		source: source,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		done: make(chan struct{}),
	}
}

// Clients returns the number of connected clients.
func (h *Handler) Clients() int {
	return int(h.clients.Load())
}

// Close disconnects every client and waits for their handlers to return.
// Later connections are refused.
func (h *Handler) Close() {
	h.mu.Lock()
	if !h.closed {
		h.closed = true
		close(h.done)
	}
	h.mu.Unlock()

	h.wg.Wait()
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)

		return
	}
	h.wg.Add(1)
	h.mu.Unlock()
	defer h.wg.Done()

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.logger.Warnw("websocket upgrade failed", "error", err)

		return
	}

	logger := h.logger.With("conn", uuid.NewString())
	h.clients.Add(1)
	defer h.clients.Add(-1)
	logger.Infow("client connected", "clients", h.Clients())

	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()
	defer func() {
		_ = ws.Close()
		<-disconnected
		logger.Infow("client disconnected")
	}()

	updates := make(chan []feed.Item, 1)
	unsubscribe := h.source.Subscribe(func(items []feed.Item) {
		offer(updates, items)
	})
	defer unsubscribe()

	var (
		prev  []feed.Item
		first = true
	)
	for {
		select {
		case <-disconnected:
			return
		case <-h.done:
			_ = ws.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
				time.Now().Add(writeWait),
			)

			return
		case items := <-updates:
			msg := Message{Type: TypeSnapshot, Items: items}
			if !first {
				changes := feed.Diff(prev, items)
				if changes.Empty() {
					continue
				}
				msg.Type = TypeUpdate
				msg.Changes = &changes
			}
			if msg.Items == nil {
				msg.Items = []feed.Item{}
			}
			first = false
			prev = items

			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(msg); err != nil {
				logger.Warnw("write failed", "error", err)

				return
			}
		}
	}
}

// offer replaces whatever is pending in ch with items. Deliveries from the
// source are serialized, so there is a single sender.
func offer(ch chan []feed.Item, items []feed.Item) {
	for {
		select {
		case ch <- items:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
