package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/chainfit/internal/face"
	"github.com/ayusman/chainfit/internal/pipeline"
	"github.com/ayusman/chainfit/internal/placement"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

const writeWait = time.Second

// placementMessage is sent once per rendered frame.
type placementMessage struct {
	Seq       uint64              `json:"seq"`
	State     pipeline.State      `json:"state"`
	Overlay   bool                `json:"overlay"`
	AssetID   string              `json:"asset_id,omitempty"`
	Transform placement.Transform `json:"transform"`
	Metrics   face.Metrics        `json:"metrics"`
	Timestamp int64               `json:"timestamp"`
}

func newPlacementMessage(f *pipeline.Frame) placementMessage {
	return placementMessage{
		Seq:       f.Seq,
		State:     f.Result.State,
		Overlay:   f.Result.Overlay,
		AssetID:   f.Result.AssetID,
		Transform: f.Result.Transform,
		Metrics:   f.Result.Metrics,
		Timestamp: f.At.UnixMilli(),
	}
}

// PlacementHandler streams per-frame placement results over WebSocket.
type PlacementHandler struct {
	hub *pipeline.Hub
	log *logrus.Logger

	mu      sync.Mutex
	clients int
}

// NewPlacementHandler creates a new PlacementHandler reading from hub.
func NewPlacementHandler(hub *pipeline.Hub, log *logrus.Logger) *PlacementHandler {
	return &PlacementHandler{hub: hub, log: log}
}

// Clients returns the number of connected clients.
func (h *PlacementHandler) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clients
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *PlacementHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade error")
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients++
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		h.clients--
		h.mu.Unlock()
	}()

	frames, cancel := h.hub.Subscribe()
	defer cancel()

	// Drain client messages so close frames are noticed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			msg, err := jsoniter.Marshal(newPlacementMessage(f))
			if err != nil {
				h.log.WithError(err).Error("Failed to encode placement")
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}
