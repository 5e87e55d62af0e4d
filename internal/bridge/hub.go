// Package bridge fans inbound poses and images out to websocket viewers.
package bridge

import (
	"context"
	"sort"
	"sync"
	"time"

	logs "github.com/danmuck/igtlctl/internal/logging"
	"github.com/danmuck/igtlctl/internal/scene"
)

// Message ops.
const (
	OpPose  = "pose"
	OpImage = "image"
)

// Message is the JSON document sent to viewers.
type Message struct {
	Op       string     `json:"op"`
	Target   string     `json:"target,omitempty"`
	Position [3]float64 `json:"position"`
	Rotation [4]float64 `json:"rotation"`
	Fallback bool       `json:"fallback,omitempty"`
	Width    int        `json:"width,omitempty"`
	Height   int        `json:"height,omitempty"`
	Pixels   []byte     `json:"pixels,omitempty"`
	At       time.Time  `json:"at"`
}

func poseMessage(u scene.PoseUpdate) Message {
	return Message{
		Op:       OpPose,
		Target:   u.TargetID,
		Position: [3]float64{u.Position.X, u.Position.Y, u.Position.Z},
		Rotation: [4]float64{u.Rotation.X, u.Rotation.Y, u.Rotation.Z, u.Rotation.W},
		Fallback: u.Fallback,
		At:       time.Now().UTC(),
	}
}

func imageMessage(u scene.ImageUpdate) Message {
	return Message{
		Op:     OpImage,
		Target: u.DeviceName,
		Width:  u.Width,
		Height: u.Height,
		Pixels: u.Pixels,
		At:     time.Now().UTC(),
	}
}

// Hub implements scene.PoseSink and scene.ImageSink. Updates are broadcast to
// every subscriber; a subscriber whose buffer is full misses the update.
type Hub struct {
	broadcast  chan Message
	register   chan chan Message
	unregister chan chan Message
	clients    map[chan Message]struct{}
	clientBuf  int
	done       chan struct{}

	mu     sync.RWMutex
	latest map[string]Message
}

type Option func(*Hub)

func WithBroadcastBuffer(size int) Option {
	return func(h *Hub) {
		if size > 0 {
			h.broadcast = make(chan Message, size)
		}
	}
}

func WithClientBuffer(size int) Option {
	return func(h *Hub) {
		if size > 0 {
			h.clientBuf = size
		}
	}
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		broadcast:  make(chan Message, 256),
		register:   make(chan chan Message),
		unregister: make(chan chan Message),
		clients:    make(map[chan Message]struct{}),
		clientBuf:  64,
		done:       make(chan struct{}),
		latest:     make(map[string]Message),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run serves subscriptions and broadcasts until ctx is done. It must be
// called at most once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for ch := range h.clients {
				close(ch)
			}
			h.clients = make(map[chan Message]struct{})
			return
		case ch := <-h.register:
			h.clients[ch] = struct{}{}
		case ch := <-h.unregister:
			if _, ok := h.clients[ch]; ok {
				delete(h.clients, ch)
				close(ch)
			}
		case msg := <-h.broadcast:
			for ch := range h.clients {
				select {
				case ch <- msg:
				default:
				}
			}
		}
	}
}

// Subscribe registers a viewer. The returned channel is closed by Unsubscribe
// or when Run stops.
func (h *Hub) Subscribe(ctx context.Context) (chan Message, bool) {
	ch := make(chan Message, h.clientBuf)
	select {
	case h.register <- ch:
		return ch, true
	case <-ctx.Done():
		return nil, false
	case <-h.done:
		return nil, false
	}
}

func (h *Hub) Unsubscribe(ctx context.Context, ch chan Message) {
	select {
	case h.unregister <- ch:
	case <-ctx.Done():
	case <-h.done:
	}
}

// Publish queues msg for broadcast without blocking the caller.
func (h *Hub) Publish(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		logs.Debugf("bridge.Hub.Publish drop op=%s target=%q", msg.Op, msg.Target)
	}
}

func (h *Hub) ApplyPose(u scene.PoseUpdate) {
	msg := poseMessage(u)
	h.mu.Lock()
	h.latest[u.TargetID] = msg
	h.mu.Unlock()
	h.Publish(msg)
}

func (h *Hub) ApplyImage(u scene.ImageUpdate) {
	h.Publish(imageMessage(u))
}

// Latest returns the most recent pose per target, ordered by target.
func (h *Hub) Latest() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Message, 0, len(h.latest))
	for _, m := range h.latest {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Target < out[j].Target })
	return out
}

// Fanout forwards updates to several sinks.
type Fanout struct {
	Poses  []scene.PoseSink
	Images []scene.ImageSink
}

func (f Fanout) ApplyPose(u scene.PoseUpdate) {
	for _, s := range f.Poses {
		s.ApplyPose(u)
	}
}

func (f Fanout) ApplyImage(u scene.ImageUpdate) {
	for _, s := range f.Images {
		s.ApplyImage(u)
	}
}
