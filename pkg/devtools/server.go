// Package devtools is the development inspector for a ripple Runtime: a
// small HTTP server exposing engine stats as JSON, Prometheus metrics, and
// a WebSocket stream of live scheduler events. It is an observability
// surface for development; it never transports application state.
package devtools

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ripple-dev/ripple/pkg/metrics"
	"github.com/ripple-dev/ripple/pkg/ripple"
)

// eventBuffer bounds the in-flight event queue. Events beyond it are
// dropped rather than blocking the scheduler.
const eventBuffer = 1024

// wireEvent is the JSON shape streamed to inspector clients.
type wireEvent struct {
	Kind    string `json:"kind"`
	Source  uint64 `json:"source,omitempty"`
	Key     string `json:"key,omitempty"`
	Pass    int    `json:"pass,omitempty"`
	Context string `json:"context,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Server streams a Runtime's scheduler activity to inspector clients.
type Server struct {
	rt *ripple.Runtime

	events chan wireEvent

	clients  map[*websocket.Conn]bool
	mu       sync.RWMutex
	upgrader websocket.Upgrader

	registry *prometheus.Registry
	done     chan struct{}
	once     sync.Once
}

// NewServer creates an inspector for the Runtime and installs its observer.
// Call Close to detach the observer and stop the broadcaster.
func NewServer(rt *ripple.Runtime) *Server {
	s := &Server{
		rt:      rt,
		events:  make(chan wireEvent, eventBuffer),
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Dev tool: allow all origins.
			},
		},
		registry: prometheus.NewRegistry(),
		done:     make(chan struct{}),
	}
	s.registry.MustRegister(metrics.NewCollector(rt))

	rt.SetObserver(s.observe)
	go s.broadcastLoop()
	return s
}

// observe receives engine events on the scheduler goroutine. It must never
// block: when the buffer is full the event is dropped.
func (s *Server) observe(ev ripple.Event) {
	we := wireEvent{
		Kind:    string(ev.Kind),
		Source:  ev.Source,
		Key:     ev.Key,
		Pass:    ev.Pass,
		Context: ev.Context,
	}
	if ev.Err != nil {
		we.Error = ev.Err.Error()
	}
	select {
	case s.events <- we:
	default:
	}
}

// broadcastLoop fans queued events out to all connected clients.
func (s *Server) broadcastLoop() {
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.events:
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			s.mu.RLock()
			conns := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				conns = append(conns, conn)
			}
			s.mu.RUnlock()

			for _, conn := range conns {
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					s.mu.Lock()
					delete(s.clients, conn)
					s.mu.Unlock()
					conn.Close()
				}
			}
		}
	}
}

// Handler returns the inspector's HTTP routes:
//
//	GET /stats   engine counters as JSON
//	GET /metrics Prometheus exposition
//	GET /events  WebSocket stream of scheduler events
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/stats", s.handleStats)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Get("/events", s.handleEvents)
	return r
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.rt.Stats())
}

func (s *Server) handleEvents(w http.ResponseWriter, req *http.Request) {
	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()

	// Hold the connection open until the client goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close()
}

// ClientCount returns the number of connected inspector clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Close detaches the observer from the Runtime, stops the broadcaster,
// and disconnects all clients. Idempotent.
func (s *Server) Close() {
	s.once.Do(func() {
		s.rt.SetObserver(nil)
		close(s.done)

		s.mu.Lock()
		for conn := range s.clients {
			conn.Close()
		}
		s.clients = make(map[*websocket.Conn]bool)
		s.mu.Unlock()
	})
}
