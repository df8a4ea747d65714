package broadcast

import (
	"log/slog"
	"net/http"
	"sync"

	"trade_arena/internal/infra"

	"github.com/gorilla/websocket"
)

// wsObserver adapts one websocket connection into a hub observer. The
// write mutex is required because the rebuild pipeline and the hub may
// publish concurrently.
type wsObserver struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (o *wsObserver) Notify(ev Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.conn.WriteJSON(ev)
}

// Server exposes competition channels to websocket clients.
type Server struct {
	hub      *Hub
	metrics  *infra.Metrics
	upgrader websocket.Upgrader
}

// NewServer creates a websocket endpoint over the hub.
func NewServer(hub *Hub, metrics *infra.Metrics) *Server {
	return &Server{
		hub:     hub,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// HandleSubscribe upgrades the request and subscribes the connection to
// the competition named by the competition_id query parameter. The
// connection stays subscribed until the client goes away.
func (s *Server) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	competitionID := r.URL.Query().Get("competition_id")
	if competitionID == "" {
		http.Error(w, "competition_id is required", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	obs := &wsObserver{conn: conn}
	subscriberID := s.hub.Subscribe(competitionID, obs)
	slog.Info("observer subscribed",
		slog.String("competition_id", competitionID),
		slog.String("subscriber_id", subscriberID),
		slog.String("remote", conn.RemoteAddr().String()))

	// Drain the read side to detect the client closing.
	go func() {
		defer func() {
			s.hub.Unsubscribe(competitionID, subscriberID)
			_ = conn.Close()
			slog.Info("observer disconnected",
				slog.String("competition_id", competitionID),
				slog.String("subscriber_id", subscriberID))
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
