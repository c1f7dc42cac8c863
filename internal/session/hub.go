package session

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/voxtask/voxtask/internal/models"
	"github.com/voxtask/voxtask/internal/persistence"
	"github.com/voxtask/voxtask/internal/services/agent"
	"github.com/voxtask/voxtask/internal/services/extraction"
	"go.uber.org/zap"
)

// Hub upgrades incoming connections into voice rooms and owns the room
// registry. Rooms are fully independent; the hub shares nothing between them
// beyond the collaborators it hands each coordinator.
type Hub struct {
	orch       *extraction.Orchestrator
	agent      agent.Agent
	store      persistence.Store
	summary    SummaryPublisher
	joinSecret string
	logger     *zap.Logger
	upgrader   websocket.Upgrader

	mu    sync.Mutex
	rooms map[string]context.CancelFunc
}

// NewHub creates the session hub. allowedOrigins guards the WebSocket
// upgrade the same way CORS guards the HTTP API.
func NewHub(orch *extraction.Orchestrator, ag agent.Agent, store persistence.Store, summary SummaryPublisher, joinSecret string, allowedOrigins []string, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		orch:       orch,
		agent:      ag,
		store:      store,
		summary:    summary,
		joinSecret: joinSecret,
		logger:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		rooms: make(map[string]context.CancelFunc),
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if origin == a {
				return true
			}
		}
		return false
	}
}

// HandleSession is the GET /ws/session endpoint. The client supplies the
// room name, a join token minted by the session-provisioning collaborator,
// and a metadata blob carrying identity and the persistence credential.
func (h *Hub) HandleSession(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("room")
	if roomID == "" {
		roomID = uuid.NewString()
	}

	if h.joinSecret != "" {
		if _, err := VerifyJoinToken(r.URL.Query().Get("token"), h.joinSecret); err != nil {
			h.logger.Warn("join_token_rejected", zap.String("room_id", roomID), zap.Error(err))
			http.Error(w, "invalid join token", http.StatusUnauthorized)
			return
		}
	}

	identity, credential := h.resolveIdentity(r.URL.Query().Get("metadata"), roomID)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket_upgrade_failed", zap.String("room_id", roomID), zap.Error(err))
		return
	}

	channel := &wsChannel{conn: conn}
	coordinator := NewCoordinator(roomID, identity, credential, channel, h.orch, h.agent, h.store, h.summary, h.logger)

	ctx, cancel := context.WithCancel(r.Context())
	h.register(roomID, cancel)

	go coordinator.Run(ctx)
	h.readPump(ctx, cancel, conn, coordinator, roomID)
}

// resolveIdentity binds user identity and credential from join metadata. A
// parse failure yields a placeholder identity with no credential so persist
// calls fail fast instead of running as the wrong user.
func (h *Hub) resolveIdentity(rawMetadata, roomID string) (models.User, string) {
	meta, err := ParseJoinMetadata(rawMetadata)
	if err != nil {
		h.logger.Warn("join_metadata_invalid", zap.String("room_id", roomID), zap.Error(err))
		return PlaceholderIdentity(), ""
	}
	return models.User{ID: meta.UserID, Name: meta.Name}, meta.AuthToken
}

// readPump forwards frames into the room's event loop until the connection
// drops, then tears the room down. Disconnecting discards all session state.
func (h *Hub) readPump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, coordinator *Coordinator, roomID string) {
	defer func() {
		cancel()
		_ = conn.Close()
		h.unregister(roomID)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("websocket_read_failed", zap.String("room_id", roomID), zap.Error(err))
			}
			return
		}

		msg, err := ParseInbound(data)
		if err != nil {
			h.logger.Warn("inbound_message_rejected", zap.String("room_id", roomID), zap.Error(err))
			continue
		}

		select {
		case <-ctx.Done():
			return
		default:
			coordinator.Deliver(msg)
		}
	}
}

func (h *Hub) register(roomID string, cancel context.CancelFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if prev, exists := h.rooms[roomID]; exists {
		prev()
	}
	h.rooms[roomID] = cancel
}

func (h *Hub) unregister(roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, roomID)
}

// Close tears down every active room.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for roomID, cancel := range h.rooms {
		cancel()
		delete(h.rooms, roomID)
	}
}

// wsChannel serializes writes to one WebSocket connection.
type wsChannel struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsChannel) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}
