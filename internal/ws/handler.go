package ws

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/logiflow/notification-service/internal/auth"
	"github.com/logiflow/notification-service/internal/httputil"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     CheckOrigin,
}

// Handler manages realtime connections: the authorization decision at
// connect time, the connected greeting and the per-client pumps.
type Handler struct {
	hub        *Hub
	jwtService *auth.JWTService
	strict     bool
}

// NewHandler creates a Handler. With strict true, connections without a
// valid bearer token are rejected; otherwise they are downgraded to
// anonymous.
func NewHandler(hub *Hub, jwtService *auth.JWTService, strict bool) *Handler {
	return &Handler{hub: hub, jwtService: jwtService, strict: strict}
}

// RegisterRoutes wires the realtime endpoint. The socket carries its own
// token handshake, so it stays outside the REST middleware chain.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ws/notifications", h.ServeWS).Methods(http.MethodGet)
}

// RegisterAPIRoutes wires the stats endpoint onto the authenticated /api
// subrouter.
func (h *Handler) RegisterAPIRoutes(r *mux.Router) {
	r.HandleFunc("/notifications/stats", h.ServeStats).Methods(http.MethodGet)
}

// ServeWS upgrades to WebSocket. The credential is optional: its absence or
// invalidity terminates the connection in strict mode and downgrades to
// anonymous in permissive mode, and the decision is logged either way.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := extractToken(r)

	var userID string
	authenticated := false
	switch {
	case token != "":
		claims, err := h.jwtService.ValidateToken(token)
		if err != nil {
			if h.strict {
				log.Printf("ws: rejecting connection with invalid token: %v", err)
				httputil.WriteError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			log.Printf("ws: invalid token, continuing as anonymous (permissive mode): %v", err)
		} else {
			userID = claims.UserID
			authenticated = true
		}
	case h.strict:
		log.Printf("ws: rejecting connection without token (strict mode)")
		httputil.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	default:
		log.Printf("ws: connection without token accepted (permissive mode)")
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	// Bound replay staleness by sweeping on every new connection.
	h.hub.SweepCache()

	client := NewClient(h.hub, conn, userID, authenticated)
	h.hub.Register(client)

	client.sendEvent("connected", map[string]interface{}{
		"clientId":      client.ID,
		"authenticated": authenticated,
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	})

	go client.WritePump()
	go client.ReadPump()
}

// ServeStats handles GET /api/notifications/stats
func (h *Handler) ServeStats(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.hub.Stats())
}

// extractToken pulls the bearer token from the token query parameter or the
// Authorization header.
func extractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return ""
}
