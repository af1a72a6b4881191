package notifications

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/logiflow/notification-service/internal/httputil"
)

// Lister is what the REST surface needs from the store.
type Lister interface {
	ListNotifications(ctx context.Context, params ListParams) ([]Notification, int, error)
}

// Handlers provides HTTP handlers for the notifications API.
type Handlers struct {
	store Lister
}

// NewHandlers creates a new Handlers.
func NewHandlers(store Lister) *Handlers {
	return &Handlers{store: store}
}

// RegisterRoutes wires the notification endpoints onto the provided router,
// expected to be the authenticated /api subrouter.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/notifications", h.ListNotifications).Methods(http.MethodGet)
}

// ListNotifications handles GET /api/notifications
func (h *Handlers) ListNotifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	params := ListParams{
		EntityType: q.Get("entityType"),
		EntityID:   q.Get("entityId"),
		Severity:   q.Get("severity"),
		Limit:      limit,
		Offset:     offset,
	}

	notifications, total, err := h.store.ListNotifications(r.Context(), params)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": notifications,
		"total":         total,
		"limit":         params.Limit,
		"offset":        params.Offset,
	})
}
