package notifications

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Notification is a durably stored event record.
type Notification struct {
	ID           string          `json:"id"`
	EventID      string          `json:"eventId"`
	Microservice string          `json:"microservice"`
	Action       string          `json:"action"`
	EntityType   string          `json:"entityType"`
	EntityID     string          `json:"entityId"`
	Message      string          `json:"message"`
	Timestamp    time.Time       `json:"eventTimestamp"`
	Data         json.RawMessage `json:"data,omitempty"`
	Severity     string          `json:"severity"`
	Read         bool            `json:"read"`
	Processed    bool            `json:"processed"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// NotificationFromEvent builds the storable record for a decoded event.
func NotificationFromEvent(ev Event) (*Notification, error) {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, err
	}
	return &Notification{
		EventID:      ev.EventID,
		Microservice: ev.Microservice,
		Action:       ev.Action,
		EntityType:   ev.EntityType,
		EntityID:     ev.EntityID,
		Message:      ev.Message,
		Timestamp:    ev.Timestamp,
		Data:         data,
		Severity:     ev.Severity,
	}, nil
}

// ListParams holds filters and pagination for listing notifications.
type ListParams struct {
	EntityType string
	EntityID   string
	Severity   string
	Limit      int
	Offset     int
}

// NotificationStore persists notifications in Postgres.
type NotificationStore struct {
	pool *pgxpool.Pool
}

// NewNotificationStore creates a new NotificationStore.
func NewNotificationStore(pool *pgxpool.Pool) *NotificationStore {
	return &NotificationStore{pool: pool}
}

// CreateNotification stores a new notification and returns its generated ID.
func (s *NotificationStore) CreateNotification(ctx context.Context, n *Notification) (string, error) {
	if n.Data == nil {
		n.Data = json.RawMessage("{}")
	}
	var id string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO notifications (event_id, microservice, action, entity_type, entity_id, message, event_timestamp, data, severity)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		n.EventID, n.Microservice, n.Action, n.EntityType, n.EntityID, n.Message, n.Timestamp, n.Data, n.Severity,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListNotifications returns notifications matching the given filters, newest
// first, with pagination.
func (s *NotificationStore) ListNotifications(ctx context.Context, params ListParams) ([]Notification, int, error) {
	if params.Limit <= 0 || params.Limit > 100 {
		params.Limit = 50
	}

	query := `SELECT id, event_id, microservice, action, entity_type, entity_id, message, event_timestamp, data, severity, read, processed, created_at
	          FROM notifications WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM notifications WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if params.EntityType != "" {
		query += ` AND entity_type = $` + strconv.Itoa(argIdx)
		countQuery += ` AND entity_type = $` + strconv.Itoa(argIdx)
		args = append(args, params.EntityType)
		argIdx++
	}
	if params.EntityID != "" {
		query += ` AND entity_id = $` + strconv.Itoa(argIdx)
		countQuery += ` AND entity_id = $` + strconv.Itoa(argIdx)
		args = append(args, params.EntityID)
		argIdx++
	}
	if params.Severity != "" {
		query += ` AND severity = $` + strconv.Itoa(argIdx)
		countQuery += ` AND severity = $` + strconv.Itoa(argIdx)
		args = append(args, params.Severity)
		argIdx++
	}

	var total int
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(argIdx)
	args = append(args, params.Limit)
	argIdx++
	query += ` OFFSET $` + strconv.Itoa(argIdx)
	args = append(args, params.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var notifications []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.EventID, &n.Microservice, &n.Action, &n.EntityType, &n.EntityID, &n.Message, &n.Timestamp, &n.Data, &n.Severity, &n.Read, &n.Processed, &n.CreatedAt); err != nil {
			return nil, 0, err
		}
		notifications = append(notifications, n)
	}

	if notifications == nil {
		notifications = []Notification{}
	}

	return notifications, total, rows.Err()
}
