package ws

import (
	"time"

	"proconnect/internal/models"
)

// ConnInfo describes one authenticated websocket connection.
type ConnInfo struct {
	ConnID      string
	UserID      int
	User        models.UserSummary
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
