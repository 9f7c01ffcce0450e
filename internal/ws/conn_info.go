package ws

import "time"

// ConnInfo describes one live websocket connection and the session identity
// behind it. The display color is fixed for the whole login session.
type ConnInfo struct {
	ConnID      string
	UserID      int
	Username    string
	Color       string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
