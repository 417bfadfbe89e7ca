package gateway

// WebSocket protocol identifiers
const (
	// Requests
	WSHeartbeat = 1001 // Heartbeat, refreshes presence

	// Pushes
	WSPushMsg       = 2001 // Message insert event
	WSKickOnlineMsg = 2002 // Kick user offline
	WSDataError     = 3001 // Data error
)

// Query parameter keys
const (
	QueryToken      = "token"
	QueryUserId     = "user_id"
	QueryPlatformId = "platform_id"
)
