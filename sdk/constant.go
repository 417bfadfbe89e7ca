package sdk

// Presence status
const (
	StatusOnline    = "online"
	StatusAway      = "away"
	StatusBusy      = "busy"
	StatusInvisible = "invisible"
	StatusOffline   = "offline"
)

// Platform Ids
const (
	PlatformIdUnknown  = 0
	PlatformIdIOS      = 1
	PlatformIdAndroid  = 2
	PlatformIdWindows  = 3
	PlatformIdMacOS    = 4
	PlatformIdWeb      = 5
	PlatformIdTerminal = 6
)

// PlatformIdToName converts platform Id to name
func PlatformIdToName(platformId int) string {
	switch platformId {
	case PlatformIdIOS:
		return "iOS"
	case PlatformIdAndroid:
		return "Android"
	case PlatformIdWindows:
		return "Windows"
	case PlatformIdMacOS:
		return "macOS"
	case PlatformIdWeb:
		return "Web"
	case PlatformIdTerminal:
		return "Terminal"
	default:
		return "Unknown"
	}
}

// WebSocket identifiers
const (
	WSHeartbeat     = 1001
	WSPushMsg       = 2001
	WSKickOnlineMsg = 2002
)

// Page sizes accepted by ListMessages
const (
	DefaultPageLimit = 51
	MaxPageLimit     = 201
)
