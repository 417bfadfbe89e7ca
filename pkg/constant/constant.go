package constant

// User presence status
const (
	StatusOnline    = "online"
	StatusAway      = "away"
	StatusBusy      = "busy"
	StatusInvisible = "invisible"
	StatusOffline   = "offline"
)

// IsValidStatus reports whether s can be set by a user
func IsValidStatus(s string) bool {
	switch s {
	case StatusOnline, StatusAway, StatusBusy, StatusInvisible:
		return true
	default:
		return false
	}
}

// UQ numbers start here, the first registered user gets UqNumberBase
const UqNumberBase int64 = 100000

// Message limits
const (
	MaxContentRunes     = 4000
	DefaultPageLimit    = 51
	MaxPageLimit        = 201
	DefaultRegistrySize = 50
)

// DefaultTranslateLanguage is used when a translate request names no language
const DefaultTranslateLanguage = "en"

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

// Redis key patterns (without prefix, use RedisKey() to get full key)
const (
	redisKeyToken         = "token:%s:%d"       // token:{user_id}:{platform_id}
	redisKeyOnline        = "online:%s"         // online:{user_id}
	redisKeyUqCounter     = "counter:uq"        // last allocated uq number
	redisKeyMagicCode     = "magic:code:%s"     // magic:code:{email}
	redisKeyMagicCooldown = "magic:cooldown:%s" // magic:cooldown:{email}
	redisKeyMagicAttempts = "magic:attempts:%s" // magic:attempts:{email}
)

// redisKeyPrefix is the global prefix for all Redis keys
var redisKeyPrefix = "uq:"

// InitRedisKeyPrefix initializes the Redis key prefix from config
func InitRedisKeyPrefix(prefix string) {
	if prefix != "" {
		redisKeyPrefix = prefix
	}
}

// GetRedisKeyPrefix returns the current Redis key prefix
func GetRedisKeyPrefix() string {
	return redisKeyPrefix
}

func RedisKeyToken() string         { return redisKeyPrefix + redisKeyToken }
func RedisKeyOnline() string        { return redisKeyPrefix + redisKeyOnline }
func RedisKeyUqCounter() string     { return redisKeyPrefix + redisKeyUqCounter }
func RedisKeyMagicCode() string     { return redisKeyPrefix + redisKeyMagicCode }
func RedisKeyMagicCooldown() string { return redisKeyPrefix + redisKeyMagicCooldown }
func RedisKeyMagicAttempts() string { return redisKeyPrefix + redisKeyMagicAttempts }
