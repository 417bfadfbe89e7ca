package entity

import "time"

// NowUnixMilli returns current unix timestamp in milliseconds
func NowUnixMilli() int64 {
	return time.Now().UnixMilli()
}

// All returns every persisted model, used by auto migration
func All() []interface{} {
	return []interface{}{&User{}, &Contact{}, &Message{}}
}
