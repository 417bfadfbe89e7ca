package entity

import (
	"encoding/json"
	"strings"

	"github.com/mbeoliero/uq/pkg/constant"
)

// User represents a user in the system
type User struct {
	Id        string  `json:"id" gorm:"column:id;primaryKey;type:varchar(64)"`
	UqNumber  int64   `json:"uq_number" gorm:"column:uq_number;uniqueIndex"`
	Email     string  `json:"-" gorm:"column:email;type:varchar(255);uniqueIndex"`
	Username  string  `json:"username" gorm:"column:username;type:varchar(64);index"`
	AvatarUrl string  `json:"avatar_url" gorm:"column:avatar_url"`
	Bio       string  `json:"bio" gorm:"column:bio;type:varchar(512)"`
	Tags      *string `json:"tags" gorm:"column:tags;type:json"`
	Status    string  `json:"status" gorm:"column:status;type:varchar(16);index"`
	LastSeen  int64   `json:"last_seen" gorm:"column:last_seen"`
	CreatedAt int64   `json:"created_at" gorm:"column:created_at;autoCreateTime:milli"`
	UpdatedAt int64   `json:"updated_at" gorm:"column:updated_at;autoUpdateTime:milli"`
}

// TableName returns the table name for User
func (User) TableName() string {
	return "users"
}

// GetTags decodes the stored tag list, invalid json yields no tags
func (u *User) GetTags() []string {
	if u.Tags == nil || *u.Tags == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(*u.Tags), &tags); err != nil {
		return nil
	}
	return tags
}

// EncodeTags trims and dedups tags and returns the json column value
func EncodeTags(tags []string) string {
	seen := make(map[string]struct{}, len(tags))
	clean := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		clean = append(clean, t)
	}
	b, _ := json.Marshal(clean)
	return string(b)
}

// UserInfo is the profile snapshot returned by the API and embedded in messages
type UserInfo struct {
	Id        string   `json:"id"`
	UqNumber  int64    `json:"uq_number"`
	Username  string   `json:"username"`
	AvatarUrl string   `json:"avatar_url"`
	Bio       string   `json:"bio,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Status    string   `json:"status"`
	LastSeen  int64    `json:"last_seen"`
	CreatedAt int64    `json:"created_at"`
}

// ToUserInfo converts User to UserInfo as seen by the user themselves
func (u *User) ToUserInfo() *UserInfo {
	return &UserInfo{
		Id:        u.Id,
		UqNumber:  u.UqNumber,
		Username:  u.Username,
		AvatarUrl: u.AvatarUrl,
		Bio:       u.Bio,
		Tags:      u.GetTags(),
		Status:    u.Status,
		LastSeen:  u.LastSeen,
		CreatedAt: u.CreatedAt,
	}
}

// ToPublicUserInfo converts User to UserInfo as seen by other users.
// Invisible users show as offline and do not expose last seen.
func (u *User) ToPublicUserInfo() *UserInfo {
	info := u.ToUserInfo()
	if info.Status == constant.StatusInvisible {
		info.Status = constant.StatusOffline
		info.LastSeen = 0
	}
	return info
}
