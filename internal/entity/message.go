package entity

// Message represents a direct message between two users
type Message struct {
	Id                string  `json:"id" gorm:"column:id;primaryKey;type:varchar(32)"`
	ClientMsgId       string  `json:"client_msg_id" gorm:"column:client_msg_id;type:varchar(64);uniqueIndex:uk_sender_client_msg"`
	SenderId          string  `json:"sender_id" gorm:"column:sender_id;type:varchar(64);uniqueIndex:uk_sender_client_msg;index:idx_pair_time"`
	RecipientId       string  `json:"recipient_id" gorm:"column:recipient_id;type:varchar(64);index:idx_pair_time"`
	Content           string  `json:"content" gorm:"column:content;type:text"`
	TranslatedContent *string `json:"translated_content" gorm:"column:translated_content;type:text"`
	CreatedAt         int64   `json:"created_at" gorm:"column:created_at;index:idx_pair_time"`
	ReadAt            *int64  `json:"read_at" gorm:"column:read_at"`
	UpdatedAt         int64   `json:"updated_at" gorm:"column:updated_at;autoUpdateTime:milli"`
}

// TableName returns the table name for Message
func (Message) TableName() string {
	return "messages"
}

// IsParticipant reports whether userId sent or received the message
func (m *Message) IsParticipant(userId string) bool {
	return m.SenderId == userId || m.RecipientId == userId
}

// MessageInfo represents message info for API response, with the sender profile denormalized
type MessageInfo struct {
	Id                string    `json:"id"`
	ClientMsgId       string    `json:"client_msg_id"`
	SenderId          string    `json:"sender_id"`
	RecipientId       string    `json:"recipient_id"`
	Content           string    `json:"content"`
	TranslatedContent *string   `json:"translated_content,omitempty"`
	CreatedAt         int64     `json:"created_at"`
	ReadAt            *int64    `json:"read_at,omitempty"`
	Sender            *UserInfo `json:"sender,omitempty"`
}

// ToMessageInfo converts Message to MessageInfo
func (m *Message) ToMessageInfo(sender *User) *MessageInfo {
	info := &MessageInfo{
		Id:                m.Id,
		ClientMsgId:       m.ClientMsgId,
		SenderId:          m.SenderId,
		RecipientId:       m.RecipientId,
		Content:           m.Content,
		TranslatedContent: m.TranslatedContent,
		CreatedAt:         m.CreatedAt,
		ReadAt:            m.ReadAt,
	}
	if sender != nil {
		info.Sender = sender.ToPublicUserInfo()
	}
	return info
}

// MessageEvent is the partial row pushed on insert
type MessageEvent struct {
	Id          string `json:"id"`
	SenderId    string `json:"sender_id"`
	RecipientId string `json:"recipient_id"`
	CreatedAt   int64  `json:"created_at"`
}

// ToEvent converts Message to the insert event pushed to the recipient
func (m *Message) ToEvent() *MessageEvent {
	return &MessageEvent{
		Id:          m.Id,
		SenderId:    m.SenderId,
		RecipientId: m.RecipientId,
		CreatedAt:   m.CreatedAt,
	}
}
