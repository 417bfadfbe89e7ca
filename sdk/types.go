package sdk

import "encoding/json"

// Response represents the standard API response
type Response struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UserInfo represents a user profile
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

// MessageInfo represents a stored message with its sender profile
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

// MessageEvent is the partial row pushed when a message is inserted
type MessageEvent struct {
	Id          string `json:"id"`
	SenderId    string `json:"sender_id"`
	RecipientId string `json:"recipient_id"`
	CreatedAt   int64  `json:"created_at"`
}

// ContactInfo is a contact with the contact's live profile
type ContactInfo struct {
	Id        int64     `json:"id"`
	ContactId string    `json:"contact_id"`
	Nickname  string    `json:"nickname,omitempty"`
	CreatedAt int64     `json:"created_at"`
	Contact   *UserInfo `json:"contact"`
}

// DisplayName prefers the nickname chosen by the owner
func (c *ContactInfo) DisplayName() string {
	if c.Nickname != "" {
		return c.Nickname
	}
	if c.Contact != nil {
		return c.Contact.Username
	}
	return c.ContactId
}

// MagicLinkRequest represents a sign-in link request
type MagicLinkRequest struct {
	Email string `json:"email"`
}

// VerifyRequest exchanges an emailed code for a token
type VerifyRequest struct {
	Email      string `json:"email"`
	Code       string `json:"code"`
	PlatformId int    `json:"platform_id"`
}

// LoginResponse represents login response
type LoginResponse struct {
	Token    string    `json:"token"`
	UserInfo *UserInfo `json:"user_info"`
	IsNew    bool      `json:"is_new"`
}

// UpdateUserRequest represents a profile update, nil fields are left unchanged
type UpdateUserRequest struct {
	Username  *string  `json:"username,omitempty"`
	AvatarUrl *string  `json:"avatar_url,omitempty"`
	Bio       *string  `json:"bio,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// SetStatusRequest represents a presence status change
type SetStatusRequest struct {
	Status string `json:"status"`
}

// AddContactRequest adds a contact by uq number
type AddContactRequest struct {
	UqNumber int64  `json:"uq_number"`
	Nickname string `json:"nickname,omitempty"`
}

// RemoveContactRequest removes a contact
type RemoveContactRequest struct {
	ContactId string `json:"contact_id"`
}

// SendMessageRequest represents send message request
type SendMessageRequest struct {
	ClientMsgId string `json:"client_msg_id"`
	RecipientId string `json:"recipient_id"`
	Content     string `json:"content"`
	CreatedAt   int64  `json:"created_at,omitempty"`
}

// ListMessagesRequest pages a conversation newest first.
// Before and BeforeId form an exclusive compound cursor, zero values start at the newest message.
type ListMessagesRequest struct {
	PartnerId string
	Before    int64
	BeforeId  string
	Limit     int
}

// MarkReadRequest marks every message from PartnerId as read
type MarkReadRequest struct {
	PartnerId string `json:"partner_id"`
}

// MarkReadResponse reports how many messages were marked
type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}

// TranslateRequest asks for a translation of a stored message
type TranslateRequest struct {
	MessageId      string `json:"message_id"`
	TargetLanguage string `json:"target_language,omitempty"`
}

// TranslateResponse carries the translated text.
// Translated is false when the text was already in the target language.
type TranslateResponse struct {
	MessageId  string `json:"message_id"`
	Text       string `json:"text"`
	Translated bool   `json:"translated"`
}

// SummarizeRequest asks for a summary of the latest messages with a partner
type SummarizeRequest struct {
	PartnerId string `json:"partner_id"`
	Limit     int    `json:"limit,omitempty"`
}

// SummarizeResponse carries the conversation summary
type SummarizeResponse struct {
	Summary string `json:"summary"`
}
