package entity

// Contact is a directed relationship from UserId to ContactId
type Contact struct {
	Id        int64  `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	UserId    string `json:"user_id" gorm:"column:user_id;type:varchar(64);uniqueIndex:uk_user_contact"`
	ContactId string `json:"contact_id" gorm:"column:contact_id;type:varchar(64);uniqueIndex:uk_user_contact"`
	Nickname  string `json:"nickname" gorm:"column:nickname;type:varchar(64)"`
	CreatedAt int64  `json:"created_at" gorm:"column:created_at;autoCreateTime:milli"`
}

// TableName returns the table name for Contact
func (Contact) TableName() string {
	return "contacts"
}

// ContactInfo is a contact decorated with the target user's live profile
type ContactInfo struct {
	Id        int64     `json:"id"`
	ContactId string    `json:"contact_id"`
	Nickname  string    `json:"nickname,omitempty"`
	CreatedAt int64     `json:"created_at"`
	Contact   *UserInfo `json:"contact"`
}

// ToContactInfo joins the contact row with the contact's profile
func (c *Contact) ToContactInfo(user *User) *ContactInfo {
	info := &ContactInfo{
		Id:        c.Id,
		ContactId: c.ContactId,
		Nickname:  c.Nickname,
		CreatedAt: c.CreatedAt,
	}
	if user != nil {
		info.Contact = user.ToPublicUserInfo()
	}
	return info
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
