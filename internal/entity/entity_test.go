package entity

import (
	"testing"

	"github.com/mbeoliero/uq/pkg/constant"
	"github.com/stretchr/testify/assert"
)

func TestTagsRoundTrip(t *testing.T) {
	encoded := EncodeTags([]string{" retro ", "", "icq", "retro"})
	assert.Equal(t, `["retro","icq"]`, encoded)

	u := &User{Tags: &encoded}
	assert.Equal(t, []string{"retro", "icq"}, u.GetTags())

	bad := "{"
	u.Tags = &bad
	assert.Nil(t, u.GetTags())
}

func TestPublicInfoHidesInvisible(t *testing.T) {
	u := &User{Id: "u1", Username: "neo", Status: constant.StatusInvisible, LastSeen: 1234}

	self := u.ToUserInfo()
	assert.Equal(t, constant.StatusInvisible, self.Status)
	assert.Equal(t, int64(1234), self.LastSeen)

	public := u.ToPublicUserInfo()
	assert.Equal(t, constant.StatusOffline, public.Status)
	assert.Zero(t, public.LastSeen)
}

func TestMessageHelpers(t *testing.T) {
	m := &Message{Id: "1", SenderId: "a", RecipientId: "b", Content: "hi", CreatedAt: 42}

	assert.True(t, m.IsParticipant("a"))
	assert.True(t, m.IsParticipant("b"))
	assert.False(t, m.IsParticipant("c"))

	ev := m.ToEvent()
	assert.Equal(t, &MessageEvent{Id: "1", SenderId: "a", RecipientId: "b", CreatedAt: 42}, ev)

	info := m.ToMessageInfo(&User{Id: "a", Username: "alice", Status: constant.StatusBusy})
	assert.Equal(t, "alice", info.Sender.Username)
	assert.Equal(t, "hi", info.Content)
	assert.Nil(t, m.ToMessageInfo(nil).Sender)
}

func TestContactDisplayName(t *testing.T) {
	c := &Contact{Id: 1, ContactId: "b"}
	assert.Equal(t, "b", c.ToContactInfo(nil).DisplayName())
	assert.Equal(t, "bob", c.ToContactInfo(&User{Id: "b", Username: "bob"}).DisplayName())

	c.Nickname = "Bobby"
	assert.Equal(t, "Bobby", c.ToContactInfo(&User{Id: "b", Username: "bob"}).DisplayName())
}
