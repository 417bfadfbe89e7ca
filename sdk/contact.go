package sdk

import (
	"context"
	"net/url"
)

// AddContact adds the user with uqNumber to the contact list
func (c *Client) AddContact(ctx context.Context, uqNumber int64, nickname string) (*ContactInfo, error) {
	var result ContactInfo
	if err := c.post(ctx, "/contact/add", &AddContactRequest{UqNumber: uqNumber, Nickname: nickname}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListContacts lists contacts sorted by display name
func (c *Client) ListContacts(ctx context.Context, onlineOnly bool) ([]*ContactInfo, error) {
	params := url.Values{}
	if onlineOnly {
		params.Set("online_only", "true")
	}

	var result []*ContactInfo
	if err := c.get(ctx, "/contact/list", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// RemoveContact removes a contact
func (c *Client) RemoveContact(ctx context.Context, contactId string) error {
	return c.post(ctx, "/contact/remove", &RemoveContactRequest{ContactId: contactId}, nil)
}
