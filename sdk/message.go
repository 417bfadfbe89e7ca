package sdk

import (
	"context"
	"net/url"
	"strconv"
)

// SendMessage sends a direct message.
// Resending with the same ClientMsgId returns the stored message.
func (c *Client) SendMessage(ctx context.Context, req *SendMessageRequest) (*MessageInfo, error) {
	var result MessageInfo
	if err := c.post(ctx, "/msg/send", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SendTextMessage is a convenience method to send text to a single user
func (c *Client) SendTextMessage(ctx context.Context, clientMsgId, recipientId, text string) (*MessageInfo, error) {
	return c.SendMessage(ctx, &SendMessageRequest{
		ClientMsgId: clientMsgId,
		RecipientId: recipientId,
		Content:     text,
	})
}

// ListMessages returns a page of the conversation with req.PartnerId, newest first
func (c *Client) ListMessages(ctx context.Context, req *ListMessagesRequest) ([]*MessageInfo, error) {
	params := url.Values{}
	params.Set("partner_id", req.PartnerId)
	if req.Before > 0 {
		params.Set("before", strconv.FormatInt(req.Before, 10))
	}
	if req.BeforeId != "" {
		params.Set("before_id", req.BeforeId)
	}
	if req.Limit > 0 {
		params.Set("limit", strconv.Itoa(req.Limit))
	}

	var result []*MessageInfo
	if err := c.get(ctx, "/msg/list", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetMessage fetches one message with its sender profile
func (c *Client) GetMessage(ctx context.Context, id string) (*MessageInfo, error) {
	params := url.Values{}
	params.Set("id", id)

	var result MessageInfo
	if err := c.get(ctx, "/msg/get", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// MarkRead marks every message received from partnerId as read
func (c *Client) MarkRead(ctx context.Context, partnerId string) (int64, error) {
	var result MarkReadResponse
	if err := c.post(ctx, "/msg/mark_read", &MarkReadRequest{PartnerId: partnerId}, &result); err != nil {
		return 0, err
	}
	return result.Updated, nil
}

// UnreadCounts returns unread message counts keyed by sender id
func (c *Client) UnreadCounts(ctx context.Context) (map[string]int64, error) {
	result := make(map[string]int64)
	if err := c.get(ctx, "/msg/unread_counts", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}
