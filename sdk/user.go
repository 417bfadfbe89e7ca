package sdk

import (
	"context"
	"net/url"
	"strconv"
)

// GetUserInfo gets the current user's profile
func (c *Client) GetUserInfo(ctx context.Context) (*UserInfo, error) {
	var result UserInfo
	if err := c.get(ctx, "/user/info", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetProfile gets another user's public profile
func (c *Client) GetProfile(ctx context.Context, userId string) (*UserInfo, error) {
	var result UserInfo
	if err := c.get(ctx, "/user/profile/"+url.PathEscape(userId), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetByUqNumber looks a user up by uq number
func (c *Client) GetByUqNumber(ctx context.Context, uqNumber int64) (*UserInfo, error) {
	var result UserInfo
	if err := c.get(ctx, "/user/uq/"+strconv.FormatInt(uqNumber, 10), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateUserInfo updates the current user's profile
func (c *Client) UpdateUserInfo(ctx context.Context, req *UpdateUserRequest) (*UserInfo, error) {
	var result UserInfo
	if err := c.put(ctx, "/user/update", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SetStatus changes the current user's presence status
func (c *Client) SetStatus(ctx context.Context, status string) (*UserInfo, error) {
	var result UserInfo
	if err := c.put(ctx, "/user/status", &SetStatusRequest{Status: status}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListRegistry lists users whose name or uq number matches query
func (c *Client) ListRegistry(ctx context.Context, query string, limit int) ([]*UserInfo, error) {
	params := url.Values{}
	if query != "" {
		params.Set("q", query)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var result []*UserInfo
	if err := c.get(ctx, "/user/registry", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}
