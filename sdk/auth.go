package sdk

import "context"

// RequestMagicLink emails a sign-in code to email
func (c *Client) RequestMagicLink(ctx context.Context, email string) error {
	return c.post(ctx, "/auth/magic_link", &MagicLinkRequest{Email: email}, nil)
}

// Verify exchanges the emailed code for a token.
// The resulting session is stored in the client for subsequent requests.
func (c *Client) Verify(ctx context.Context, email, code string) (*LoginResponse, error) {
	req := &VerifyRequest{
		Email:      email,
		Code:       code,
		PlatformId: c.platformId,
	}

	var result LoginResponse
	if err := c.post(ctx, "/auth/verify", req, &result); err != nil {
		return nil, err
	}

	sess := Session{Token: result.Token, PlatformId: c.platformId}
	if result.UserInfo != nil {
		sess.UserId = result.UserInfo.Id
	}
	c.SetSession(sess)
	return &result, nil
}

// Logout revokes the current token and clears the default session
func (c *Client) Logout(ctx context.Context) error {
	if err := c.post(ctx, "/auth/logout", nil, nil); err != nil {
		return err
	}
	if SessionFromContext(ctx) == nil {
		c.SetSession(Session{})
	}
	return nil
}
