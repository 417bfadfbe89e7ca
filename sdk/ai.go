package sdk

import "context"

// Translate translates a stored message
func (c *Client) Translate(ctx context.Context, messageId, targetLanguage string) (*TranslateResponse, error) {
	var result TranslateResponse
	req := &TranslateRequest{MessageId: messageId, TargetLanguage: targetLanguage}
	if err := c.post(ctx, "/ai/translate", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Summarize summarizes the latest limit messages with partnerId
func (c *Client) Summarize(ctx context.Context, partnerId string, limit int) (string, error) {
	var result SummarizeResponse
	if err := c.post(ctx, "/ai/summarize", &SummarizeRequest{PartnerId: partnerId, Limit: limit}, &result); err != nil {
		return "", err
	}
	return result.Summary, nil
}
