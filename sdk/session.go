package sdk

import "context"

// Session identifies the signed-in user for a call.
// Callers that serve several users attach one per request with WithSession.
type Session struct {
	UserId     string `json:"user_id" yaml:"user_id"`
	Token      string `json:"token" yaml:"token"`
	PlatformId int    `json:"platform_id" yaml:"platform_id"`
}

// Valid reports whether the session can authenticate requests
func (s *Session) Valid() bool {
	return s != nil && s.UserId != "" && s.Token != ""
}

type sessionKey struct{}

// WithSession returns a context carrying sess
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFromContext returns the session attached with WithSession, or nil
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionKey{}).(*Session)
	return sess
}
