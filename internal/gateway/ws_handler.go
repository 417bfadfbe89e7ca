package gateway

import (
	"context"
	"errors"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"
	"github.com/hertz-contrib/websocket"
	"github.com/mbeoliero/kit/log"

	"github.com/mbeoliero/uq/pkg/errcode"
)

// HandleHertzConnection authenticates the handshake and serves the upgraded connection
func (s *WsServer) HandleHertzConnection(ctx context.Context, c *app.RequestContext, upgrader *websocket.HertzUpgrader) {
	if _, conns := s.conns.counts(); int64(conns) >= s.cfg.WebSocket.MaxConnNum {
		c.String(consts.StatusServiceUnavailable, "connection limit exceeded")
		return
	}

	id, err := s.authenticate(ctx, c)
	if err != nil {
		status := consts.StatusUnauthorized
		if errors.Is(err, errcode.ErrInternalServer) {
			status = consts.StatusServiceUnavailable
		}
		c.String(status, err.Error())
		return
	}

	err = upgrader.Upgrade(c, func(ws *websocket.Conn) {
		conn := NewConnection(NewWsTransport(ws, s.cfg.WebSocket), id, uuid.NewString(), s)
		if !s.RegisterConnection(conn) {
			_ = conn.Close()
			return
		}
		conn.serve()
	})
	if err != nil {
		log.CtxWarn(ctx, "websocket upgrade failed: user_id=%s, error=%v", id.UserId, err)
	}
}

// authenticate validates the token query against the claimed user and platform
func (s *WsServer) authenticate(ctx context.Context, c *app.RequestContext) (Identity, error) {
	token := c.Query(QueryToken)
	userId := c.Query(QueryUserId)
	platformId, _ := strconv.Atoi(c.Query(QueryPlatformId))
	if token == "" || userId == "" {
		return Identity{}, ErrInvalidProtocol
	}

	claims, err := s.validator.ValidateTokenWithUser(ctx, token, userId, platformId)
	if err != nil {
		log.CtxDebug(ctx, "handshake rejected: user_id=%s, error=%v", userId, err)
		return Identity{}, err
	}
	return Identity{UserId: claims.UserId, PlatformId: claims.PlatformId, Token: token}, nil
}
