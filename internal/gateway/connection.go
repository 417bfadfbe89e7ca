package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/mbeoliero/kit/log"

	"github.com/mbeoliero/uq/internal/entity"
)

// Identity is who a connection was authenticated as
type Identity struct {
	UserId     string
	PlatformId int
	Token      string
}

// Connection is one authenticated push connection
type Connection struct {
	Identity
	Id string

	transport Transport
	server    *WsServer
	writeMu   sync.Mutex
	closed    atomic.Bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewConnection binds transport to the server under id
func NewConnection(transport Transport, id Identity, connId string, server *WsServer) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		Identity:  id,
		Id:        connId,
		transport: transport,
		server:    server,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// serve reads frames until the transport fails, then hands the connection back to the server
func (c *Connection) serve() {
	defer func() {
		if r := recover(); r != nil {
			log.CtxError(c.ctx, "connection read loop panic: user_id=%s, conn_id=%s, error=%v", c.UserId, c.Id, r)
		}
		_ = c.Close()
		c.server.UnregisterConnection(c)
	}()

	for !c.closed.Load() {
		frame, err := c.transport.ReadFrame()
		if err != nil {
			log.CtxDebug(c.ctx, "connection read ended: user_id=%s, conn_id=%s, error=%v", c.UserId, c.Id, err)
			return
		}
		if err := c.dispatch(frame); err != nil {
			log.CtxWarn(c.ctx, "connection dispatch failed: user_id=%s, error=%v", c.UserId, err)
			return
		}
	}
}

// dispatch answers one client frame; only heartbeats are accepted
func (c *Connection) dispatch(frame []byte) error {
	var req WSRequest
	if err := json.Unmarshal(frame, &req); err != nil {
		return c.fail(&req, ErrInvalidProtocol)
	}
	if req.SendId != "" && req.SendId != c.UserId {
		return c.fail(&req, ErrUserIdMismatch)
	}

	if req.ReqIdentifier != WSHeartbeat {
		return c.fail(&req, ErrInvalidProtocol)
	}

	data, err := c.server.HandleHeartbeat(c.ctx, c)
	if err != nil {
		return c.fail(&req, err)
	}
	return c.send(WSResponse{
		ReqIdentifier: req.ReqIdentifier,
		MsgIncr:       req.MsgIncr,
		OperationId:   req.OperationId,
		Data:          data,
	})
}

func (c *Connection) fail(req *WSRequest, err error) error {
	return c.send(WSResponse{
		ReqIdentifier: req.ReqIdentifier,
		MsgIncr:       req.MsgIncr,
		OperationId:   req.OperationId,
		ErrCode:       WSDataError,
		ErrMsg:        err.Error(),
	})
}

// send encodes resp and queues it; frames after Close are dropped silently
func (c *Connection) send(resp WSResponse) error {
	frame, err := json.Marshal(resp)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed.Load() {
		return nil
	}
	return c.transport.Enqueue(frame)
}

// Push queues an insert event
func (c *Connection) Push(event *entity.MessageEvent) error {
	if c.closed.Load() {
		return ErrConnClosed
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return c.send(WSResponse{ReqIdentifier: WSPushMsg, Data: data})
}

// Kick tells the client it was signed out, then closes
func (c *Connection) Kick() error {
	_ = c.send(WSResponse{ReqIdentifier: WSKickOnlineMsg})
	return c.Close()
}

// Close is idempotent
func (c *Connection) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed.Swap(true) {
		return nil
	}
	c.cancel()
	return c.transport.Close()
}

// Closed reports whether Close was called
func (c *Connection) Closed() bool {
	return c.closed.Load()
}
