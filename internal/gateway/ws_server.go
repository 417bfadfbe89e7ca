package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mbeoliero/kit/log"
	"github.com/redis/go-redis/v9"

	"github.com/mbeoliero/uq/internal/config"
	"github.com/mbeoliero/uq/internal/entity"
	"github.com/mbeoliero/uq/pkg/jwt"
	"github.com/mbeoliero/uq/pkg/metrics"
)

const (
	defaultPushWorkers = 10
	connEventQueueSize = 1000
)

// TokenValidator checks a handshake token against the claimed user and platform
type TokenValidator interface {
	ValidateTokenWithUser(ctx context.Context, token, userId string, platformId int) (*jwt.Claims, error)
}

// PresenceTracker records user activity
type PresenceTracker interface {
	MarkActive(ctx context.Context, userId string) error
}

// WsServer fans message insert events out to connected users
type WsServer struct {
	cfg       *config.Config
	conns     *registry
	online    *onlineStore
	validator TokenValidator
	presence  PresenceTracker

	// register and unregister share one queue so a connection is never removed before it is added
	events   chan connEvent
	stopped  chan struct{}
	pushChan chan *PushTask
}

type connEvent struct {
	conn     *Connection
	register bool
}

// PushTask is one event addressed to a set of users
type PushTask struct {
	Event     *entity.MessageEvent
	TargetIds []string
}

// NewWsServer creates a push gateway; rdb may be nil for a single instance
func NewWsServer(cfg *config.Config, rdb *redis.Client, validator TokenValidator, presence PresenceTracker) *WsServer {
	return &WsServer{
		cfg:       cfg,
		conns:     newRegistry(),
		online:    &onlineStore{rdb: rdb, ttl: cfg.WebSocket.OnlineTTL},
		validator: validator,
		presence:  presence,
		events:    make(chan connEvent, connEventQueueSize),
		stopped:   make(chan struct{}),
		pushChan:  make(chan *PushTask, cfg.WebSocket.PushChannelSize),
	}
}

// Run starts the registration loop and the push workers, all stop with ctx
func (s *WsServer) Run(ctx context.Context) {
	go s.eventLoop(ctx)

	workers := s.cfg.WebSocket.PushWorkerNum
	if workers <= 0 {
		workers = defaultPushWorkers
	}
	for i := 0; i < workers; i++ {
		go s.pushLoop(ctx)
	}
	log.Info("push gateway started: workers=%d", workers)
}

func (s *WsServer) eventLoop(ctx context.Context) {
	defer close(s.stopped)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.events:
			if ev.register {
				s.register(ctx, ev.conn)
			} else {
				s.unregister(ctx, ev.conn)
			}
		}
	}
}

// enqueue waits for room in the event queue; once the loop has stopped the event is discarded
func (s *WsServer) enqueue(ev connEvent) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.stopped:
		return false
	}
}

func (s *WsServer) pushLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-s.pushChan:
			s.deliver(ctx, task)
		}
	}
}

// deliver writes one event to every local connection of the targets
func (s *WsServer) deliver(ctx context.Context, task *PushTask) {
	for _, userId := range task.TargetIds {
		for _, conn := range s.conns.connections(userId) {
			if err := conn.Push(task.Event); err != nil {
				metrics.PushTotal.WithLabelValues(metrics.ResultFailed).Inc()
				log.CtxDebug(ctx, "push failed: user_id=%s, conn_id=%s, error=%v", userId, conn.Id, err)
				continue
			}
			metrics.PushTotal.WithLabelValues(metrics.ResultOK).Inc()
		}
	}
}

// register adds conn and kicks same-platform connections holding an older token
func (s *WsServer) register(ctx context.Context, conn *Connection) {
	first, stale := s.conns.add(conn)
	for _, old := range stale {
		log.CtxInfo(ctx, "kicking stale connection: user_id=%s, platform_id=%d, conn_id=%s", old.UserId, old.PlatformId, old.Id)
		_ = old.Kick()
	}
	if first {
		s.online.mark(ctx, conn.UserId)
	}
	metrics.WsConnections.Inc()

	if s.presence != nil {
		if err := s.presence.MarkActive(ctx, conn.UserId); err != nil {
			log.CtxWarn(ctx, "mark active on connect failed: user_id=%s, error=%v", conn.UserId, err)
		}
	}

	users, conns := s.conns.counts()
	log.CtxInfo(ctx, "connection registered: user_id=%s, platform_id=%d, conn_id=%s, online_users=%d, online_conns=%d",
		conn.UserId, conn.PlatformId, conn.Id, users, conns)
}

func (s *WsServer) unregister(ctx context.Context, conn *Connection) {
	removed, last := s.conns.remove(conn)
	if !removed {
		return
	}
	metrics.WsConnections.Dec()
	if last {
		s.online.clear(ctx, conn.UserId)
	}

	users, conns := s.conns.counts()
	log.CtxInfo(ctx, "connection unregistered: user_id=%s, conn_id=%s, user_offline=%v, online_users=%d, online_conns=%d",
		conn.UserId, conn.Id, last, users, conns)
}

// RegisterConnection queues conn for registration, behind any earlier event
func (s *WsServer) RegisterConnection(conn *Connection) bool {
	return s.enqueue(connEvent{conn: conn, register: true})
}

// UnregisterConnection queues conn for removal, blocking while the queue is full
func (s *WsServer) UnregisterConnection(conn *Connection) {
	if !s.enqueue(connEvent{conn: conn}) {
		log.Debug("gateway stopped, unregister skipped: user_id=%s, conn_id=%s", conn.UserId, conn.Id)
	}
}

// AsyncPushToUsers queues an insert event for users; a full queue drops it
func (s *WsServer) AsyncPushToUsers(event *entity.MessageEvent, userIds []string) {
	select {
	case s.pushChan <- &PushTask{Event: event, TargetIds: userIds}:
	default:
		metrics.PushTotal.WithLabelValues(metrics.ResultDropped).Inc()
		log.Warn("push queue full, event dropped: id=%s, recipient_id=%s", event.Id, event.RecipientId)
	}
}

// HandleHeartbeat refreshes the online key and last_seen of the connection's user
func (s *WsServer) HandleHeartbeat(ctx context.Context, conn *Connection) ([]byte, error) {
	s.online.touch(ctx, conn.UserId)
	if s.presence != nil {
		if err := s.presence.MarkActive(ctx, conn.UserId); err != nil {
			log.CtxWarn(ctx, "mark active on heartbeat failed: user_id=%s, error=%v", conn.UserId, err)
		}
	}
	return json.Marshal(HeartbeatResp{ServerTime: time.Now().UnixMilli()})
}

// IsOnline reports whether userId holds a connection on any instance
func (s *WsServer) IsOnline(ctx context.Context, userId string) bool {
	return s.conns.has(userId) || s.online.exists(ctx, userId)
}

// OnlineCounts returns users and connections held by this instance
func (s *WsServer) OnlineCounts() (users, conns int) {
	return s.conns.counts()
}
