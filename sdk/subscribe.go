package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultHeartbeatInterval stays under the server's online TTL
const DefaultHeartbeatInterval = 25 * time.Second

const writeWait = 10 * time.Second

type wsRequest struct {
	ReqIdentifier int32  `json:"req_identifier"`
	MsgIncr       string `json:"msg_incr"`
	SendId        string `json:"send_id"`
}

type wsResponse struct {
	ReqIdentifier int32           `json:"req_identifier"`
	MsgIncr       string          `json:"msg_incr"`
	ErrCode       int             `json:"err_code"`
	ErrMsg        string          `json:"err_msg"`
	Data          json.RawMessage `json:"data,omitempty"`
}

// SubscribeOption configures a subscription
type SubscribeOption func(*subscribeOptions)

type subscribeOptions struct {
	dialer    *websocket.Dialer
	heartbeat time.Duration
}

// WithDialer sets the websocket dialer
func WithDialer(d *websocket.Dialer) SubscribeOption {
	return func(o *subscribeOptions) {
		o.dialer = d
	}
}

// WithHeartbeatInterval sets how often a heartbeat is sent, zero disables it
func WithHeartbeatInterval(d time.Duration) SubscribeOption {
	return func(o *subscribeOptions) {
		o.heartbeat = d
	}
}

// Subscription is a live push connection.
// Unsubscribe releases it, cancelling the context passed to Subscribe does the same.
type Subscription struct {
	conn     *websocket.Conn
	userId   string
	onInsert func(*MessageEvent)

	writeMu sync.Mutex
	once    sync.Once
	stop    chan struct{}
	done    chan struct{}

	mu  sync.Mutex
	err error
	seq int64
}

// Subscribe opens a push connection and calls onInsert for every message
// inserted where the session user is sender or recipient.
// onInsert runs on the read goroutine and must not block.
func (c *Client) Subscribe(ctx context.Context, onInsert func(*MessageEvent), opts ...SubscribeOption) (*Subscription, error) {
	sess := c.sessionFor(ctx)
	if !sess.Valid() {
		return nil, ErrNoSession
	}

	o := subscribeOptions{
		dialer:    websocket.DefaultDialer,
		heartbeat: DefaultHeartbeatInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}

	wsURL, err := c.wsURL(sess)
	if err != nil {
		return nil, err
	}

	conn, resp, err := o.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to dial push connection: status=%d, %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to dial push connection: %w", err)
	}

	s := &Subscription{
		conn:     conn,
		userId:   sess.UserId,
		onInsert: onInsert,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	go s.readLoop()
	if o.heartbeat > 0 {
		go s.heartbeatLoop(o.heartbeat)
	}
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Unsubscribe()
		case <-s.done:
		}
	}()

	return s, nil
}

// wsURL derives ws(s)://host/ws from the http base url
func (c *Client) wsURL(sess Session) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"

	platformId := sess.PlatformId
	if platformId == 0 {
		platformId = c.platformId
	}
	q := url.Values{}
	q.Set("token", sess.Token)
	q.Set("user_id", sess.UserId)
	q.Set("platform_id", strconv.Itoa(platformId))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *Subscription) readLoop() {
	defer close(s.done)
	defer s.conn.Close()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.finish(err)
			return
		}

		var resp wsResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			continue
		}

		switch resp.ReqIdentifier {
		case WSPushMsg:
			var event MessageEvent
			if err := json.Unmarshal(resp.Data, &event); err != nil || event.Id == "" {
				continue
			}
			if s.onInsert != nil {
				s.onInsert(&event)
			}
		case WSKickOnlineMsg:
			s.finish(ErrKicked)
			return
		}
	}
}

func (s *Subscription) heartbeatLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.sendHeartbeat(); err != nil {
				return
			}
		}
	}
}

func (s *Subscription) sendHeartbeat() error {
	s.mu.Lock()
	s.seq++
	req := wsRequest{ReqIdentifier: WSHeartbeat, MsgIncr: strconv.FormatInt(s.seq, 10), SendId: s.userId}
	s.mu.Unlock()

	data, err := json.Marshal(req)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// finish records why the read loop ended, an Unsubscribe in progress is not an error
func (s *Subscription) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.stop:
		return
	default:
	}
	if errors.Is(err, ErrKicked) || !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		s.err = err
	}
}

// Unsubscribe closes the connection and waits for the read loop to exit.
// It is safe to call more than once, but not from onInsert.
func (s *Subscription) Unsubscribe() error {
	s.once.Do(func() {
		s.mu.Lock()
		close(s.stop)
		s.mu.Unlock()

		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		s.writeMu.Unlock()
		_ = s.conn.Close()
	})
	<-s.done
	return nil
}

// Done is closed once the subscription has ended
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err reports why the subscription ended on its own, nil after Unsubscribe
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
