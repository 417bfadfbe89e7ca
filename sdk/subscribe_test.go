package sdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pushServer struct {
	t        *testing.T
	frames   []wsResponse
	received chan wsRequest
	query    chan map[string]string
}

func newPushServer(t *testing.T, frames ...wsResponse) (*pushServer, *httptest.Server) {
	p := &pushServer{
		t:        t,
		frames:   frames,
		received: make(chan wsRequest, 16),
		query:    make(chan map[string]string, 1),
	}
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.query <- map[string]string{
			"path":        r.URL.Path,
			"token":       r.URL.Query().Get("token"),
			"user_id":     r.URL.Query().Get("user_id"),
			"platform_id": r.URL.Query().Get("platform_id"),
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for _, f := range p.frames {
			data, _ := json.Marshal(f)
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req wsRequest
			if json.Unmarshal(data, &req) == nil {
				p.received <- req
			}
		}
	}))
	return p, srv
}

func pushFrame(t *testing.T, event MessageEvent) wsResponse {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return wsResponse{ReqIdentifier: WSPushMsg, Data: data}
}

func waitDone(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not end")
	}
}

func TestSubscribeDeliversInserts(t *testing.T) {
	event := MessageEvent{Id: "42", SenderId: "bob", RecipientId: "alice", CreatedAt: 1000}
	p, srv := newPushServer(t, wsResponse{ReqIdentifier: WSHeartbeat}, pushFrame(t, event))
	defer srv.Close()

	c := MustNewClient(srv.URL, WithDefaultSession(Session{UserId: "alice", Token: "tok"}))
	got := make(chan *MessageEvent, 1)
	sub, err := c.Subscribe(context.Background(), func(e *MessageEvent) { got <- e }, WithHeartbeatInterval(0))
	require.NoError(t, err)

	q := <-p.query
	assert.Equal(t, "/ws", q["path"])
	assert.Equal(t, "tok", q["token"])
	assert.Equal(t, "alice", q["user_id"])
	assert.Equal(t, "6", q["platform_id"])

	select {
	case e := <-got:
		assert.Equal(t, event, *e)
	case <-time.After(2 * time.Second):
		t.Fatal("no insert delivered")
	}

	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, sub.Unsubscribe())
	waitDone(t, sub)
	assert.NoError(t, sub.Err())
}

func TestSubscribeSendsHeartbeats(t *testing.T) {
	p, srv := newPushServer(t)
	defer srv.Close()

	c := MustNewClient(srv.URL)
	ctx := WithSession(context.Background(), &Session{UserId: "alice", Token: "tok"})
	sub, err := c.Subscribe(ctx, nil, WithHeartbeatInterval(10*time.Millisecond))
	require.NoError(t, err)
	defer sub.Unsubscribe()

	select {
	case req := <-p.received:
		assert.Equal(t, int32(WSHeartbeat), req.ReqIdentifier)
		assert.Equal(t, "alice", req.SendId)
		assert.Equal(t, "1", req.MsgIncr)
	case <-time.After(2 * time.Second):
		t.Fatal("no heartbeat received")
	}
}

func TestSubscribeKicked(t *testing.T) {
	_, srv := newPushServer(t, wsResponse{ReqIdentifier: WSKickOnlineMsg})
	defer srv.Close()

	c := MustNewClient(srv.URL, WithDefaultSession(Session{UserId: "alice", Token: "tok"}))
	sub, err := c.Subscribe(context.Background(), nil, WithHeartbeatInterval(0))
	require.NoError(t, err)

	waitDone(t, sub)
	assert.ErrorIs(t, sub.Err(), ErrKicked)
	assert.NoError(t, sub.Unsubscribe())
}

func TestSubscribeEndsWithContext(t *testing.T) {
	_, srv := newPushServer(t)
	defer srv.Close()

	c := MustNewClient(srv.URL, WithDefaultSession(Session{UserId: "alice", Token: "tok"}))
	ctx, cancel := context.WithCancel(context.Background())
	sub, err := c.Subscribe(ctx, nil, WithHeartbeatInterval(0))
	require.NoError(t, err)

	cancel()
	waitDone(t, sub)
	assert.NoError(t, sub.Err())
}

func TestSubscribeRequiresSession(t *testing.T) {
	c := MustNewClient("http://127.0.0.1:1")
	_, err := c.Subscribe(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestWsURL(t *testing.T) {
	c := MustNewClient("https://uq.test/api/", WithPlatformId(PlatformIdWeb))
	u, err := c.wsURL(Session{UserId: "a b", Token: "t"})
	require.NoError(t, err)
	assert.Equal(t, "wss://uq.test/api/ws?platform_id=5&token=t&user_id=a+b", u)
}
