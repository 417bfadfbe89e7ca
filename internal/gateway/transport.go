package gateway

import (
	"sync"
	"time"

	"github.com/hertz-contrib/websocket"
	"github.com/mbeoliero/kit/log"

	"github.com/mbeoliero/uq/internal/config"
)

// Transport carries frames for one connection.
// Enqueue must not block, Close must be safe to call more than once.
type Transport interface {
	ReadFrame() ([]byte, error)
	Enqueue(frame []byte) error
	Close() error
}

// wsTransport is a Transport over a hertz websocket with a single writer goroutine
type wsTransport struct {
	conn  *websocket.Conn
	queue chan []byte
	done  chan struct{}
	once  sync.Once

	pingPeriod time.Duration
	pongWait   time.Duration
	writeWait  time.Duration
}

// NewWsTransport wraps conn and starts its writer
func NewWsTransport(conn *websocket.Conn, cfg config.WebSocketConfig) Transport {
	t := &wsTransport{
		conn:       conn,
		queue:      make(chan []byte, cfg.WriteChannelSize),
		done:       make(chan struct{}),
		pingPeriod: cfg.PingPeriod,
		pongWait:   cfg.PongWait,
		writeWait:  cfg.WriteWait,
	}

	conn.SetReadLimit(cfg.MaxMessageSize)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(t.pongWait))
	})

	go t.writer()
	return t
}

func (t *wsTransport) writer() {
	ticker := time.NewTicker(t.pingPeriod)
	defer func() {
		ticker.Stop()
		if r := recover(); r != nil {
			log.Debug("ws writer recovered: %v", r)
		}
		_ = t.conn.Close()
	}()

	for {
		select {
		case <-t.done:
			t.flush()
			_ = t.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case frame := <-t.queue:
			if err := t.write(websocket.TextMessage, frame); err != nil {
				log.Debug("ws write failed: %v", err)
				t.stop()
				return
			}
		case <-ticker.C:
			if err := t.write(websocket.PingMessage, nil); err != nil {
				log.Debug("ws ping failed: %v", err)
				t.stop()
				return
			}
		}
	}
}

// flush writes frames queued before Close, such as a kick notice
func (t *wsTransport) flush() {
	for {
		select {
		case frame := <-t.queue:
			if err := t.write(websocket.TextMessage, frame); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (t *wsTransport) write(messageType int, data []byte) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeWait)); err != nil {
		return err
	}
	return t.conn.WriteMessage(messageType, data)
}

func (t *wsTransport) ReadFrame() ([]byte, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(t.pongWait)); err != nil {
		return nil, err
	}
	_, frame, err := t.conn.ReadMessage()
	return frame, err
}

// Enqueue hands frame to the writer, a slow reader gets ErrSendQueueFull
func (t *wsTransport) Enqueue(frame []byte) error {
	select {
	case <-t.done:
		return ErrConnClosed
	default:
	}

	select {
	case t.queue <- frame:
		return nil
	case <-t.done:
		return ErrConnClosed
	default:
		return ErrSendQueueFull
	}
}

func (t *wsTransport) stop() {
	t.once.Do(func() { close(t.done) })
}

func (t *wsTransport) Close() error {
	t.stop()
	return nil
}
