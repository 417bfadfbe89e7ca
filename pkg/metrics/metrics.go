package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	MessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "uq",
		Name:      "messages_sent_total",
		Help:      "Messages persisted by the send endpoint.",
	})

	// PushTotal counts push deliveries per connection, labelled ok, failed or dropped.
	PushTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "uq",
		Name:      "push_total",
		Help:      "Insert events pushed to websocket connections.",
	}, []string{"result"})

	WsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "uq",
		Name:      "ws_connections",
		Help:      "Open websocket connections on this instance.",
	})

	AICalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "uq",
		Name:      "ai_calls_total",
		Help:      "Calls to the text completion provider.",
	}, []string{"op", "result"})

	PresenceSwept = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "uq",
		Name:      "presence_marked_away_total",
		Help:      "Users moved from online to away by the presence sweeper.",
	})
)

const (
	ResultOK      = "ok"
	ResultFailed  = "failed"
	ResultDropped = "dropped"
)

func init() {
	prometheus.MustRegister(MessagesSent, PushTotal, WsConnections, AICalls, PresenceSwept)
}
