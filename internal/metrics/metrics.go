package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Failure stages.
const (
	StageConfig    = "config"
	StageCompose   = "compose"
	StageTransport = "transport"
)

var (
	MessagesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailsender_messages_sent_total",
		Help: "Total number of messages accepted by a transport",
	}, []string{"transport"})
	MessagesFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailsender_messages_failed_total",
		Help: "Total number of sends that failed, by the stage that failed",
	}, []string{"transport", "stage"})
)

func init() {
	prometheus.MustRegister(MessagesSent)
	prometheus.MustRegister(MessagesFailed)
}

// RecordSent counts a delivered message.
func RecordSent(transport string) {
	MessagesSent.WithLabelValues(transport).Inc()
}

// RecordFailed counts a failed send.
func RecordFailed(transport, stage string) {
	MessagesFailed.WithLabelValues(transport, stage).Inc()
}
