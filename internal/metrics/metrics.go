package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exoterra_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "exoterra_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	// outcome is one of "ok", "not_chat_room", "unavailable"
	ChainCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exoterra_chain_calls_total",
			Help: "Total ChatRoom contract reads",
		},
		[]string{"method", "outcome"},
	)

	ChainCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "exoterra_chain_call_duration_seconds",
			Help:    "ChatRoom contract read duration",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method"},
	)

	MessagesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exoterra_messages_created_total",
			Help: "Total messages created",
		},
		[]string{"channel_kind"},
	)

	MessagesRecalled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "exoterra_messages_recalled_total",
			Help: "Total messages recalled",
		},
	)

	ChannelJoins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exoterra_channel_joins_total",
			Help: "Channel join attempts",
		},
		[]string{"channel_kind", "result"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exoterra_cache_lookups_total",
			Help: "Channel cache lookups",
		},
		[]string{"result"}, // "hit" or "miss"
	)
)
