package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WBRequests — логические вызовы WB API по операциям.
	WBRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wb_api_requests_total",
		Help: "Logical WB API calls by operation.",
	}, []string{"op"})

	// WBRetries — повторы после временных сетевых сбоев.
	WBRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wb_api_retries_total",
		Help: "Retries after transient transport failures.",
	})

	// Updates — обработанные события бота по типу.
	Updates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_updates_total",
		Help: "Handled chat updates by kind.",
	}, []string{"kind"})
)
