package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	purchasesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "terminal_purchases_started_total",
		Help: "Terminal purchases successfully initiated on a device",
	})

	pollPending = promauto.NewCounter(prometheus.CounterOpts{
		Name: "terminal_poll_pending_total",
		Help: "Status checks that resolved to pending",
	})

	settlements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "terminal_settlements_total",
		Help: "Settlement outcomes by result",
	}, []string{"result"})

	pollOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "terminal_poll_outcomes_total",
		Help: "Final poller states by outcome",
	}, []string{"state"})
)
