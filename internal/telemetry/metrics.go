package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DocumentSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stage_document_saves_total",
		Help: "Successful session document saves by store.",
	}, []string{"store"})

	DocumentSaveFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stage_document_save_failures_total",
		Help: "Failed session document save attempts by store.",
	}, []string{"store"})

	BroadcastsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stage_broadcasts_received_total",
		Help: "Cross-context change notifications received.",
	})

	TimerExpirations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stage_timer_expirations_total",
		Help: "Countdown expirations by timer kind.",
	}, []string{"kind"})
)
