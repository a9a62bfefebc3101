package metrics

import "github.com/prometheus/client_golang/prometheus"

type Observer interface {
	Observe(val float64, labels ...string)

	// for now we will tightly couple to the prometheus collector type
	// the go otel metrics sdk also has a prometheus adapter that implements this interface.
	prometheus.Collector
}

type Metrics struct {
	CommandCount     Observer
	DenialCount      Observer
	SuspensionCount  Observer
	AppealsSubmitted Observer
	AppealsResolved  Observer
	RelayLatency     Observer
	LogEntries       Observer
	PollErrors       Observer
	DeliveryFailures Observer
}

func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.CommandCount,
		m.DenialCount,
		m.SuspensionCount,
		m.AppealsSubmitted,
		m.AppealsResolved,
		m.RelayLatency,
		m.LogEntries,
		m.PollErrors,
		m.DeliveryFailures,
	}
}

// New creates the bot's metrics. They are not registered anywhere.
func New() *Metrics {
	return &Metrics{
		CommandCount: NewPromCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "lacbot",
					Subsystem: "commands",
					Name:      "invocations",
					Help:      "Number of slash command and button invocations.",
				},
				[]string{"name"},
			),
		),
		DenialCount: NewPromCounter(
			prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "lacbot",
					Subsystem: "gate",
					Name:      "denials",
					Help:      "Number of commands refused for missing roles.",
				},
			),
		),
		SuspensionCount: NewPromCounter(
			prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "lacbot",
					Subsystem: "gate",
					Name:      "suspensions",
					Help:      "Number of suspensions started.",
				},
			),
		),
		AppealsSubmitted: NewPromCounter(
			prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "lacbot",
					Subsystem: "appeals",
					Name:      "submitted",
					Help:      "Number of ban appeals submitted.",
				},
			),
		),
		AppealsResolved: NewPromCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "lacbot",
					Subsystem: "appeals",
					Name:      "resolved",
					Help:      "Number of ban appeals accepted or denied.",
				},
				[]string{"decision"},
			),
		),
		RelayLatency: NewPromObserverVec(
			prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Buckets:   []float64{0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10},
					Namespace: "lacbot",
					Subsystem: "erlc",
					Name:      "command_latency",
					Help:      "How long commands relayed to the game server take in seconds",
				},
				[]string{"outcome"},
			),
		),
		LogEntries: NewPromCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "lacbot",
					Subsystem: "erlc",
					Name:      "log_entries",
					Help:      "Number of new game server log entries mirrored.",
				},
				[]string{"feed"},
			),
		),
		PollErrors: NewPromCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "lacbot",
					Subsystem: "erlc",
					Name:      "poll_errors",
					Help:      "Number of failed game server log fetches.",
				},
				[]string{"feed"},
			),
		),
		DeliveryFailures: NewPromCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "lacbot",
					Subsystem: "discord",
					Name:      "delivery_failures",
					Help:      "Number of best-effort messages which could not be delivered.",
				},
				[]string{"what"},
			),
		),
	}
}
