package chat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CompletionsTotal counts successful chat completions by mode.
	CompletionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_completions_total",
		Help: "Total number of chat completions served, by mode",
	}, []string{"mode"})
)
