package ai

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_llm_requests_total",
		Help: "LLM calls by prompt and outcome.",
	}, []string{"prompt", "outcome"})

	metricDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "intake_llm_duration_seconds",
		Help:    "LLM call latency by prompt.",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
	}, []string{"prompt"})
)

func init() {
	prometheus.MustRegister(metricRequests, metricDuration)
}

// generate calls the provider and records the outcome.
func generate(ctx context.Context, llm LLM, req Request) (string, error) {
	start := time.Now()
	out, err := llm.Generate(ctx, req)
	metricDuration.With(prometheus.Labels{"prompt": req.Prompt}).Observe(time.Since(start).Seconds())

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metricRequests.With(prometheus.Labels{"prompt": req.Prompt, "outcome": outcome}).Inc()
	return out, providerError(err, req.Prompt+" generation")
}

func markInvalid(prompt string) {
	metricRequests.With(prometheus.Labels{"prompt": prompt, "outcome": "invalid"}).Inc()
}
