package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tribunal_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// BulkCommits counts bulk commit attempts by outcome
	// (success, rejected, failed).
	BulkCommits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tribunal_bulk_commits_total",
		Help: "Total number of bulk commit attempts by outcome",
	}, []string{"outcome"})

	// StagedActions counts actions toggled on by action name.
	StagedActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tribunal_staged_actions_total",
		Help: "Total number of actions toggled on by action name",
	}, []string{"action"})

	// ModerationEvents counts commit events observed on the shared admin
	// channel, including those published by other replicas.
	ModerationEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tribunal_moderation_events_total",
		Help: "Total number of moderation events observed on the admin channel",
	})
)

// InitMetrics creates the Prometheus HTTP middleware for the given service name.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New(serviceName)
}

// MetricsMiddleware returns the Fiber handler recording HTTP metrics.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}
