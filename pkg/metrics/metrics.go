package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records login attempts by account kind and result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medconnect_auth_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"kind", "result"},
	)

	// VerificationAttempts counts verification code submissions and their outcome.
	VerificationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medconnect_verification_attempts_total",
			Help: "Total number of account verification attempts",
		},
		[]string{"kind", "result"},
	)

	// PasswordResets counts password reset requests and consumptions.
	PasswordResets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medconnect_password_resets_total",
			Help: "Total number of password reset operations",
		},
		[]string{"stage", "result"},
	)

	// Dispatches counts outbound verification messages by channel (email|sms).
	Dispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medconnect_dispatches_total",
			Help: "Total number of dispatched notification messages",
		},
		[]string{"channel", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "medconnect_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
