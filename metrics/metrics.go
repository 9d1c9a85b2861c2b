// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ClientRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_client_requests_total",
		Help: "Total number of API requests sent by the client, including replays",
	}, []string{"method", "status"})

	ClientRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_client_request_duration_seconds",
		Help:    "Round-trip time of API requests",
		Buckets: prometheus.ExponentialBuckets(0.005, 2.0, 12), // 5ms to ~10s
	}, []string{"method"})

	RefreshAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_client_refresh_total",
		Help: "Access token refresh exchanges by result",
	}, []string{"result"})

	Retries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_client_retries_total",
		Help: "Requests replayed after a successful refresh, by replay status",
	}, []string{"status"})

	TokenStoreOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_token_store_operations_total",
		Help: "Token store operations by backend",
	}, []string{"backend", "operation"})

	MockAPIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_mockapi_requests_total",
		Help: "Requests served by the development stub API",
	}, []string{"route", "status"})
)

// Status labels
const (
	StatusNetworkError = "network_error"

	RefreshSuccess = "success"
	RefreshFailure = "failure"
	RefreshShared  = "shared"
)
