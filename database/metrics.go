/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
)

// MetricsHook records query counts and latencies per operation.
type MetricsHook struct {
	queries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ bun.QueryHook = (*MetricsHook)(nil)

// NewMetricsHook registers the hook's collectors on reg. An empty namespace
// means "hummerx".
func NewMetricsHook(reg prometheus.Registerer, namespace string) (*MetricsHook, error) {
	if namespace == "" {
		namespace = "hummerx"
	}
	h := &MetricsHook{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Number of executed queries by operation and status.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Query latency by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg == nil {
		return h, nil
	}
	queries, err := register(reg, h.queries)
	if err != nil {
		return nil, fmt.Errorf("register %s metrics: %w", namespace, err)
	}
	duration, err := register(reg, h.duration)
	if err != nil {
		return nil, fmt.Errorf("register %s metrics: %w", namespace, err)
	}
	h.queries, h.duration = queries, duration
	return h, nil
}

// register returns the already registered collector when an equal one
// exists, so that several databases can share the metrics.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (h *MetricsHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *MetricsHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	op := strings.ToLower(event.Operation())
	if op == "" {
		op = "other"
	}
	h.queries.WithLabelValues(op, queryStatus(event.Err)).Inc()
	h.duration.WithLabelValues(op).Observe(time.Since(event.StartTime).Seconds())
}

// Collectors returns the hook's collectors, e.g. for a private registry.
func (h *MetricsHook) Collectors() []prometheus.Collector {
	return []prometheus.Collector{h.queries, h.duration}
}

func queryStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, sql.ErrNoRows):
		return "no_rows"
	default:
		return "error"
	}
}
