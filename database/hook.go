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
	"io"
	"os"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/uptrace/bun"
)

var bunSqlSilentMode atomic.Bool

// EnableBunSqlSilent mutes QueryHook and SlowQueryHook output.
func EnableBunSqlSilent(b bool) {
	bunSqlSilentMode.Store(b)
}

var operationColors = map[string]color.Attribute{
	"SELECT": color.FgGreen,
	"INSERT": color.FgBlue,
	"UPDATE": color.FgYellow,
	"DELETE": color.FgMagenta,
}

// QueryHook prints executed queries in color. Only failed queries are
// printed unless verbose. The env variable, when set, overrides both: "0"
// disables, "2" is verbose.
type QueryHook struct {
	envName string
	enabled bool
	verbose bool
	writer  io.Writer
}

var _ bun.QueryHook = (*QueryHook)(nil)

type QueryHookOption func(*QueryHook)

func WithVerbose(on bool) QueryHookOption {
	return func(h *QueryHook) { h.verbose = on }
}

func WithWriter(w io.Writer) QueryHookOption {
	return func(h *QueryHook) { h.writer = w }
}

func WithEnvName(name string) QueryHookOption {
	return func(h *QueryHook) { h.envName = name }
}

func NewQueryHook(opts ...QueryHookOption) *QueryHook {
	h := &QueryHook{envName: "HUMMERX_SQL_LOG", enabled: true, writer: os.Stdout}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *QueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if bunSqlSilentMode.Load() {
		return
	}
	enabled, verbose := h.enabled, h.verbose
	if env, ok := os.LookupEnv(h.envName); ok {
		enabled = env != "" && env != "0"
		verbose = env == "2"
	}
	if !enabled {
		return
	}
	if !verbose {
		switch {
		case event.Err == nil, errors.Is(event.Err, sql.ErrNoRows), errors.Is(event.Err, sql.ErrTxDone):
			return
		}
	}

	now := time.Now()
	args := []interface{}{
		now.Format("2006-01-02 15:04:05.000"),
		color.CyanString("%10s", "[BUN]"),
		fmt.Sprintf("%12s", now.Sub(event.StartTime).Round(time.Microsecond)),
		" ", operationColor(event.Operation()).Sprint(event.Query),
	}
	if event.Err != nil {
		typ := reflect.TypeOf(event.Err).String()
		args = append(args, "\t", color.New(color.BgRed, color.FgHiWhite).Sprintf(" %s: %s ", typ, event.Err))
	}
	_, _ = fmt.Fprintln(h.writer, args...)
}

func operationColor(op string) *color.Color {
	if attr, ok := operationColors[op]; ok {
		return color.New(attr)
	}
	return color.New(color.FgRed)
}

// SlowQueryHook logs successful queries slower than the threshold.
type SlowQueryHook struct {
	threshold time.Duration
	logger    Logger
}

var _ bun.QueryHook = (*SlowQueryHook)(nil)

func NewSlowQueryHook(threshold time.Duration, logger Logger) *SlowQueryHook {
	if logger == nil {
		logger = GetLogger()
	}
	return &SlowQueryHook{threshold: threshold, logger: logger}
}

func (h *SlowQueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *SlowQueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if bunSqlSilentMode.Load() || event.Err != nil {
		return
	}
	if d := time.Since(event.StartTime); d > h.threshold {
		h.logger.Warn("Slow query detected",
			"duration", d.Round(time.Microsecond),
			"threshold", h.threshold,
			"operation", event.Operation(),
			"query", event.Query,
		)
	}
}
