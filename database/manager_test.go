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
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteDSN(t *testing.T) {
	tests := map[string]string{
		"":                     "file::memory:?cache=shared",
		":memory:":             ":memory:",
		"file:app?mode=memory": "file:app?mode=memory",
		"/var/lib/app/data.db": "/var/lib/app/data.db",
		"data.sqlite":          "data.sqlite",
		"library":              "library.db",
		"/var/lib/app/library": "/var/lib/app/library.db",
	}
	for in, want := range tests {
		assert.Equal(t, want, sqliteDSN(in), in)
	}
}

func TestManagerLifecycle(t *testing.T) {
	ctx := context.Background()
	cfg := sqliteConfig(t)
	logger := &recordingLogger{}
	manager := NewDatabaseManager(&cfg.Connection)
	manager.SetLogger(logger)
	manager.SetLogger(nil)

	assert.Error(t, manager.Ping(ctx))
	status := manager.HealthCheck(ctx)
	assert.False(t, status.Healthy)
	assert.Equal(t, "Database not initialized", status.LastError)
	assert.Error(t, manager.CreateTables(ctx))
	assert.Equal(t, &DBStats{}, manager.GetStats())

	require.NoError(t, manager.Connect(ctx))
	require.NoError(t, manager.Connect(ctx))
	require.NotNil(t, manager.GetDB())
	require.NotNil(t, manager.GetSQLDB())
	require.NoError(t, manager.Ping(ctx))

	status = manager.HealthCheck(ctx)
	assert.True(t, status.Healthy)
	assert.True(t, status.Connected)
	assert.Equal(t, 100, status.MaxOpenConns)
	assert.Equal(t, 100, manager.GetStats().MaxOpenConns)

	require.NoError(t, CreateTablesFor(ctx, manager.GetDB(), logger, (*shelf)(nil)))
	_, err := manager.GetDB().NewInsert().Model(&shelf{ID: 1, Name: "sci-fi"}).Exec(ctx)
	require.NoError(t, err)

	require.NoError(t, manager.Reconnect(ctx))
	n, err := manager.GetDB().NewSelect().Model((*shelf)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, manager.Disconnect())
	require.NoError(t, manager.Disconnect())
	assert.Nil(t, manager.GetDB())

	var infos []string
	for _, e := range logger.byLevel("info") {
		infos = append(infos, e.msg)
	}
	assert.Contains(t, infos, "Database connected")
	assert.Contains(t, infos, "Database connection closed")
}

func TestManagerRejectsUnknownType(t *testing.T) {
	cfg := DefaultConnectionConfig()
	cfg.Type = "oracle"
	cfg.HealthCheckInterval = 0
	manager := NewDatabaseManager(cfg)
	manager.SetLogger(&recordingLogger{})
	assert.ErrorContains(t, manager.Connect(context.Background()), "unsupported database type")
}

func TestFactoryCreateFromConfig(t *testing.T) {
	factory := NewDatabaseFactory()
	factory.SetLogger(&recordingLogger{})

	_, err := factory.CreateFromConfig(nil)
	assert.Error(t, err)

	cfg := sqliteConfig(t)
	cfg.Connection.Type = "oracle"
	_, err = factory.CreateFromConfig(cfg)
	assert.ErrorContains(t, err, "unsupported database type")

	assert.Error(t, factory.InitializeDatabase(context.Background(), false))
	assert.Nil(t, factory.GetDB())
	assert.Equal(t, "Database manager not initialized", factory.GetHealthStatus(context.Background()).LastError)
	assert.Equal(t, &DBStats{}, factory.GetStats())
	assert.NoError(t, factory.Close())
}

func TestFactoryWithMetrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	factory := NewDatabaseFactory()
	factory.SetRegisterer(reg)
	factory.SetLogger(&recordingLogger{})

	cfg := sqliteConfig(t)
	cfg.Metrics = MetricsConfig{Enabled: true, Namespace: "factory_test"}
	_, err := factory.CreateFromConfig(cfg)
	require.NoError(t, err)
	require.NoError(t, factory.InitializeDatabase(ctx, false))
	t.Cleanup(func() { _ = factory.Close() })

	var one int
	require.NoError(t, factory.GetDB().NewSelect().ColumnExpr("1").Scan(ctx, &one))

	n, err := testutil.GatherAndCount(reg, "factory_test_queries_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, factory.GetHealthStatus(ctx).Healthy)
}

func TestInitDB(t *testing.T) {
	factory := NewDatabaseFactory()
	factory.SetRegisterer(prometheus.NewRegistry())
	factory.SetLogger(&recordingLogger{})

	db, err := InitDBWithFactory(factory, sqliteConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = CloseDB() })

	assert.Same(t, db, GetDB())
	assert.Same(t, factory, GetDatabaseFactory())
	assert.NotNil(t, GetDatabaseManager())
	assert.True(t, GetHealthStatus(context.Background()).Healthy)
	assert.NotNil(t, GetDatabaseStats())

	require.NoError(t, CloseDB())
	assert.Nil(t, GetDB())
	assert.Nil(t, GetDatabaseManager())
	assert.Equal(t, "Database not initialized", GetHealthStatus(context.Background()).LastError)
	assert.Equal(t, &DBStats{}, GetDatabaseStats())

	_, err = InitDB(nil)
	assert.Error(t, err)
}
