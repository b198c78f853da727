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
	"fmt"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
)

var supportedTypes = []string{"mysql", "postgres", "postgresql", "sqlite", "sqlite3"}

// BaseDatabaseFactory creates the database manager for a Config and wires
// its hooks.
type BaseDatabaseFactory struct {
	manager    AbstractDatabaseManager
	logger     Logger
	registerer prometheus.Registerer
}

// NewDatabaseFactory returns a new database factory using the global logger
// and the default Prometheus registerer.
func NewDatabaseFactory() *BaseDatabaseFactory {
	return &BaseDatabaseFactory{
		logger:     GetLogger(),
		registerer: prometheus.DefaultRegisterer,
	}
}

// SetRegisterer sets where the metrics hook registers its collectors.
func (f *BaseDatabaseFactory) SetRegisterer(reg prometheus.Registerer) {
	f.registerer = reg
}

// CreateFromConfig validates cfg, applies the environment overrides and
// builds the manager.
func (f *BaseDatabaseFactory) CreateFromConfig(cfg *Config) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	conn := &cfg.Connection
	ApplyEnvOverrides(conn)
	if !slices.Contains(supportedTypes, conn.Type) {
		return nil, fmt.Errorf("unsupported database type: %s, supported types: %v", conn.Type, supportedTypes)
	}

	var opts []ManagerOption
	if cfg.Metrics.Enabled {
		hook, err := NewMetricsHook(f.registerer, cfg.Metrics.Namespace)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics hook: %w", err)
		}
		opts = append(opts, WithQueryHooks(hook))
	}

	manager := NewDatabaseManager(conn, opts...)
	manager.SetLogger(f.logger)
	f.manager = manager
	return manager, nil
}

// InitializeDatabase connects, registers the registered models with Bun and
// optionally creates their tables.
func (f *BaseDatabaseFactory) InitializeDatabase(ctx context.Context, createTables bool) error {
	if f.manager == nil {
		return fmt.Errorf("database manager not created")
	}
	if err := f.manager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	f.manager.GetDB().RegisterModel(RegisteredModelInstances()...)
	if createTables {
		if err := f.manager.CreateTables(ctx); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	f.logger.Info("Database initialization completed")
	return nil
}

func (f *BaseDatabaseFactory) GetManager() AbstractDatabaseManager {
	return f.manager
}

// GetDB returns the Bun database instance, or nil if not initialized.
func (f *BaseDatabaseFactory) GetDB() *bun.DB {
	if f.manager == nil {
		return nil
	}
	return f.manager.GetDB()
}

func (f *BaseDatabaseFactory) SetLogger(logger Logger) {
	f.logger = logger
	if f.manager != nil {
		f.manager.SetLogger(logger)
	}
}

func (f *BaseDatabaseFactory) Close() error {
	if f.manager == nil {
		return nil
	}
	return f.manager.Disconnect()
}

func (f *BaseDatabaseFactory) GetHealthStatus(ctx context.Context) *HealthStatus {
	if f.manager == nil {
		return &HealthStatus{
			LastError:     "Database manager not initialized",
			LastCheckTime: time.Now(),
		}
	}
	return f.manager.HealthCheck(ctx)
}

func (f *BaseDatabaseFactory) GetStats() *DBStats {
	if f.manager == nil {
		return &DBStats{}
	}
	return f.manager.GetStats()
}
