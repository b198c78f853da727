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
	"sync"

	"github.com/uptrace/bun"
)

var (
	globalMu      sync.RWMutex
	globalFactory *BaseDatabaseFactory
)

// GetDB returns the global Bun database, or nil before InitDB.
func GetDB() *bun.DB {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalFactory == nil {
		return nil
	}
	return globalFactory.GetDB()
}

func GetDatabaseManager() AbstractDatabaseManager {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalFactory == nil {
		return nil
	}
	return globalFactory.GetManager()
}

func GetDatabaseFactory() *BaseDatabaseFactory {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalFactory
}

// InitDB connects the global database described by cfg. Registered models
// are registered with Bun, and their tables are created when
// cfg.Schema.CreateTablesOnStartup is set.
func InitDB(cfg *Config) (*bun.DB, error) {
	return InitDBWithFactory(NewDatabaseFactory(), cfg)
}

// InitDBWithFactory is InitDB with a preconfigured factory.
func InitDBWithFactory(factory *BaseDatabaseFactory, cfg *Config) (*bun.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	if _, err := factory.CreateFromConfig(cfg); err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := factory.InitializeDatabase(context.Background(), cfg.Schema.CreateTablesOnStartup); err != nil {
		_ = factory.Close()
		return nil, err
	}
	db := factory.GetDB()

	globalMu.Lock()
	previous := globalFactory
	globalFactory = factory
	globalMu.Unlock()
	if previous != nil {
		_ = previous.Close()
	}
	return db, nil
}

// CloseDB closes the global database.
func CloseDB() error {
	globalMu.Lock()
	f := globalFactory
	globalFactory = nil
	globalMu.Unlock()
	if f == nil {
		return nil
	}
	return f.Close()
}

func GetHealthStatus(ctx context.Context) *HealthStatus {
	if f := GetDatabaseFactory(); f != nil {
		return f.GetHealthStatus(ctx)
	}
	return &HealthStatus{LastError: "Database not initialized"}
}

func GetDatabaseStats() *DBStats {
	if f := GetDatabaseFactory(); f != nil {
		return f.GetStats()
	}
	return &DBStats{}
}
