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
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type shelf struct {
	bun.BaseModel `bun:"table:shelves"`

	ID   int64  `bun:"id,pk"`
	Name string `bun:"name,notnull"`
}

type volume struct {
	bun.BaseModel `bun:"table:volumes"`

	ID      int64  `bun:"id,pk"`
	ShelfID int64  `bun:"shelf_id"`
	Title   string `bun:"title"`
}

func newTestSQLiteDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// sqliteConfig returns a config for a fresh SQLite file.
func sqliteConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Connection.Type = "sqlite"
	cfg.Connection.DBName = t.TempDir() + "/hummerx.db"
	cfg.Connection.HealthCheckInterval = 0
	cfg.Connection.SlowQueryTime = 0
	return cfg
}
