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
	"fmt"
	"os"

	"github.com/tomoncle/hummerx/utils"
	"gopkg.in/yaml.v3"
)

// LoadConfig reads a YAML config file on top of DefaultConfig and applies
// the DB_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig is LoadConfig for in-memory YAML.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	ApplyEnvOverrides(&cfg.Connection)
	return cfg, nil
}

// ApplyEnvOverrides overrides connection settings from DB_* environment
// variables. Durations accept "30s" or a number of seconds.
func ApplyEnvOverrides(cfg *ConnectionConfig) {
	cfg.Type = utils.EnvDefaultString("DB_TYPE", cfg.Type)
	cfg.Host = utils.EnvDefaultString("DB_HOST", cfg.Host)
	cfg.Port = utils.EnvDefaultInt("DB_PORT", cfg.Port)
	cfg.Username = utils.EnvDefaultString("DB_USERNAME", cfg.Username)
	cfg.Password = utils.EnvDefaultString("DB_PASSWORD", cfg.Password)
	cfg.DBName = utils.EnvDefaultString("DB_NAME", cfg.DBName)
	cfg.SSLMode = utils.EnvDefaultString("DB_SSLMODE", cfg.SSLMode)

	cfg.MaxIdleConns = utils.EnvDefaultInt("DB_MAX_IDLE_CONNS", cfg.MaxIdleConns)
	cfg.MaxOpenConns = utils.EnvDefaultInt("DB_MAX_OPEN_CONNS", cfg.MaxOpenConns)
	cfg.ConnMaxLifetime = utils.EnvDefaultDuration("DB_CONN_MAX_LIFETIME", cfg.ConnMaxLifetime)

	cfg.EnableReconnect = utils.EnvDefaultBool("DB_ENABLE_RECONNECT", cfg.EnableReconnect)
	cfg.ReconnectInterval = utils.EnvDefaultDuration("DB_RECONNECT_INTERVAL", cfg.ReconnectInterval)

	cfg.EnableQueryLog = utils.EnvDefaultBool("DB_ENABLE_QUERY_LOG", cfg.EnableQueryLog)
	cfg.SlowQueryTime = utils.EnvDefaultDuration("DB_SLOW_QUERY_TIME", cfg.SlowQueryTime)
}
