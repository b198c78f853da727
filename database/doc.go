// Package database manages Bun connections for MySQL, PostgreSQL and SQLite:
// configuration, connection pooling, health checks and reconnects, query
// hooks for logging and Prometheus metrics, driver error classification and
// table creation for registered models.
package database
