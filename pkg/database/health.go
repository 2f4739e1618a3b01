package database

import (
	"context"
	"database/sql"
	"time"
)

// HealthStatus is the audit database's contribution to GET /health (§4.11):
// just enough of database/sql's pool stats to tell an operator whether the
// sink is reachable and not pool-starved, not the full Stats() dump.
type HealthStatus struct {
	Status          string        `json:"status"`
	ResponseTime    int64         `json:"response_time_ms"`
	OpenConnections int           `json:"open_connections"`
	InUse           int           `json:"in_use"`
	MaxOpenConns    int           `json:"max_open_conns"`
}

// Health pings db and reports its pool occupancy alongside reachability.
func Health(ctx context.Context, db *sql.DB) (*HealthStatus, error) {
	start := time.Now()

	if err := db.PingContext(ctx); err != nil {
		return &HealthStatus{
			Status:       "unhealthy",
			ResponseTime: time.Since(start).Milliseconds(),
		}, err
	}

	stats := db.Stats()
	return &HealthStatus{
		Status:          "healthy",
		ResponseTime:    time.Since(start).Milliseconds(),
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		MaxOpenConns:    stats.MaxOpenConnections,
	}, nil
}
