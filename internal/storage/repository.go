package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kubo-market/minio-sentinel/internal/domain"
)

// AlertRepository persists dispatched alerts for later inspection.
// Persistence is optional; the monitor runs fully in-memory without it.
type AlertRepository interface {
	// Insert stores a dispatched alert and fills in its ID.
	Insert(ctx context.Context, a *domain.Alert) error

	// Recent returns the most recently fired alerts, newest first.
	Recent(ctx context.Context, limit int) ([]domain.Alert, error)

	// ListByMetric returns a metric's alerts within a time range, newest first.
	ListByMetric(ctx context.Context, metric string, from, to time.Time) ([]domain.Alert, error)
}

// PostgresRepository implements AlertRepository using PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const alertColumns = "id, metric, display_name, value, mean, lower_bound, upper_bound, zscore, percent_change, rule, severity, insight, unit, fired_at"

func (r *PostgresRepository) Insert(ctx context.Context, a *domain.Alert) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO alerts (metric, display_name, value, mean, lower_bound, upper_bound, zscore, percent_change, rule, severity, insight, unit, fired_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`, a.Metric, a.DisplayName, a.Value, a.Mean, a.LowerBound, a.UpperBound,
		a.ZScore, a.PercentChange, string(a.Rule), string(a.Severity), a.Insight, a.Unit, a.FiredAt,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Recent(ctx context.Context, limit int) ([]domain.Alert, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+alertColumns+` FROM alerts
		ORDER BY fired_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent alerts: %w", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

func (r *PostgresRepository) ListByMetric(ctx context.Context, metric string, from, to time.Time) ([]domain.Alert, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+alertColumns+` FROM alerts
		WHERE metric = $1 AND fired_at >= $2 AND fired_at <= $3
		ORDER BY fired_at DESC
	`, metric, from, to)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

func scanAlerts(rows *sql.Rows) ([]domain.Alert, error) {
	var alerts []domain.Alert
	for rows.Next() {
		var a domain.Alert
		var rule, severity string
		if err := rows.Scan(
			&a.ID, &a.Metric, &a.DisplayName, &a.Value, &a.Mean,
			&a.LowerBound, &a.UpperBound, &a.ZScore, &a.PercentChange,
			&rule, &severity, &a.Insight, &a.Unit, &a.FiredAt,
		); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.Rule = domain.Rule(rule)
		a.Severity = domain.Severity(severity)
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
