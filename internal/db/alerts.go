package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"risk-service/internal/alerts"
	"risk-service/internal/models"
)

const alertColumns = `id, user_id, risk_level, trigger_message, created_at, resolved, resolved_at, notes`

// InsertAlert stores a freshly created alert.
func (d *DB) InsertAlert(ctx context.Context, alert models.Alert) error {
	query := `
    INSERT INTO alerts (` + alertColumns + `)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := d.Pool.Exec(ctx, query,
		alert.ID,
		alert.UserID,
		alert.RiskLevel,
		alert.TriggerMessage,
		alert.CreatedAt,
		alert.Resolved,
		alert.ResolvedAt,
		alert.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// GetAlert fetches one alert by id.
func (d *DB) GetAlert(ctx context.Context, id string) (models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`

	alert, err := scanAlert(d.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Alert{}, alerts.ErrNotFound
		}
		return models.Alert{}, fmt.Errorf("failed to get alert %s: %w", id, err)
	}
	return alert, nil
}

// ResolveAlert performs the conditional open->resolved update. The
// `resolved = FALSE` guard serializes concurrent resolvers: exactly one
// wins, the rest observe ErrAlreadyResolved.
func (d *DB) ResolveAlert(ctx context.Context, id string, resolvedAt time.Time, notes *string) (models.Alert, error) {
	query := `
    UPDATE alerts
    SET resolved = TRUE, resolved_at = $2, notes = $3
    WHERE id = $1 AND resolved = FALSE
    RETURNING ` + alertColumns

	alert, err := scanAlert(d.Pool.QueryRow(ctx, query, id, resolvedAt, notes))
	if err == nil {
		return alert, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.Alert{}, fmt.Errorf("failed to resolve alert %s: %w", id, err)
	}

	// Either the id is unknown or the alert already completed its
	// transition; look it up to tell the two apart.
	var resolved bool
	err = d.Pool.QueryRow(ctx, `SELECT resolved FROM alerts WHERE id = $1`, id).Scan(&resolved)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Alert{}, alerts.ErrNotFound
	}
	if err != nil {
		return models.Alert{}, fmt.Errorf("failed to check alert %s: %w", id, err)
	}
	return models.Alert{}, alerts.ErrAlreadyResolved
}

// ReopenAlert clears the resolved state. Admin escape hatch for the
// dashboard, outside the manager's one-way lifecycle.
func (d *DB) ReopenAlert(ctx context.Context, id string) (models.Alert, error) {
	query := `
    UPDATE alerts
    SET resolved = FALSE, resolved_at = NULL
    WHERE id = $1
    RETURNING ` + alertColumns

	alert, err := scanAlert(d.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Alert{}, alerts.ErrNotFound
		}
		return models.Alert{}, fmt.Errorf("failed to reopen alert %s: %w", id, err)
	}
	return alert, nil
}

// ListAlerts returns alerts matching the filter, newest first.
func (d *DB) ListAlerts(ctx context.Context, filter models.AlertFilter) ([]models.Alert, error) {
	days := filter.Days
	if days <= 0 || days > 365 {
		days = 30
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := `SELECT ` + alertColumns + ` FROM alerts WHERE created_at >= NOW() - $1::interval`
	args := []interface{}{fmt.Sprintf("%d days", days)}

	if filter.Resolved != nil {
		args = append(args, *filter.Resolved)
		query += fmt.Sprintf(" AND resolved = $%d", len(args))
	}
	if filter.RiskLevel != "" {
		args = append(args, filter.RiskLevel)
		query += fmt.Sprintf(" AND risk_level = $%d", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var list []models.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		list = append(list, alert)
	}

	return list, rows.Err()
}

// CountUnresolved counts open alerts across all users.
func (d *DB) CountUnresolved(ctx context.Context) (int, error) {
	var count int
	if err := d.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM alerts WHERE resolved = FALSE`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unresolved alerts: %w", err)
	}
	return count, nil
}

// AlertStats summarizes alert volume for the dashboard header.
func (d *DB) AlertStats(ctx context.Context) (models.AlertStats, error) {
	stats := models.AlertStats{
		UnresolvedByLevel: make(map[models.RiskLevel]int),
	}

	var unresolvedMedium, unresolvedHigh int
	err := d.Pool.QueryRow(ctx, `
    SELECT
        COUNT(*),
        COUNT(*) FILTER (WHERE NOT resolved),
        COUNT(*) FILTER (WHERE created_at >= NOW() - INTERVAL '1 day'),
        COUNT(*) FILTER (WHERE created_at >= NOW() - INTERVAL '7 days'),
        COUNT(*) FILTER (WHERE created_at >= NOW() - INTERVAL '30 days'),
        COUNT(*) FILTER (WHERE NOT resolved AND risk_level = 'MEDIUM'),
        COUNT(*) FILTER (WHERE NOT resolved AND risk_level = 'HIGH')
    FROM alerts`).Scan(
		&stats.TotalAlerts,
		&stats.UnresolvedAlerts,
		&stats.AlertsToday,
		&stats.AlertsThisWeek,
		&stats.AlertsThisMonth,
		&unresolvedMedium,
		&unresolvedHigh,
	)
	if err != nil {
		return models.AlertStats{}, fmt.Errorf("failed to get alert stats: %w", err)
	}
	stats.UnresolvedByLevel[models.RiskLevelMedium] = unresolvedMedium
	stats.UnresolvedByLevel[models.RiskLevelHigh] = unresolvedHigh
	stats.ResolvedAlerts = stats.TotalAlerts - stats.UnresolvedAlerts
	return stats, nil
}

func scanAlert(row pgx.Row) (models.Alert, error) {
	var alert models.Alert
	err := row.Scan(
		&alert.ID,
		&alert.UserID,
		&alert.RiskLevel,
		&alert.TriggerMessage,
		&alert.CreatedAt,
		&alert.Resolved,
		&alert.ResolvedAt,
		&alert.Notes,
	)
	return alert, err
}
