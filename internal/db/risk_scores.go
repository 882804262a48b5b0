package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"risk-service/internal/models"
)

// InsertRiskScore appends one risk score record. Records are never updated
// after this point.
func (d *DB) InsertRiskScore(ctx context.Context, score models.RiskScore) error {
	query := `
    INSERT INTO risk_scores (id, user_id, level, score, timestamp, factors, trigger_message)
    VALUES ($1, $2, $3, $4, $5, $6, $7)`

	var trigger *string
	if score.TriggerMessage != "" {
		trigger = &score.TriggerMessage
	}

	_, err := d.Pool.Exec(ctx, query,
		uuid.New(),
		score.UserID,
		score.Level,
		score.Score,
		score.Timestamp,
		score.FactorStrings(),
		trigger,
	)
	if err != nil {
		return fmt.Errorf("failed to insert risk score: %w", err)
	}
	return nil
}

// GetRiskScoresByUserID fetches a user's scores inside the trailing days
// window, newest first.
func (d *DB) GetRiskScoresByUserID(ctx context.Context, userID string, days int) ([]models.RiskScore, error) {
	if days <= 0 || days > 365 {
		days = 30
	}

	query := `
    SELECT user_id, level, score, timestamp, factors, trigger_message
    FROM risk_scores
    WHERE user_id = $1 AND timestamp >= NOW() - $2::interval
    ORDER BY timestamp DESC`

	rows, err := d.Pool.Query(ctx, query, userID, fmt.Sprintf("%d days", days))
	if err != nil {
		return nil, fmt.Errorf("failed to get risk scores for user %s: %w", userID, err)
	}
	defer rows.Close()

	var scores []models.RiskScore
	for rows.Next() {
		var (
			s       models.RiskScore
			factors []string
			trigger *string
		)
		if err := rows.Scan(&s.UserID, &s.Level, &s.Score, &s.Timestamp, &factors, &trigger); err != nil {
			return nil, fmt.Errorf("failed to scan risk score: %w", err)
		}
		for _, f := range factors {
			s.Factors = append(s.Factors, models.ParseFactor(f))
		}
		if trigger != nil {
			s.TriggerMessage = *trigger
		}
		scores = append(scores, s)
	}

	return scores, rows.Err()
}

// HighRiskUsers aggregates users who produced HIGH scores inside the
// trailing days window, worst first.
func (d *DB) HighRiskUsers(ctx context.Context, days int) ([]models.HighRiskUser, error) {
	if days <= 0 || days > 365 {
		days = 7
	}

	query := `
    SELECT user_id, COUNT(*), MAX(timestamp), MAX(score)
    FROM risk_scores
    WHERE level = 'HIGH' AND timestamp >= NOW() - $1::interval
    GROUP BY user_id
    ORDER BY MAX(score) DESC`

	rows, err := d.Pool.Query(ctx, query, fmt.Sprintf("%d days", days))
	if err != nil {
		return nil, fmt.Errorf("failed to get high risk users: %w", err)
	}
	defer rows.Close()

	var users []models.HighRiskUser
	for rows.Next() {
		var u models.HighRiskUser
		if err := rows.Scan(&u.UserID, &u.HighRiskOccurrences, &u.LatestOccurrence, &u.MaxScore); err != nil {
			return nil, fmt.Errorf("failed to scan high risk user: %w", err)
		}
		users = append(users, u)
	}

	return users, rows.Err()
}
