// Package alerts owns the alert lifecycle: creation from qualifying risk
// scores and the single OPEN -> RESOLVED transition.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"risk-service/internal/models"
)

var (
	// ErrNotFound means the alert id references no stored alert.
	ErrNotFound = errors.New("alert not found")
	// ErrAlreadyResolved means the alert already completed its one
	// transition; a second resolve is a caller bug, not a no-op.
	ErrAlreadyResolved = errors.New("alert already resolved")
)

// Store is the persistence surface the Manager needs. ResolveAlert must be
// conditional on resolved=false so concurrent resolvers serialize in the
// store and at most one transition succeeds.
type Store interface {
	InsertAlert(ctx context.Context, alert models.Alert) error
	ResolveAlert(ctx context.Context, id string, resolvedAt time.Time, notes *string) (models.Alert, error)
}

// Manager creates and resolves alerts. It holds no state of its own beyond
// the store handle.
type Manager struct {
	store Store
}

// NewManager returns a Manager over the given store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// MaybeCreateAlert creates a new open alert for a MEDIUM or HIGH score and
// returns nil for LOW. Every qualifying score gets its own alert; open
// alerts for the same user are not merged.
func (m *Manager) MaybeCreateAlert(ctx context.Context, score models.RiskScore) (*models.Alert, error) {
	if score.Level == models.RiskLevelLow {
		return nil, nil
	}

	alert := models.Alert{
		ID:             uuid.NewString(),
		UserID:         score.UserID,
		RiskLevel:      score.Level,
		TriggerMessage: score.TriggerMessage,
		CreatedAt:      time.Now().UTC(),
		Resolved:       false,
	}
	if err := m.store.InsertAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("insert alert: %w", err)
	}
	return &alert, nil
}

// Resolve performs the OPEN -> RESOLVED transition. It fails with
// ErrNotFound for an unknown id and ErrAlreadyResolved if the transition
// already happened.
func (m *Manager) Resolve(ctx context.Context, alertID string, notes *string) (models.Alert, error) {
	alert, err := m.store.ResolveAlert(ctx, alertID, time.Now().UTC(), notes)
	if err != nil {
		return models.Alert{}, err
	}
	return alert, nil
}
