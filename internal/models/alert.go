package models

import "time"

// Alert is a reviewable record created when a risk score crosses into
// MEDIUM or HIGH. It starts open and supports a single transition to
// resolved; it is never deleted by this service.
type Alert struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	RiskLevel      RiskLevel  `json:"risk_level"`
	TriggerMessage string     `json:"trigger_message"`
	CreatedAt      time.Time  `json:"created_at"`
	Resolved       bool       `json:"resolved"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
}

// AlertResolve is the request body for resolving an alert.
type AlertResolve struct {
	Notes *string `json:"notes"`
}

// AlertList wraps an alert page with unresolved totals for the dashboard.
type AlertList struct {
	Alerts          []Alert `json:"alerts"`
	TotalCount      int     `json:"total_count"`
	UnresolvedCount int     `json:"unresolved_count"`
}

// AlertFilter narrows alert listings. Nil / zero fields mean "any".
type AlertFilter struct {
	Resolved  *bool
	RiskLevel RiskLevel
	Days      int
	Limit     int
}

// AlertStats summarizes alert volume for the dashboard header.
type AlertStats struct {
	TotalAlerts       int               `json:"total_alerts"`
	UnresolvedAlerts  int               `json:"unresolved_alerts"`
	ResolvedAlerts    int               `json:"resolved_alerts"`
	AlertsToday       int               `json:"alerts_today"`
	AlertsThisWeek    int               `json:"alerts_this_week"`
	AlertsThisMonth   int               `json:"alerts_this_month"`
	UnresolvedByLevel map[RiskLevel]int `json:"unresolved_by_level"`
}
