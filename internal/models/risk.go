package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RiskLevel is the discrete severity classification derived from a numeric score.
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "LOW"
	RiskLevelMedium RiskLevel = "MEDIUM"
	RiskLevelHigh   RiskLevel = "HIGH"
)

// RiskLevelFromScore maps a 0-100 score onto a RiskLevel.
// [0,34] LOW, [35,69] MEDIUM, [70,100] HIGH.
func RiskLevelFromScore(score float64) RiskLevel {
	switch {
	case score >= 70:
		return RiskLevelHigh
	case score >= 35:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// ParseRiskLevel validates a risk level string as received from API filters.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch RiskLevel(strings.ToUpper(s)) {
	case RiskLevelLow:
		return RiskLevelLow, nil
	case RiskLevelMedium:
		return RiskLevelMedium, nil
	case RiskLevelHigh:
		return RiskLevelHigh, nil
	default:
		return "", fmt.Errorf("unknown risk level %q", s)
	}
}

// FactorKind enumerates the closed set of reasons a score can be raised.
type FactorKind string

const (
	FactorSelfHarmLanguage  FactorKind = "self_harm_language"
	FactorNegativeSentiment FactorKind = "negative_sentiment"
	FactorDistressEmotion   FactorKind = "distress_emotion"
	FactorPersistentPattern FactorKind = "persistent_pattern"
)

// Factor is one named reason contributing to a risk score. Detail carries
// the emotion label for distress_emotion and the caller-supplied text for
// persistent_pattern; it is empty otherwise.
type Factor struct {
	Kind   FactorKind
	Detail string
}

// String renders the factor in the wording the reviewer dashboard stores
// and displays.
func (f Factor) String() string {
	switch f.Kind {
	case FactorSelfHarmLanguage:
		return "self-harm language detected"
	case FactorNegativeSentiment:
		return "negative sentiment detected"
	case FactorDistressEmotion:
		return fmt.Sprintf("distress emotion indicator (%s)", f.Detail)
	case FactorPersistentPattern:
		return fmt.Sprintf("persistent pattern: %s", f.Detail)
	default:
		return string(f.Kind)
	}
}

// ParseFactor recovers a Factor from its stored string form.
func ParseFactor(s string) Factor {
	switch {
	case s == "self-harm language detected":
		return Factor{Kind: FactorSelfHarmLanguage}
	case s == "negative sentiment detected":
		return Factor{Kind: FactorNegativeSentiment}
	case strings.HasPrefix(s, "distress emotion indicator (") && strings.HasSuffix(s, ")"):
		detail := strings.TrimSuffix(strings.TrimPrefix(s, "distress emotion indicator ("), ")")
		return Factor{Kind: FactorDistressEmotion, Detail: detail}
	case strings.HasPrefix(s, "persistent pattern: "):
		return Factor{Kind: FactorPersistentPattern, Detail: strings.TrimPrefix(s, "persistent pattern: ")}
	default:
		return Factor{Kind: FactorKind(s)}
	}
}

// MarshalJSON serializes a Factor as its stored string so API consumers see
// the same factor text the database holds.
func (f Factor) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// UnmarshalJSON accepts the stored string form.
func (f *Factor) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = ParseFactor(s)
	return nil
}

// RiskScore is an immutable, append-only scoring record for one evaluated
// message. TriggerMessage is set only when the message contributed at least
// one factor.
type RiskScore struct {
	UserID         string    `json:"user_id"`
	Level          RiskLevel `json:"level"`
	Score          float64   `json:"score"`
	Timestamp      time.Time `json:"timestamp"`
	Factors        []Factor  `json:"factors"`
	TriggerMessage string    `json:"trigger_message,omitempty"`
}

// FactorStrings returns the stored string form of every factor, in order.
func (r RiskScore) FactorStrings() []string {
	out := make([]string, 0, len(r.Factors))
	for _, f := range r.Factors {
		out = append(out, f.String())
	}
	return out
}

// RiskHistory is the read-side view of a user's recent scores.
type RiskHistory struct {
	UserID       string      `json:"user_id"`
	Scores       []RiskScore `json:"scores"`
	CurrentLevel RiskLevel   `json:"current_level"`
	Trend        string      `json:"trend"`
}

// HighRiskUser aggregates recent HIGH scores per user for triage.
type HighRiskUser struct {
	UserID              string    `json:"user_id"`
	HighRiskOccurrences int       `json:"high_risk_occurrences"`
	LatestOccurrence    time.Time `json:"latest_occurrence"`
	MaxScore            float64   `json:"max_score"`
}
