package risk

import "risk-service/internal/models"

// Trend labels for RiskHistory.
const (
	TrendImproving        = "improving"
	TrendStable           = "stable"
	TrendWorsening        = "worsening"
	TrendInsufficientData = "insufficient_data"
)

// Trend compares the average of the five most recent scores against the
// average of the five before them. Scores must be ordered newest first,
// which is how the store returns them. Fewer than five scores is
// insufficient data.
func Trend(scores []models.RiskScore) string {
	if len(scores) < 5 {
		return TrendInsufficientData
	}

	recent := average(scores[:5])

	older := recent
	if len(scores) > 5 {
		tail := scores[5:]
		if len(tail) > 5 {
			tail = tail[:5]
		}
		older = average(tail)
	}

	switch {
	case recent < older-5:
		return TrendImproving
	case recent > older+5:
		return TrendWorsening
	default:
		return TrendStable
	}
}

func average(scores []models.RiskScore) float64 {
	total := 0.0
	for _, s := range scores {
		total += s.Score
	}
	return total / float64(len(scores))
}
