// Package risk scores chat messages for self-harm concern using the
// upstream emotion and sentiment signals. Scoring is pure rule evaluation:
// no I/O, no shared state, safe from any number of goroutines.
package risk

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"risk-service/internal/models"
)

// ErrInvalidInput marks evaluator inputs that are malformed or out of range.
var ErrInvalidInput = errors.New("invalid input")

// Input is one message plus its upstream signals. PatternFactors are
// pre-computed longitudinal observations (e.g. "3rd consecutive low-mood
// day") supplied by the caller; the evaluator never aggregates history
// itself.
type Input struct {
	UserID         string
	Message        string
	Emotion        models.EmotionSignal
	Sentiment      models.SentimentSignal
	PatternFactors []string
}

// Evaluator applies an immutable rule Config to Inputs.
type Evaluator struct {
	cfg Config
}

// NewEvaluator returns an Evaluator over the given rule set.
func NewEvaluator(cfg Config) *Evaluator {
	return &Evaluator{cfg: cfg}
}

func (e *Evaluator) validate(in Input) error {
	if strings.TrimSpace(in.Message) == "" {
		return fmt.Errorf("%w: message is empty", ErrInvalidInput)
	}
	if in.Emotion.Confidence < 0 || in.Emotion.Confidence > 1 {
		return fmt.Errorf("%w: emotion confidence %v outside [0,1]", ErrInvalidInput, in.Emotion.Confidence)
	}
	if in.Sentiment.Score < -1 || in.Sentiment.Score > 1 {
		return fmt.Errorf("%w: sentiment score %v outside [-1,1]", ErrInvalidInput, in.Sentiment.Score)
	}
	switch in.Sentiment.Polarity {
	case models.PolarityPositive, models.PolarityNegative, models.PolarityNeutral:
	default:
		return fmt.Errorf("%w: unknown sentiment polarity %q", ErrInvalidInput, in.Sentiment.Polarity)
	}
	return nil
}

// Evaluate computes the RiskScore for one message. The result is
// deterministic for identical inputs, timestamp aside. TriggerMessage is
// set only when at least one factor fired.
func (e *Evaluator) Evaluate(in Input) (models.RiskScore, error) {
	if err := e.validate(in); err != nil {
		return models.RiskScore{}, err
	}

	var (
		score   float64
		factors []models.Factor
	)

	// Keyword floor wins over any combination of weak signals: self-harm
	// language is never under-scored.
	lowered := strings.ToLower(in.Message)
	for _, kw := range e.cfg.HighRiskKeywords {
		if strings.Contains(lowered, kw) {
			if score < e.cfg.KeywordFloor {
				score = e.cfg.KeywordFloor
			}
			factors = append(factors, models.Factor{Kind: models.FactorSelfHarmLanguage})
			break
		}
	}

	if in.Sentiment.Polarity == models.PolarityNegative && in.Sentiment.Score <= e.cfg.SentimentThreshold {
		score += e.cfg.NegativeSentiment
		factors = append(factors, models.Factor{Kind: models.FactorNegativeSentiment})
	}

	if e.isDistressEmotion(in.Emotion.Emotion) && in.Emotion.Confidence >= e.cfg.ConfidenceThreshold {
		score += e.cfg.DistressEmotion
		factors = append(factors, models.Factor{Kind: models.FactorDistressEmotion, Detail: strings.ToLower(in.Emotion.Emotion)})
	}

	var patternPoints float64
	for _, p := range in.PatternFactors {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if patternPoints < e.cfg.PatternCap {
			patternPoints += e.cfg.PatternWeight
		}
		factors = append(factors, models.Factor{Kind: models.FactorPersistentPattern, Detail: p})
	}
	score += patternPoints

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	result := models.RiskScore{
		UserID:    in.UserID,
		Level:     models.RiskLevelFromScore(score),
		Score:     score,
		Timestamp: time.Now().UTC(),
		Factors:   factors,
	}
	if len(factors) > 0 {
		result.TriggerMessage = in.Message
	}
	return result, nil
}

func (e *Evaluator) isDistressEmotion(emotion string) bool {
	lowered := strings.ToLower(emotion)
	for _, d := range e.cfg.DistressEmotions {
		if lowered == d {
			return true
		}
	}
	return false
}

// IsCrisis reports whether the message contains an immediate-crisis
// indicator, independent of the full scoring pass.
func (e *Evaluator) IsCrisis(message string) bool {
	lowered := strings.ToLower(message)
	for _, ind := range e.cfg.CrisisIndicators {
		if strings.Contains(lowered, ind) {
			return true
		}
	}
	return false
}
