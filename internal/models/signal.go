package models

import "time"

// SentimentPolarity is the upstream classifier's coarse polarity label.
type SentimentPolarity string

const (
	PolarityPositive SentimentPolarity = "positive"
	PolarityNegative SentimentPolarity = "negative"
	PolarityNeutral  SentimentPolarity = "neutral"
)

// EmotionSignal is the message-scoped emotion classification supplied by
// the upstream pipeline.
type EmotionSignal struct {
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
}

// SentimentSignal is the message-scoped sentiment result supplied by the
// upstream pipeline. Score is in [-1,1].
type SentimentSignal struct {
	Score    float64           `json:"score"`
	Polarity SentimentPolarity `json:"polarity"`
}

// ChatMessageEvent is the Kafka payload published by the chat backend for
// every analyzed user message.
type ChatMessageEvent struct {
	UserID            string    `json:"user_id"`
	Message           string    `json:"message"`
	Emotion           string    `json:"emotion"`
	EmotionConfidence float64   `json:"emotion_confidence"`
	SentimentScore    float64   `json:"sentiment_score"`
	SentimentPolarity string    `json:"sentiment_polarity"`
	PatternFactors    []string  `json:"pattern_factors,omitempty"`
	Timestamp         time.Time `json:"timestamp,omitempty"`
}
