package risk

// Config carries the fixed rule set for the evaluator. It is built once at
// startup and passed by value; the evaluator never mutates it.
type Config struct {
	// HighRiskKeywords are phrases that floor the score into the HIGH band.
	HighRiskKeywords []string
	// CrisisIndicators is the subset checked by IsCrisis for immediate flags.
	CrisisIndicators []string
	// DistressEmotions are emotion labels that contribute when confident.
	DistressEmotions []string

	KeywordFloor        float64
	NegativeSentiment   float64 // points added for strongly negative sentiment
	SentimentThreshold  float64 // sentiment score at or below this triggers
	DistressEmotion     float64 // points added per confident distress emotion
	ConfidenceThreshold float64
	PatternWeight       float64 // points per caller-supplied pattern factor
	PatternCap          float64 // ceiling on the total pattern contribution
}

// DefaultConfig returns the production rule set.
func DefaultConfig() Config {
	return Config{
		HighRiskKeywords: []string{
			"kill myself",
			"want to die",
			"hurt myself",
			"end my life",
			"suicide",
			"self harm",
			"self-harm",
			"cut myself",
			"don't want to live",
			"don't want to be alive",
			"better off dead",
			"no reason to live",
			"end it all",
			"take my own life",
			"overdose",
		},
		CrisisIndicators: []string{
			"kill myself",
			"suicide",
			"want to die",
			"going to hurt myself",
			"end my life",
			"overdose",
		},
		DistressEmotions: []string{"sadness", "fear"},

		KeywordFloor:        70,
		NegativeSentiment:   20,
		SentimentThreshold:  -0.5,
		DistressEmotion:     15,
		ConfidenceThreshold: 0.6,
		PatternWeight:       10,
		PatternCap:          20,
	}
}
