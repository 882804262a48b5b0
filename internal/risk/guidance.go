package risk

import "risk-service/internal/models"

// Guidance tells the companion service how to shape its reply for a given
// risk level.
type Guidance struct {
	Tone             string   `json:"tone"`
	Priorities       []string `json:"priorities"`
	SuggestResources bool     `json:"suggest_resources"`
	ResponseStyle    string   `json:"response_style"`
}

// ResponseGuidance maps a risk level onto reply guidance. Rule-based only;
// the actual reply generation lives in the companion service.
func ResponseGuidance(level models.RiskLevel) Guidance {
	switch level {
	case models.RiskLevelHigh:
		return Guidance{
			Tone: "calm, supportive, and non-judgmental",
			Priorities: []string{
				"Acknowledge their feelings without dismissing them",
				"Express care and concern",
				"Gently encourage professional support",
				"Avoid leaving them feeling alone",
			},
			SuggestResources: true,
			ResponseStyle:    "empathetic_urgent",
		}
	case models.RiskLevelMedium:
		return Guidance{
			Tone: "warm, validating, and supportive",
			Priorities: []string{
				"Validate their emotions",
				"Explore their feelings with open questions",
				"Offer coping strategies if appropriate",
				"Maintain connection",
			},
			SuggestResources: false,
			ResponseStyle:    "empathetic_supportive",
		}
	default:
		return Guidance{
			Tone: "friendly, curious, and encouraging",
			Priorities: []string{
				"Engage naturally",
				"Show interest in their experiences",
				"Provide emotional support",
				"Encourage self-reflection",
			},
			SuggestResources: false,
			ResponseStyle:    "conversational",
		}
	}
}
