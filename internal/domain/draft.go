package domain

// DraftResponse is a generated reply draft with its quality signals.
type DraftResponse struct {
	Draft               string   `json:"draft"`
	Confidence          float64  `json:"confidence"`
	SuggestedTags       []string `json:"suggested_tags,omitempty"`
	RequiresHumanReview bool     `json:"requires_human_review"`
	Reasoning           string   `json:"reasoning,omitempty"`
}

// ClampConfidence forces a provider-reported confidence into [0,1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
