package domain

import "strings"

// Urgency classifies how time-sensitive a ticket is.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// Sentiment classifies the customer's emotional tone.
type Sentiment string

const (
	SentimentPositive   Sentiment = "positive"
	SentimentNeutral    Sentiment = "neutral"
	SentimentNegative   Sentiment = "negative"
	SentimentFrustrated Sentiment = "frustrated"
)

// ParseUrgency normalizes a raw urgency value, defaulting to medium.
func ParseUrgency(raw string) Urgency {
	switch Urgency(strings.ToLower(strings.TrimSpace(raw))) {
	case UrgencyLow:
		return UrgencyLow
	case UrgencyMedium:
		return UrgencyMedium
	case UrgencyHigh:
		return UrgencyHigh
	case UrgencyCritical:
		return UrgencyCritical
	default:
		return UrgencyMedium
	}
}

// ParseSentiment normalizes a raw sentiment value, defaulting to neutral.
func ParseSentiment(raw string) Sentiment {
	switch Sentiment(strings.ToLower(strings.TrimSpace(raw))) {
	case SentimentPositive:
		return SentimentPositive
	case SentimentNeutral:
		return SentimentNeutral
	case SentimentNegative:
		return SentimentNegative
	case SentimentFrustrated:
		return SentimentFrustrated
	default:
		return SentimentNeutral
	}
}

// IntentAnalysis is the extractor's view of what the customer wants.
type IntentAnalysis struct {
	Intent      string    `json:"intent"`
	Urgency     Urgency   `json:"urgency"`
	Sentiment   Sentiment `json:"sentiment"`
	KeyEntities []string  `json:"key_entities"`
}

// DefaultIntentAnalysis is the fallback when extraction output is unusable.
func DefaultIntentAnalysis() IntentAnalysis {
	return IntentAnalysis{
		Intent:      "unknown",
		Urgency:     UrgencyMedium,
		Sentiment:   SentimentNeutral,
		KeyEntities: []string{},
	}
}
