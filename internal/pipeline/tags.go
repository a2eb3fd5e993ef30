package pipeline

import (
	"strings"

	"deskwise.app/triage/internal/domain"
)

const (
	maxEntityTags   = 3
	maxEntityTagLen = 20
)

// SynthesizeTags builds the tag set committed back to the ticketing system:
// the category, urgency and sentiment labels, the ai_processed marker, and up
// to three sanitized entity tags.
func SynthesizeTags(category domain.Category, intent domain.IntentAnalysis) []string {
	tags := []string{
		"ai_category:" + string(category),
		"ai_urgency:" + string(intent.Urgency),
		"ai_sentiment:" + string(intent.Sentiment),
		"ai_processed",
	}

	added := 0
	for _, entity := range intent.KeyEntities {
		if added == maxEntityTags {
			break
		}
		sanitized := sanitizeEntity(entity)
		if sanitized == "" {
			continue
		}
		tags = append(tags, "ai_entity:"+sanitized)
		added++
	}

	return tags
}

// sanitizeEntity lowercases, replaces non-alphanumeric characters with
// underscores and truncates to 20 characters. Entities with no alphanumeric
// content come back empty and are dropped by the caller.
func sanitizeEntity(entity string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(entity)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	s := b.String()
	if len(s) > maxEntityTagLen {
		s = s[:maxEntityTagLen]
	}
	if strings.Trim(s, "_") == "" {
		return ""
	}
	return s
}
