package domain

import "strings"

// Category is a closed-set label describing a ticket's topic.
type Category string

const (
	CategoryBilling           Category = "billing"
	CategoryTechnicalSupport  Category = "technical_support"
	CategoryAccountManagement Category = "account_management"
	CategoryFeatureRequest    Category = "feature_request"
	CategoryBugReport         Category = "bug_report"
	CategoryGeneralInquiry    Category = "general_inquiry"
	CategoryCancellation      Category = "cancellation"
	CategoryRefund            Category = "refund"
	CategoryOnboarding        Category = "onboarding"
	CategoryIntegration       Category = "integration"
	CategorySecurity          Category = "security"
)

// Categories lists every valid category, in prompt order.
var Categories = []Category{
	CategoryBilling,
	CategoryTechnicalSupport,
	CategoryAccountManagement,
	CategoryFeatureRequest,
	CategoryBugReport,
	CategoryGeneralInquiry,
	CategoryCancellation,
	CategoryRefund,
	CategoryOnboarding,
	CategoryIntegration,
	CategorySecurity,
}

// ParseCategory normalizes a raw classifier label into the closed set.
// Case is folded and everything except letters and underscores is stripped
// before matching. Anything unrecognized becomes CategoryGeneralInquiry so an
// invalid label can never flow downstream.
func ParseCategory(raw string) Category {
	cleaned := normalizeLabel(raw)
	for _, c := range Categories {
		if cleaned == string(c) {
			return c
		}
	}
	return CategoryGeneralInquiry
}

func normalizeLabel(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		if (r >= 'a' && r <= 'z') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
