package extractor

import (
	"strings"

	"github.com/custodia-labs/policyqa/internal/core/domain"
)

// intentRule maps question keywords to an intent. A rule fires when the
// lower-cased question contains any of its keywords.
type intentRule struct {
	intent   domain.Intent
	keywords []string
}

// intentRules are evaluated in order; the first rule that fires wins.
var intentRules = []intentRule{
	{domain.IntentGracePeriod, []string{"grace period"}},
	{domain.IntentWaitingPeriod, []string{"waiting period"}},
	{domain.IntentCoverage, []string{"covered", "coverage", "benefit"}},
	{domain.IntentMaternity, []string{"maternity"}},
	{domain.IntentRoomRent, []string{"room rent", "icu"}},
}

// Classify returns the intent of a question. Questions that match no rule
// are IntentGeneral.
func Classify(question string) domain.Intent {
	q := strings.ToLower(question)
	for _, rule := range intentRules {
		for _, kw := range rule.keywords {
			if strings.Contains(q, kw) {
				return rule.intent
			}
		}
	}
	return domain.IntentGeneral
}
