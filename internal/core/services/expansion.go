package services

import "strings"

// expansionRule appends related vocabulary when a question mentions keyword
type expansionRule struct {
	keyword string
	terms   []string
}

// expansionRules are checked in order; at most one fires.
var expansionRules = []expansionRule{
	{"grace period", []string{"premium payment", "due date", "late payment"}},
	{"waiting period", []string{"pre-existing", "PED", "months coverage"}},
	{"maternity", []string{"pregnancy", "childbirth", "delivery"}},
	{"room rent", []string{"ICU", "hospital charges", "room limit"}},
}

// ExpandQuery biases the retrieval query toward policy vocabulary for the
// first keyword found in question. Other questions are returned unchanged.
func ExpandQuery(question string) string {
	q := strings.ToLower(question)
	for _, rule := range expansionRules {
		if strings.Contains(q, rule.keyword) {
			return question + " " + strings.Join(rule.terms, " ")
		}
	}
	return question
}
