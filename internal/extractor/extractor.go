// Package extractor answers policy questions from retrieved context with
// deterministic pattern matching. No model inference is involved: the
// question is classified into an intent and a per-intent strategy scans
// the context sentences.
package extractor

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/custodia-labs/policyqa/internal/core/domain"
)

// DefaultContextChunks is how many chunks feed the context
const DefaultContextChunks = 3

// Answers returned when the context holds nothing usable
const (
	NoContextAnswer         = "No relevant information found in the document."
	GraceNotFoundAnswer     = "Grace period information not found in the document."
	WaitingNotFoundAnswer   = "Waiting period information not found in the document."
	CoverageNotFoundAnswer  = "Coverage information not found in the document."
	MaternityNotFoundAnswer = "Maternity coverage information not found in the document."
	RoomRentNotFoundAnswer  = "Room rent information not found in the document."
	GeneralNotFoundAnswer   = "Relevant information not found in the document."
)

const (
	coverageMinSentenceChars = 20
	generalMinSentenceChars  = 30
	generalMinOverlap        = 2
	generalFallbackChars     = 50
)

var (
	gracePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)grace period of (\d+) days?`),
		regexp.MustCompile(`(?i)(\d+) days? grace period`),
		regexp.MustCompile(`(?i)grace.*?(\d+) days?`),
	}
	waitingDuration = regexp.MustCompile(`(?i)(\d+)\s*(months?|years?)`)
)

// strategy produces an answer for one intent
type strategy func(question, context string) string

var strategies = map[domain.Intent]strategy{
	domain.IntentGracePeriod:   gracePeriod,
	domain.IntentWaitingPeriod: waitingPeriod,
	domain.IntentCoverage:      coverage,
	domain.IntentMaternity:     maternity,
	domain.IntentRoomRent:      roomRent,
	domain.IntentGeneral:       general,
}

// Extractor builds answers from context chunks. It is stateless and safe
// for concurrent use.
type Extractor struct {
	contextChunks int
}

// New creates an extractor using at most contextChunks chunks per answer.
func New(contextChunks int) *Extractor {
	if contextChunks <= 0 {
		contextChunks = DefaultContextChunks
	}
	return &Extractor{contextChunks: contextChunks}
}

// Extract answers question from the leading context chunks.
func (e *Extractor) Extract(question string, contextChunks []string) string {
	if len(contextChunks) == 0 {
		return NoContextAnswer
	}
	if len(contextChunks) > e.contextChunks {
		contextChunks = contextChunks[:e.contextChunks]
	}
	context := strings.Join(contextChunks, "\n\n")

	return strategies[Classify(question)](question, context)
}

// Extract answers question using the default context size.
func Extract(question string, contextChunks []string) string {
	return New(DefaultContextChunks).Extract(question, contextChunks)
}

func gracePeriod(_, context string) string {
	for _, re := range gracePatterns {
		if m := re.FindStringSubmatch(context); m != nil {
			return fmt.Sprintf("A grace period of %s days is provided for premium payment.", m[1])
		}
	}

	for _, s := range splitSentences(context) {
		if containsFold(s, "grace") && containsFold(s, "period") {
			return strings.TrimSpace(s)
		}
	}
	return GraceNotFoundAnswer
}

func waitingPeriod(_, context string) string {
	for _, s := range splitSentences(context) {
		if !containsFold(s, "waiting") {
			continue
		}
		if !containsFold(s, "months") && !containsFold(s, "years") {
			continue
		}

		sentence := strings.TrimSpace(s)
		if m := waitingDuration.FindStringSubmatch(s); m != nil {
			return fmt.Sprintf("There is a waiting period of %s %s. %s", m[1], m[2], sentence)
		}
		return sentence
	}
	return WaitingNotFoundAnswer
}

func coverage(question, context string) string {
	questionWords := wordSet(question)

	best := ""
	bestOverlap := 0
	for _, s := range splitSentences(context) {
		sentence := strings.TrimSpace(s)
		if runeLen(sentence) < coverageMinSentenceChars {
			continue
		}
		// strict > keeps the earliest sentence on ties
		if n := overlap(questionWords, wordSet(sentence)); n > bestOverlap {
			best, bestOverlap = sentence, n
		}
	}

	if best == "" {
		return CoverageNotFoundAnswer
	}
	return best
}

func maternity(_, context string) string {
	for _, s := range splitSentences(context) {
		if containsFold(s, "maternity") {
			return strings.TrimSpace(s)
		}
	}
	return MaternityNotFoundAnswer
}

func roomRent(_, context string) string {
	for _, s := range splitSentences(context) {
		if (containsFold(s, "room rent") || containsFold(s, "icu")) && strings.Contains(s, "%") {
			return strings.TrimSpace(s)
		}
	}
	return RoomRentNotFoundAnswer
}

type scoredSentence struct {
	text    string
	overlap int
}

func general(question, context string) string {
	questionWords := wordSet(question)
	sentences := splitSentences(context)

	var scored []scoredSentence
	for _, s := range sentences {
		sentence := strings.TrimSpace(s)
		if runeLen(sentence) < generalMinSentenceChars {
			continue
		}
		if n := overlap(questionWords, wordSet(sentence)); n >= generalMinOverlap {
			scored = append(scored, scoredSentence{text: sentence, overlap: n})
		}
	}

	if len(scored) > 0 {
		sort.SliceStable(scored, func(i, j int) bool {
			return scored[i].overlap > scored[j].overlap
		})
		return scored[0].text
	}

	for _, s := range sentences {
		if sentence := strings.TrimSpace(s); runeLen(sentence) > generalFallbackChars {
			return sentence
		}
	}
	return GeneralNotFoundAnswer
}
