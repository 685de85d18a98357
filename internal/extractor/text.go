package extractor

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	sentenceBoundary = regexp.MustCompile(`[.!?]+`)
	wordToken        = regexp.MustCompile(`[\p{L}\p{N}_]+`)
)

// splitSentences splits on runs of terminal punctuation. Pieces are returned
// untrimmed and may be empty; callers trim before use.
func splitSentences(text string) []string {
	return sentenceBoundary.Split(text, -1)
}

// wordSet returns the distinct lower-cased word tokens of s
func wordSet(s string) map[string]struct{} {
	words := wordToken.FindAllString(strings.ToLower(s), -1)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// overlap counts the words shared by two sets
func overlap(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), substr)
}
