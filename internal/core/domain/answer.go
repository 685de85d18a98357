package domain

import "math"

// MaxConfidence caps the reported confidence; retrieval never claims near-certainty
const MaxConfidence = 95.0

// confidenceWindow is the number of top matches averaged into the confidence
const confidenceWindow = 3

// Source describes one retrieved chunk backing an answer
type Source struct {
	Page  int       `json:"page"`
	Type  ChunkType `json:"type"`
	Score float64   `json:"score"`
}

// AnswerResult is the outcome of one question against one document
type AnswerResult struct {
	Question      string   `json:"question"`
	Answer        string   `json:"answer"`
	Confidence    float64  `json:"confidence"` // percentage, one decimal
	LowConfidence bool     `json:"low_confidence"`
	Sources       []Source `json:"sources"`
}

// Confidence averages the top three similarity scores, scales them to a
// percentage and caps the result at MaxConfidence. Empty input yields 0.
func Confidence(matches []*Match) float64 {
	if len(matches) == 0 {
		return 0.0
	}

	n := len(matches)
	if n > confidenceWindow {
		n = confidenceWindow
	}

	var sum float64
	for _, m := range matches[:n] {
		sum += m.Score
	}

	confidence := sum / float64(n) * 100
	confidence = math.Min(confidence, MaxConfidence)
	confidence = math.Max(confidence, 0)

	return math.Round(confidence*10) / 10
}
