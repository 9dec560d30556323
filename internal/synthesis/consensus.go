package synthesis

import (
	"math"
	"strings"
	"unicode"

	"conclave/internal/ports"
)

// minConsensusWordLength drops filler words from the overlap measure.
const minConsensusWordLength = 3

// ConsensusScore measures how much the responses agree, as the average
// pairwise Jaccard similarity of their significant-word sets, scaled by
// 1.5 and capped at 1.0. One response is perfect consensus by definition.
// The score is rounded to two decimals.
func ConsensusScore(responses []ports.AgentResponse) float64 {
	if len(responses) < 2 {
		return 1.0
	}

	wordSets := make([]map[string]struct{}, len(responses))
	for i, r := range responses {
		wordSets[i] = significantWords(r.Content)
	}

	var total float64
	var comparisons int
	for i := 0; i < len(wordSets); i++ {
		for j := i + 1; j < len(wordSets); j++ {
			total += jaccard(wordSets[i], wordSets[j])
			comparisons++
		}
	}

	score := math.Min(total/float64(comparisons)*1.5, 1.0)
	return math.Round(score*100) / 100
}

// significantWords lowercases the text, strips punctuation, and keeps the
// distinct words longer than minConsensusWordLength characters.
func significantWords(text string) map[string]struct{} {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, text)

	words := make(map[string]struct{})
	for _, w := range strings.Fields(cleaned) {
		if len(w) > minConsensusWordLength {
			words[w] = struct{}{}
		}
	}
	return words
}

func jaccard(a, b map[string]struct{}) float64 {
	var intersection int
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
