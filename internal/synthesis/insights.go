package synthesis

import (
	"regexp"
	"strings"
)

var (
	numberedLine = regexp.MustCompile(`(?m)^\s*\d+\.\s+(.+)$`)
	bulletLine   = regexp.MustCompile(`(?m)^\s*[-*•]\s+(.+)$`)
)

// ExtractKeyInsights pulls up to five takeaway lines from a merged answer.
// Numbered list items win, then bullet items; unstructured text falls back
// to the first clause of each paragraph, keeping only clauses between 20
// and 200 characters.
func ExtractKeyInsights(text string) []string {
	insights := make([]string, 0, maxInsights)

	for _, m := range numberedLine.FindAllStringSubmatch(text, -1) {
		insights = append(insights, strings.TrimSpace(m[1]))
	}
	for _, m := range bulletLine.FindAllStringSubmatch(text, -1) {
		insights = append(insights, strings.TrimSpace(m[1]))
	}

	if len(insights) == 0 {
		for _, paragraph := range strings.Split(text, "\n\n") {
			clause := strings.TrimSpace(strings.SplitN(paragraph, ".", 2)[0])
			if len(clause) > 20 && len(clause) < 200 {
				insights = append(insights, clause)
			}
			if len(insights) == maxInsights {
				break
			}
		}
	}

	if len(insights) > maxInsights {
		insights = insights[:maxInsights]
	}
	return insights
}
