package triage

import (
	"strings"

	"conclave/internal/ports"
)

// signals is the shared intermediate verdict both modes produce before the
// decision table runs.
type signals struct {
	Complexity           ports.Complexity
	CanHandleLocally     bool
	RequiresRealtime     bool
	RequiresCodeGen      bool
	BenefitsFromMultiple bool
	Reasoning            string
}

// Indicator word lists. Matching is case-insensitive substring search.
var (
	simpleIndicators = []string{
		"what is",
		"define",
		"explain simply",
		"how do i",
		"what does",
		"who is",
		"when was",
	}

	complexIndicators = []string{
		"analyze",
		"compare",
		"design",
		"architect",
		"review this code",
		"implement",
		"refactor",
	}

	realtimeIndicators = []string{
		"latest",
		"current",
		"today",
		"recent",
		"news",
		"right now",
	}

	codeGenIndicators = []string{
		"write a",
		"implement",
		"refactor",
		"generate code",
		"fix this",
	}
)

func matchesAny(text string, indicators []string) bool {
	for _, indicator := range indicators {
		if strings.Contains(text, indicator) {
			return true
		}
	}
	return false
}

// heuristicSignals derives classification signals from indicator words and
// length thresholds alone.
func heuristicSignals(query string, thresholds Thresholds) signals {
	lower := strings.ToLower(query)
	length := len(query)

	isSimple := matchesAny(lower, simpleIndicators)
	isComplex := matchesAny(lower, complexIndicators)
	needsRealtime := matchesAny(lower, realtimeIndicators)
	needsCodeGen := matchesAny(lower, codeGenIndicators)

	sig := signals{
		RequiresRealtime: needsRealtime,
		RequiresCodeGen:  needsCodeGen,
		Reasoning:        "heuristic classification",
	}

	switch {
	case isSimple && length < thresholds.SimpleMaxLen && !isComplex:
		sig.Complexity = ports.ComplexitySimple
		sig.CanHandleLocally = true
		sig.Reasoning = "heuristic: simple indicator, short query"
	case isComplex || length > thresholds.ComplexMinLen:
		sig.Complexity = ports.ComplexityComplex
		sig.BenefitsFromMultiple = true
		sig.Reasoning = "heuristic: complex indicator or long query"
	default:
		sig.Complexity = ports.ComplexityModerate
		sig.Reasoning = "heuristic: no strong indicator, moderate"
	}
	return sig
}
