package ledger

import (
	"conclave/internal/ports"
)

// Base impact scores per interaction type. Routing decisions start low and
// earn bonuses from the payload; human input outweighs everything machine
// generated.
const (
	impactHumanDecision   = 8.0
	impactHumanApproval   = 7.0
	impactAgentGeneration = 5.0
	impactSynthesis       = 7.0
	impactRoutingDecision = 3.0

	maxImpact = 10.0

	// Routing bonuses.
	bonusModerate   = 1.0
	bonusComplex    = 2.0
	bonusPerBackend = 0.5
	maxBackendBonus = 3.0
)

// ImpactScore weighs an entry's significance on a 0-10 scale. Routing
// decisions gain bonuses for query complexity and for the number of
// backends consulted, read from the payload when present.
func ImpactScore(entry ports.LedgerEntry) float64 {
	switch entry.Type {
	case ports.InteractionHumanInput:
		if isApproval(entry.Payload) {
			return impactHumanApproval
		}
		return impactHumanDecision
	case ports.InteractionSynthesis:
		return impactSynthesis
	case ports.InteractionContribution:
		return impactAgentGeneration
	case ports.InteractionDecision:
		score := impactRoutingDecision + complexityBonus(entry.Payload) + backendBonus(entry.Payload)
		if score > maxImpact {
			return maxImpact
		}
		return score
	default:
		return impactRoutingDecision
	}
}

func isApproval(payload map[string]any) bool {
	approved, ok := payload["approval"].(bool)
	return ok && approved
}

func complexityBonus(payload map[string]any) float64 {
	complexity, _ := payload["complexity"].(string)
	switch ports.Complexity(complexity) {
	case ports.ComplexityModerate:
		return bonusModerate
	case ports.ComplexityComplex:
		return bonusComplex
	default:
		return 0
	}
}

func backendBonus(payload map[string]any) float64 {
	var count float64
	switch v := payload["backends"].(type) {
	case []string:
		count = float64(len(v))
	case []any:
		count = float64(len(v))
	case float64:
		count = v
	case int:
		count = float64(v)
	}
	bonus := count * bonusPerBackend
	if bonus > maxBackendBonus {
		return maxBackendBonus
	}
	return bonus
}
