package memory

import (
	"time"

	"github.com/normanking/glimpse/pkg/types"
)

// Relevance scoring weights. The synthesizer's history selection uses the
// same function, so the two components can never drift apart.
const (
	relevanceEnvironmentWeight = 0.3
	relevanceActivityWeight    = 0.25
	relevanceApplicationWeight = 0.2
	relevanceRecencyWeight     = 0.15
	relevanceConfidenceWeight  = 0.1

	// recencyWindow is the horizon over which the recency contribution
	// decays linearly to zero.
	recencyWindow = 24 * time.Hour
)

// Relevance scores a historical snapshot against a query context:
// environment equality contributes 0.3, activity equality 0.25, active
// application equality 0.2, recency up to 0.15 (linear decay over 24h),
// and the snapshot's own confidence up to 0.1. The total is capped at 1.
func Relevance(current types.ScreenContext, snap types.ContextSnapshot) float64 {
	score := 0.0

	if snap.Context.Environment == current.Environment {
		score += relevanceEnvironmentWeight
	}
	if snap.Context.Activity == current.Activity {
		score += relevanceActivityWeight
	}
	if snap.Context.App.ActiveApplication == current.App.ActiveApplication {
		score += relevanceApplicationWeight
	}

	age := current.Timestamp.Sub(snap.Context.Timestamp)
	if age < 0 {
		age = 0
	}
	recency := 1 - age.Hours()/recencyWindow.Hours()
	if recency < 0 {
		recency = 0
	}
	score += recency * relevanceRecencyWeight

	score += snap.Context.Confidence * relevanceConfidenceWeight

	return min1(score)
}
