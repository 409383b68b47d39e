// templates.go holds the builtin template library and selection scoring.
package prompts

import (
	"sync"

	"github.com/normanking/glimpse/pkg/types"
)

// Selection scoring weights.
const (
	selectionDomainBonus     = 0.5
	selectionSuccessWeight   = 0.3
	selectionUsageBonusCap   = 0.2
	selectionUsagePerHundred = 100.0
)

// Library is an ordered template collection. Registration order is the
// tie-break during selection. Captures run in their own goroutines, so
// all access is serialized by the internal mutex.
type Library struct {
	mu        sync.RWMutex
	templates []types.PromptTemplate
}

// NewLibrary returns a library seeded with the builtin templates.
func NewLibrary() *Library {
	lib := &Library{}
	for _, t := range builtinTemplates() {
		lib.Register(t)
	}
	return lib
}

// Register appends a template to the library.
func (l *Library) Register(t types.PromptTemplate) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.templates = append(l.templates, t)
}

// Templates returns a copy of the registered templates in registration order.
func (l *Library) Templates() []types.PromptTemplate {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]types.PromptTemplate, len(l.templates))
	copy(out, l.templates)
	return out
}

// Select picks the best template for the objective and domain. With no
// objective match it falls back to a generic template for the objective.
// Scoring: +0.5 domain match, success rate × 0.3, and a usage-popularity
// bonus of min(0.2, usage/100). Ties keep the earlier registration.
func (l *Library) Select(objective types.PromptObjective, domain string) types.PromptTemplate {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var best *types.PromptTemplate
	bestScore := -1.0

	for i := range l.templates {
		t := &l.templates[i]
		if t.Objective != objective {
			continue
		}

		score := t.SuccessRate * selectionSuccessWeight
		if t.Domain == domain {
			score += selectionDomainBonus
		}
		usageBonus := float64(t.UsageCount) / selectionUsagePerHundred
		if usageBonus > selectionUsageBonusCap {
			usageBonus = selectionUsageBonusCap
		}
		score += usageBonus

		if score > bestScore {
			best = t
			bestScore = score
		}
	}

	if best == nil {
		return genericTemplate(objective)
	}
	return *best
}

// RecordUse bumps a template's usage counter. Success-rate updates arrive
// from the engine once an interaction outcome is known.
func (l *Library) RecordUse(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.templates {
		if l.templates[i].ID == id {
			l.templates[i].UsageCount++
			return
		}
	}
}

// RecordOutcome folds one success/failure into the template's running
// success rate.
func (l *Library) RecordOutcome(id string, success bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.templates {
		t := &l.templates[i]
		if t.ID != id {
			continue
		}
		value := 0.0
		if success {
			value = 1.0
		}
		if t.UsageCount <= 1 {
			t.SuccessRate = value
		} else {
			n := float64(t.UsageCount)
			t.SuccessRate = (t.SuccessRate*(n-1) + value) / n
		}
		return
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// BUILTIN TEMPLATES
// ═══════════════════════════════════════════════════════════════════════════════

var commonVariables = []types.TemplateVariable{
	{Name: "USER_QUERY", Required: true, Type: types.VarString},
	{Name: "CONTEXT", Required: true, Type: types.VarString},
	{Name: "DOMAIN", Required: false, Type: types.VarString, Default: "general"},
	{Name: "EXPERTISE_LEVEL", Required: false, Type: types.VarString, Default: "intermediate"},
	{Name: "SUGGESTED_ACTIONS", Required: false, Type: types.VarList},
	{Name: "HISTORY", Required: false, Type: types.VarString, Default: "no prior sessions recorded"},
	{Name: "TOOLS", Required: false, Type: types.VarList},
}

func builtinTemplates() []types.PromptTemplate {
	return []types.PromptTemplate{
		{
			ID:        "solve-dev-v1",
			Name:      "development problem solver",
			Version:   "1.0",
			Objective: types.ObjectiveSolve,
			Domain:    "development",
			Body: "You are assisting a {{EXPERTISE_LEVEL}} developer. Situation: {{CONTEXT}}. " +
				"Prior activity: {{HISTORY}}. Available tooling: {{TOOLS}}. " +
				"Solve the following precisely and show working code where relevant: {{USER_QUERY}}. " +
				"Recommended next steps: {{SUGGESTED_ACTIONS}}.",
			Variables:   commonVariables,
			Constraints: []types.TemplateConstraint{{Kind: types.ConstraintStyle, Value: "technical", Priority: 1}},
			SuccessRate: 0.8,
		},
		{
			ID:        "solve-generic-v1",
			Name:      "general problem solver",
			Version:   "1.0",
			Objective: types.ObjectiveSolve,
			Body: "Situation: {{CONTEXT}}. The user asks: {{USER_QUERY}}. " +
				"Provide a direct, specific solution for the {{DOMAIN}} domain.",
			Variables:   commonVariables,
			SuccessRate: 0.7,
		},
		{
			ID:        "debug-dev-v1",
			Name:      "error diagnosis",
			Version:   "1.0",
			Objective: types.ObjectiveDebug,
			Domain:    "development",
			Body: "A {{EXPERTISE_LEVEL}} developer hit a problem. Situation: {{CONTEXT}}. " +
				"History: {{HISTORY}}. Diagnose the error and give a concrete fix: {{USER_QUERY}}. " +
				"Check these angles first: {{SUGGESTED_ACTIONS}}.",
			Variables:   commonVariables,
			Constraints: []types.TemplateConstraint{{Kind: types.ConstraintLength, Value: "concise", Priority: 2}},
			SuccessRate: 0.75,
		},
		{
			ID:        "explain-v1",
			Name:      "visible content explainer",
			Version:   "1.0",
			Objective: types.ObjectiveExplain,
			Body: "Situation: {{CONTEXT}}. Explain clearly for a {{EXPERTISE_LEVEL}} audience: {{USER_QUERY}}. " +
				"Anchor the explanation in the {{DOMAIN}} domain.",
			Variables:   commonVariables,
			SuccessRate: 0.7,
		},
		{
			ID:        "review-dev-v1",
			Name:      "code review",
			Version:   "1.0",
			Objective: types.ObjectiveReview,
			Domain:    "development",
			Body: "Situation: {{CONTEXT}}. Review the visible code for bugs, edge cases, and style. " +
				"Focus request: {{USER_QUERY}}. Conventions in play: {{TOOLS}}.",
			Variables:   commonVariables,
			SuccessRate: 0.7,
		},
		{
			ID:        "summarize-v1",
			Name:      "screen summarizer",
			Version:   "1.0",
			Objective: types.ObjectiveSummarize,
			Body: "Situation: {{CONTEXT}}. Summarize the material on screen for the user. " +
				"Emphasis: {{USER_QUERY}}.",
			Variables:   commonVariables,
			Constraints: []types.TemplateConstraint{{Kind: types.ConstraintLength, Value: "concise", Priority: 1}},
			SuccessRate: 0.7,
		},
	}
}

// genericTemplate is the last-resort template for an objective with no
// registered match.
func genericTemplate(objective types.PromptObjective) types.PromptTemplate {
	return types.PromptTemplate{
		ID:        "generic-" + string(objective),
		Name:      "generic " + string(objective),
		Version:   "1.0",
		Objective: objective,
		Body:      "Context: {{CONTEXT}}. Objective: " + string(objective) + ". Request: {{USER_QUERY}}.",
		Variables: []types.TemplateVariable{
			{Name: "USER_QUERY", Required: true, Type: types.VarString},
			{Name: "CONTEXT", Required: true, Type: types.VarString},
		},
		SuccessRate: 0.6,
	}
}

// genericFraming is the context-free final fallback per objective.
var genericFraming = map[types.PromptObjective]string{
	types.ObjectiveSolve:     "Provide a direct solution to the problem shown on the user's screen.",
	types.ObjectiveExplain:   "Explain the content shown on the user's screen in plain terms.",
	types.ObjectiveDebug:     "Identify the error shown on the user's screen and suggest a fix.",
	types.ObjectiveReview:    "Review the content shown on the user's screen and point out issues.",
	types.ObjectiveGenerate:  "Generate the content the user is asking for.",
	types.ObjectiveSummarize: "Summarize the content shown on the user's screen.",
}
