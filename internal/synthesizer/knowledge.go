package synthesizer

import "github.com/normanking/glimpse/pkg/types"

// Domain labels produced by the resolution table.
const (
	DomainDevelopment = "development"
	DomainResearch    = "research"
	DomainDesign      = "design"
	DomainWriting     = "writing"
	DomainSysAdmin    = "system-administration"
	DomainGeneral     = "general"
)

// resolveDomain maps an (environment, activity) pair to a domain label.
// The table is ordered; the first matching row wins.
func resolveDomain(env types.EnvironmentType, act types.ActivityType) string {
	switch {
	case env == types.EnvIDE || act == types.ActivityCoding:
		return DomainDevelopment
	case env == types.EnvBrowser && act == types.ActivityResearch:
		return DomainResearch
	case env == types.EnvDesignTool || act == types.ActivityDesign:
		return DomainDesign
	case env == types.EnvDocumentEditor || act == types.ActivityWriting:
		return DomainWriting
	case env == types.EnvTerminal:
		return DomainSysAdmin
	default:
		return DomainGeneral
	}
}

// defaultDomainKnowledge is the static per-domain table. Read-only after
// initialization; customization always copies before appending.
func defaultDomainKnowledge() map[string]types.DomainKnowledge {
	return map[string]types.DomainKnowledge{
		DomainDevelopment: {
			Domain:         DomainDevelopment,
			ExpertiseLevel: "intermediate",
			Tools:          []string{"version control", "debugger", "test runner"},
			Conventions:    []string{"small focused commits", "code review before merge"},
			Patterns:       []string{"red-green-refactor", "dependency injection"},
			Resources:      []string{"language reference", "project documentation"},
		},
		DomainResearch: {
			Domain:         DomainResearch,
			ExpertiseLevel: "intermediate",
			Tools:          []string{"search engine", "reference manager"},
			Conventions:    []string{"cite primary sources", "cross-check claims"},
			Patterns:       []string{"survey-then-deepen"},
			Resources:      []string{"academic databases", "documentation portals"},
		},
		DomainDesign: {
			Domain:         DomainDesign,
			ExpertiseLevel: "intermediate",
			Tools:          []string{"design system", "prototyping tool"},
			Conventions:    []string{"consistent spacing scale", "accessible contrast"},
			Patterns:       []string{"mobile-first layout"},
			Resources:      []string{"component library", "brand guidelines"},
		},
		DomainWriting: {
			Domain:         DomainWriting,
			ExpertiseLevel: "intermediate",
			Tools:          []string{"outline editor", "grammar checker"},
			Conventions:    []string{"one idea per paragraph", "active voice"},
			Patterns:       []string{"draft-then-edit"},
			Resources:      []string{"style guide"},
		},
		DomainSysAdmin: {
			Domain:         DomainSysAdmin,
			ExpertiseLevel: "intermediate",
			Tools:          []string{"shell", "process monitor", "log viewer"},
			Conventions:    []string{"check before destructive commands"},
			Patterns:       []string{"observe-diagnose-apply"},
			Resources:      []string{"man pages", "runbooks"},
		},
		DomainGeneral: {
			Domain:         DomainGeneral,
			ExpertiseLevel: "beginner",
			Tools:          []string{"general productivity tools"},
			Conventions:    nil,
			Patterns:       nil,
			Resources:      []string{"web search"},
		},
	}
}

// environmentTools are appended to the base domain record per environment.
var environmentTools = map[types.EnvironmentType]string{
	types.EnvIDE:            "integrated development environment",
	types.EnvBrowser:        "browser developer tools",
	types.EnvDesignTool:     "canvas-based design tool",
	types.EnvDocumentEditor: "rich document editor",
	types.EnvTerminal:       "terminal emulator",
}

// activityPatterns are appended to the base domain record per activity.
var activityPatterns = map[types.ActivityType]string{
	types.ActivityCoding:    "incremental implementation with fast feedback",
	types.ActivityDebugging: "reproduce, isolate, and fix workflow",
	types.ActivityWriting:   "outline before prose",
	types.ActivityResearch:  "breadth-first source gathering",
	types.ActivityLearning:  "worked-example study",
}

// customizeDomain copies the base record and appends environment-specific
// tools and activity-specific patterns. Base entries are never removed.
func customizeDomain(base types.DomainKnowledge, env types.EnvironmentType, act types.ActivityType) types.DomainKnowledge {
	out := base
	out.Tools = append([]string(nil), base.Tools...)
	out.Patterns = append([]string(nil), base.Patterns...)

	if tool, ok := environmentTools[env]; ok {
		out.Tools = append(out.Tools, tool)
	}
	if pattern, ok := activityPatterns[act]; ok {
		out.Patterns = append(out.Patterns, pattern)
	}
	return out
}
