// Package types defines shared types used across all Glimpse modules.
package types

import "time"

// ═══════════════════════════════════════════════════════════════════════════════
// TOKEN ESTIMATION
// ═══════════════════════════════════════════════════════════════════════════════

// CharsPerToken is the heuristic for token estimation (~4 chars per token).
// This is a common approximation for English text with LLM tokenizers.
const CharsPerToken = 4

// EstimateTokens provides a rough token estimate for a given text.
// The prompts package prefers a real tokenizer when one is available.
func EstimateTokens(text string) int {
	return len(text) / CharsPerToken
}

// Clamp01 clamps a score to the [0, 1] range.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ═══════════════════════════════════════════════════════════════════════════════
// CLASSIFICATION ENUMS
// ═══════════════════════════════════════════════════════════════════════════════

// EnvironmentType is the coarse classification of the application context
// the user is working in.
type EnvironmentType string

const (
	EnvIDE            EnvironmentType = "ide"
	EnvBrowser        EnvironmentType = "browser"
	EnvDesignTool     EnvironmentType = "design"
	EnvDocumentEditor EnvironmentType = "document"
	EnvTerminal       EnvironmentType = "terminal"
	EnvMixed          EnvironmentType = "mixed"
	EnvUnknown        EnvironmentType = "unknown"
)

// ActivityType is the coarse classification of what the user is doing.
type ActivityType string

const (
	ActivityCoding        ActivityType = "coding"
	ActivityWriting       ActivityType = "writing"
	ActivityResearch      ActivityType = "research"
	ActivityDesign        ActivityType = "design"
	ActivityCommunication ActivityType = "communication"
	ActivityLearning      ActivityType = "learning"
	ActivityDebugging     ActivityType = "debugging"
	ActivityIdle          ActivityType = "idle"
)

// UrgencyLevel ranks how time-sensitive the inferred intent is.
type UrgencyLevel string

const (
	UrgencyLow    UrgencyLevel = "low"
	UrgencyMedium UrgencyLevel = "medium"
	UrgencyHigh   UrgencyLevel = "high"
)

// ComplexityLevel ranks how involved the inferred task is.
type ComplexityLevel string

const (
	ComplexitySimple   ComplexityLevel = "simple"
	ComplexityModerate ComplexityLevel = "moderate"
	ComplexityComplex  ComplexityLevel = "complex"
)

// SignalSource identifies which raw signal contributed to a classification.
type SignalSource string

const (
	SourceScreenshot       SignalSource = "screenshot"
	SourceClipboard        SignalSource = "clipboard"
	SourceWindowTitle      SignalSource = "window-title"
	SourceApplicationState SignalSource = "application-state"
	SourceUserInput        SignalSource = "user-input"
	SourceTemporal         SignalSource = "temporal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SCREEN CONTEXT
// ═══════════════════════════════════════════════════════════════════════════════

// ApplicationDetails describes the foreground application at capture time.
type ApplicationDetails struct {
	// ActiveApplication is the foreground application name ("unknown" if absent)
	ActiveApplication string `json:"active_application"`
	// WindowTitle is the foreground window title
	WindowTitle string `json:"window_title,omitempty"`
	// Selection is the user's selected text, if any
	Selection string `json:"selection,omitempty"`
}

// ContentAnalysis holds content extracted from the captured screen.
// Every slice may be empty; the analyzer currently fills these from
// auxiliary signals, not from the screenshot pixels themselves.
type ContentAnalysis struct {
	TextSpans          []string `json:"text_spans,omitempty"`
	CodeSnippets       []string `json:"code_snippets,omitempty"`
	UIElements         []string `json:"ui_elements,omitempty"`
	MediaElements      []string `json:"media_elements,omitempty"`
	StructuralElements []string `json:"structural_elements,omitempty"`
	SemanticTags       []string `json:"semantic_tags,omitempty"`
}

// SuggestedAction is a single recommended next step, ranked by
// Priority × EstimatedImpact.
type SuggestedAction struct {
	Description     string  `json:"description"`
	Priority        float64 `json:"priority"`         // 0.0 - 1.0
	EstimatedImpact float64 `json:"estimated_impact"` // 0.0 - 1.0
}

// IntentAnalysis is the analyzer's best guess at what the user wants.
type IntentAnalysis struct {
	Primary          string            `json:"primary"`
	Secondary        []string          `json:"secondary,omitempty"`
	Urgency          UrgencyLevel      `json:"urgency"`
	Complexity       ComplexityLevel   `json:"complexity"`
	SuggestedActions []SuggestedAction `json:"suggested_actions,omitempty"`
	Dependencies     []string          `json:"dependencies,omitempty"`
}

// ScreenContext is a point-in-time classification of the user's screen
// state. It is immutable once returned by the analyzer; memory and the
// synthesizer reference it but never mutate it.
type ScreenContext struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	// Environment and Activity always carry a value; the analyzer falls
	// back to EnvUnknown / ActivityIdle rather than leaving them empty.
	Environment EnvironmentType `json:"environment"`
	Activity    ActivityType    `json:"activity"`

	// Confidence is the aggregate classification confidence, 0.0 - 1.0.
	Confidence float64 `json:"confidence"`

	App     ApplicationDetails `json:"app"`
	Content ContentAnalysis    `json:"content"`
	Intent  IntentAnalysis     `json:"intent"`

	// Sources lists the signals that contributed to this classification.
	Sources []SignalSource `json:"sources"`
}

// ═══════════════════════════════════════════════════════════════════════════════
// MEMORY TYPES
// ═══════════════════════════════════════════════════════════════════════════════

// ContextSnapshot is one retained historical record: a classified context
// plus the actions and outcomes observed around it. Never mutated after
// insertion; evicted only by retention cleanup or capacity pressure.
type ContextSnapshot struct {
	Context     ScreenContext `json:"context"`
	UserActions []string      `json:"user_actions,omitempty"`
	Outcomes    []string      `json:"outcomes,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// PatternDimension identifies which grouping produced a pattern.
type PatternDimension string

const (
	DimensionEnvironment PatternDimension = "environment"
	DimensionActivity    PatternDimension = "activity"
	DimensionTemporal    PatternDimension = "temporal"
	DimensionCombined    PatternDimension = "combined"
)

// ContextPattern is a mined aggregate describing a recurring combination
// of environment, activity, or time-of-day.
type ContextPattern struct {
	// Key is the family-specific identifier, e.g. "env-ide", "time-14",
	// "activity-coding", or the combined "ide-coding".
	Key        string           `json:"key"`
	Dimension  PatternDimension `json:"dimension"`
	Frequency  int              `json:"frequency"`
	ContextIDs []string         `json:"context_ids,omitempty"`

	CommonTriggers []string `json:"common_triggers,omitempty"`
	CommonOutcomes []string `json:"common_outcomes,omitempty"`

	// Confidence grows with frequency, capped at 1.0.
	Confidence float64 `json:"confidence"`

	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// ScoredSnapshot pairs a historical snapshot with its relevance score
// against a query context.
type ScoredSnapshot struct {
	Snapshot ContextSnapshot `json:"snapshot"`
	Score    float64         `json:"score"`
}

// ═══════════════════════════════════════════════════════════════════════════════
// SYNTHESIS TYPES
// ═══════════════════════════════════════════════════════════════════════════════

// DomainKnowledge is the static per-domain record the synthesizer
// customizes for each engineered context.
type DomainKnowledge struct {
	Domain         string   `json:"domain"`
	ExpertiseLevel string   `json:"expertise_level"`
	Tools          []string `json:"tools,omitempty"`
	Conventions    []string `json:"conventions,omitempty"`
	Patterns       []string `json:"patterns,omitempty"`
	Resources      []string `json:"resources,omitempty"`
}

// QualityMetrics scores an engineered context. All fields are in [0, 1].
type QualityMetrics struct {
	Accuracy      float64 `json:"accuracy"`
	Completeness  float64 `json:"completeness"`
	Relevance     float64 `json:"relevance"`
	Timeliness    float64 `json:"timeliness"`
	Actionability float64 `json:"actionability"`
	Overall       float64 `json:"overall"`
}

// SynthesisMetadata records how an engineered context was produced.
type SynthesisMetadata struct {
	ProcessingTime    time.Duration      `json:"processing_time"`
	SourcesUsed       []string           `json:"sources_used,omitempty"`
	ModelsInvolved    []string           `json:"models_involved,omitempty"`
	ConfidenceFactors map[string]float64 `json:"confidence_factors,omitempty"`
}

// EngineeredContext is the synthesis output: the weighted, quality-scored,
// action-annotated combination of current, historical, and domain context.
// Created once per synthesis call and never mutated.
type EngineeredContext struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	// Description is a deterministic human-readable situational sentence.
	Description string `json:"description"`

	// RelevantHistory is bounded and ranked, best match first.
	RelevantHistory []ScoredSnapshot `json:"relevant_history"`

	Domain  DomainKnowledge   `json:"domain"`
	Actions []SuggestedAction `json:"actions"`
	Quality QualityMetrics    `json:"quality"`

	Metadata SynthesisMetadata `json:"metadata"`
}

// ═══════════════════════════════════════════════════════════════════════════════
// PROMPT TYPES
// ═══════════════════════════════════════════════════════════════════════════════

// PromptObjective tags what the generated prompt should accomplish.
type PromptObjective string

const (
	ObjectiveSolve     PromptObjective = "solve"
	ObjectiveExplain   PromptObjective = "explain"
	ObjectiveDebug     PromptObjective = "debug"
	ObjectiveReview    PromptObjective = "review"
	ObjectiveGenerate  PromptObjective = "generate"
	ObjectiveSummarize PromptObjective = "summarize"
)

// PromptStyle controls the register of the generated prompt.
type PromptStyle string

const (
	StyleConversational PromptStyle = "conversational"
	StyleTechnical      PromptStyle = "technical"
	StyleConcise        PromptStyle = "concise"
)

// PromptLength buckets the target prompt length.
type PromptLength string

const (
	LengthShort  PromptLength = "short"
	LengthMedium PromptLength = "medium"
	LengthLong   PromptLength = "long"
)

// VariableType is the declared type of a template variable slot.
type VariableType string

const (
	VarString VariableType = "string"
	VarNumber VariableType = "number"
	VarList   VariableType = "list"
)

// TemplateVariable is a typed slot in a prompt template body.
type TemplateVariable struct {
	// Name matches the {{NAME}} placeholder in the template body.
	Name     string       `json:"name"`
	Required bool         `json:"required"`
	Type     VariableType `json:"type"`
	// Default fills optional variables when no value is supplied.
	Default string `json:"default,omitempty"`
	// Validate is an optional regular expression the value must match.
	Validate string `json:"validate,omitempty"`
}

// ConstraintKind classifies a template constraint.
type ConstraintKind string

const (
	ConstraintLength  ConstraintKind = "length"
	ConstraintStyle   ConstraintKind = "style"
	ConstraintContent ConstraintKind = "content"
	ConstraintFormat  ConstraintKind = "format"
)

// TemplateConstraint bounds how a template may be adapted.
type TemplateConstraint struct {
	Kind     ConstraintKind `json:"kind"`
	Value    string         `json:"value"`
	Priority int            `json:"priority"`
}

// PromptTemplate is a named, versioned, reusable prompt pattern with
// typed variable slots and running selection metadata.
type PromptTemplate struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`

	Objective PromptObjective `json:"objective"`
	// Domain the template is tuned for ("" matches any domain).
	Domain string `json:"domain,omitempty"`

	Body        string               `json:"body"`
	Variables   []TemplateVariable   `json:"variables"`
	Examples    []string             `json:"examples,omitempty"`
	Constraints []TemplateConstraint `json:"constraints,omitempty"`

	// Selection metadata, updated by the engineer after each use.
	UsageCount  int     `json:"usage_count"`
	SuccessRate float64 `json:"success_rate"`
	AvgRating   float64 `json:"avg_rating"`
}

// OptimizationMetrics records what the optimization pipeline did.
type OptimizationMetrics struct {
	OriginalLength  int      `json:"original_length"`
	OptimizedLength int      `json:"optimized_length"`
	Clarity         float64  `json:"clarity"`
	Specificity     float64  `json:"specificity"`
	Actionability   float64  `json:"actionability"`
	Strategies      []string `json:"strategies,omitempty"`
}

// PromptMetadata describes how a prompt was produced.
type PromptMetadata struct {
	TemplateID      string          `json:"template_id"`
	ContextElements []string        `json:"context_elements,omitempty"`
	ProcessingTime  time.Duration   `json:"processing_time"`
	TargetModel     string          `json:"target_model,omitempty"`
	Complexity      ComplexityLevel `json:"complexity"`
	Style           PromptStyle     `json:"style"`
	Length          PromptLength    `json:"length"`
	EstimatedTokens int             `json:"estimated_tokens"`
}

// EngineeredPrompt is the final pipeline output sent to the generation
// backend.
type EngineeredPrompt struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	// Text is the literal prompt dispatched to the backend.
	Text string `json:"text"`

	ContextSummary  string          `json:"context_summary"`
	Objective       PromptObjective `json:"objective"`
	ExpectedOutcome string          `json:"expected_outcome"`

	// Confidence is the engineer's confidence in this prompt, 0.0 - 1.0.
	Confidence float64 `json:"confidence"`

	// Fallbacks are ordered least to most generic: simplified restatement,
	// the raw user query, then a context-free generic framing.
	Fallbacks []string `json:"fallbacks"`

	Metadata     PromptMetadata      `json:"metadata"`
	Optimization OptimizationMetrics `json:"optimization"`
}
