// optimize.go implements the ordered prompt optimization pipeline and the
// clarity/specificity/actionability scoring.
package prompts

import (
	"regexp"
	"strings"

	"github.com/normanking/glimpse/pkg/types"
)

// conciseLengthLimit is the hard cap applied when a "concise" length
// constraint is declared on the template.
const conciseLengthLimit = 500

// optimizationStage is one pass over the prompt text. Stages run in
// order; each consumes the previous stage's output.
type optimizationStage struct {
	name  string
	apply func(string) string
}

var multiSpaceRe = regexp.MustCompile(`[ \t]{2,}`)
var multiNewlineRe = regexp.MustCompile(`\n{3,}`)

// pipeline builds the stage list for a template. The specificity stage is
// a deliberate no-op extension point for a future enrichment pass.
func pipeline(t types.PromptTemplate) []optimizationStage {
	stages := []optimizationStage{
		{name: "redundancy-removal", apply: removeRedundancy},
		{name: "clarity-normalization", apply: normalizeWhitespace},
		{name: "specificity-enhancement", apply: enhanceSpecificity},
	}

	if hasConciseConstraint(t) {
		stages = append(stages, optimizationStage{name: "length-truncation", apply: truncateConcise})
	}
	return stages
}

// optimize runs the pipeline and reports the applied strategies (stages
// that changed the text) plus per-stage length effects.
func optimize(t types.PromptTemplate, text string) (string, []string) {
	var applied []string
	for _, stage := range pipeline(t) {
		next := stage.apply(text)
		if next != text {
			applied = append(applied, stage.name)
		}
		text = next
	}
	return text, applied
}

// removeRedundancy collapses immediately repeated words, case-insensitively,
// keeping the first occurrence. Unchanged input is returned verbatim so the
// stage never reports as applied spuriously.
func removeRedundancy(text string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return text
	}

	out := make([]string, 0, len(words))
	out = append(out, words[0])
	changed := false
	for _, w := range words[1:] {
		if strings.EqualFold(w, out[len(out)-1]) {
			changed = true
			continue
		}
		out = append(out, w)
	}
	if !changed {
		return text
	}
	return strings.Join(out, " ")
}

// normalizeWhitespace collapses runs of spaces and blank lines.
func normalizeWhitespace(text string) string {
	text = multiSpaceRe.ReplaceAllString(text, " ")
	text = multiNewlineRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// enhanceSpecificity is the extension point for a future pass that
// injects precision cues. It currently returns its input unchanged.
func enhanceSpecificity(text string) string {
	return text
}

// truncateConcise hard-truncates with an ellipsis beyond the concise cap.
// Counts runes, not bytes, so multi-byte text is never split mid-character.
func truncateConcise(text string) string {
	r := []rune(text)
	if len(r) <= conciseLengthLimit {
		return text
	}
	return string(r[:conciseLengthLimit]) + "..."
}

func hasConciseConstraint(t types.PromptTemplate) bool {
	for _, c := range t.Constraints {
		if c.Kind == types.ConstraintLength && c.Value == "concise" {
			return true
		}
	}
	return false
}

// ═══════════════════════════════════════════════════════════════════════════════
// SCORING
// ═══════════════════════════════════════════════════════════════════════════════

// idealSentenceChars is the sentence length (in characters) below which
// clarity is perfect; beyond it the score decays linearly.
const idealSentenceChars = 100.0

var precisionWords = []string{"specifically", "exactly", "precise", "concrete", "step", "detailed", "particular"}

var actionVerbs = []string{"solve", "fix", "implement", "explain", "analyze", "review", "summarize", "diagnose", "generate", "provide"}

// clarityScore scales with average characters per sentence: short
// sentences score 1.0, longer ones decay toward zero.
func clarityScore(text string) float64 {
	sentences := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})

	count := 0
	chars := 0
	for _, s := range sentences {
		if strings.TrimSpace(s) == "" {
			continue
		}
		count++
		chars += len(s)
	}
	if count == 0 {
		return 0
	}

	avg := float64(chars) / float64(count)
	if avg <= idealSentenceChars {
		return 1.0
	}
	return types.Clamp01(1 - (avg-idealSentenceChars)/(idealSentenceChars*4))
}

// vocabularyScore gives a base score plus a fixed increment per matched
// word, capped at three matches.
func vocabularyScore(text string, vocabulary []string) float64 {
	lower := strings.ToLower(text)
	matches := 0
	for _, w := range vocabulary {
		if strings.Contains(lower, w) {
			matches++
			if matches == 3 {
				break
			}
		}
	}
	return types.Clamp01(0.4 + 0.2*float64(matches))
}

func specificityScore(text string) float64 {
	return vocabularyScore(text, precisionWords)
}

func actionabilityScore(text string) float64 {
	return vocabularyScore(text, actionVerbs)
}
