// Package analyzer turns raw screen signals into a classified ScreenContext.
// classifiers.go holds the pluggable classification strategies. The current
// implementations are keyword/regex heuristics; a model-based classifier can
// be swapped in without touching the rest of the pipeline.
package analyzer

import (
	"regexp"
	"strings"

	"github.com/normanking/glimpse/pkg/types"
)

// EnvironmentClassifier decides which application environment the user is in.
type EnvironmentClassifier interface {
	ClassifyEnvironment(sig Signals) (types.EnvironmentType, float64, []string)
}

// ActivityClassifier decides what the user is doing.
type ActivityClassifier interface {
	ClassifyActivity(sig Signals) (types.ActivityType, float64, []string)
}

// ═══════════════════════════════════════════════════════════════════════════════
// ENVIRONMENT HEURISTIC
// ═══════════════════════════════════════════════════════════════════════════════

// environmentVocabulary is one indicator list with its confidence increment.
type environmentVocabulary struct {
	env        types.EnvironmentType
	confidence float64
	indicators []string
}

// HeuristicEnvironmentClassifier matches window title and application name
// against fixed indicator vocabularies. First match wins; the vocabulary
// order below is the tie-break.
type HeuristicEnvironmentClassifier struct {
	vocabularies []environmentVocabulary
}

// NewHeuristicEnvironmentClassifier returns the default vocabulary set.
func NewHeuristicEnvironmentClassifier() *HeuristicEnvironmentClassifier {
	return &HeuristicEnvironmentClassifier{
		vocabularies: []environmentVocabulary{
			{
				env:        types.EnvIDE,
				confidence: 0.4,
				indicators: []string{"vscode", "visual studio", "intellij", "pycharm", "webstorm", "goland", "xcode", "sublime", "neovim", "eclipse", "android studio"},
			},
			{
				env:        types.EnvBrowser,
				confidence: 0.3,
				indicators: []string{"chrome", "firefox", "safari", "edge", "brave", "arc", "chromium"},
			},
			{
				env:        types.EnvDesignTool,
				confidence: 0.4,
				indicators: []string{"figma", "sketch", "photoshop", "illustrator", "affinity", "blender"},
			},
			{
				env:        types.EnvDocumentEditor,
				confidence: 0.3,
				indicators: []string{"word", "google docs", "notion", "obsidian", "pages", "libreoffice"},
			},
			{
				env:        types.EnvTerminal,
				confidence: 0.4,
				indicators: []string{"terminal", "iterm", "alacritty", "kitty", "wezterm", "konsole", "powershell", "cmd.exe"},
			},
		},
	}
}

// ClassifyEnvironment returns the first vocabulary match over the lowercased
// window title and application name, or EnvUnknown with confidence 0.1.
func (c *HeuristicEnvironmentClassifier) ClassifyEnvironment(sig Signals) (types.EnvironmentType, float64, []string) {
	haystack := strings.ToLower(sig.WindowTitle + " " + sig.ActiveApplication)
	if strings.TrimSpace(haystack) == "" {
		return types.EnvUnknown, 0.1, nil
	}

	for _, vocab := range c.vocabularies {
		for _, indicator := range vocab.indicators {
			if strings.Contains(haystack, indicator) {
				return vocab.env, vocab.confidence, []string{indicator}
			}
		}
	}

	return types.EnvUnknown, 0.1, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// ACTIVITY HEURISTIC
// ═══════════════════════════════════════════════════════════════════════════════

// codeIndicators match common declaration forms, tag syntax, and
// object-literal syntax across mainstream languages.
var codeIndicators = []*regexp.Regexp{
	regexp.MustCompile(`\bfunc\s+\w+`),
	regexp.MustCompile(`\bfunction\s+\w+\s*\(`),
	regexp.MustCompile(`\bclass\s+\w+`),
	regexp.MustCompile(`\bdef\s+\w+\s*\(`),
	regexp.MustCompile(`\b(import|from)\s+[\w."'/]+`),
	regexp.MustCompile(`</?[a-zA-Z][\w-]*[^>]*>`),
	regexp.MustCompile(`[{,]\s*["']?\w+["']?\s*:\s*`),
	regexp.MustCompile(`\b(const|let|var)\s+\w+\s*=`),
}

// HeuristicActivityClassifier classifies from the selected text. Code wins
// over prose; with no selection the activity is idle.
type HeuristicActivityClassifier struct{}

// NewHeuristicActivityClassifier returns the default activity heuristic.
func NewHeuristicActivityClassifier() *HeuristicActivityClassifier {
	return &HeuristicActivityClassifier{}
}

// ClassifyActivity tests the selection against the code heuristic first,
// then the prose heuristic (average sentence length strictly between 8 and
// 30 words). Falls back to ActivityIdle with confidence 0.1.
func (c *HeuristicActivityClassifier) ClassifyActivity(sig Signals) (types.ActivityType, float64, []string) {
	text := sig.SelectedText
	if strings.TrimSpace(text) == "" {
		return types.ActivityIdle, 0.1, nil
	}

	for _, re := range codeIndicators {
		if re.MatchString(text) {
			return types.ActivityCoding, 0.3, []string{re.String()}
		}
	}

	if avg := averageWordsPerSentence(text); avg > 8 && avg < 30 {
		return types.ActivityWriting, 0.2, []string{"prose"}
	}

	return types.ActivityIdle, 0.1, nil
}

// averageWordsPerSentence splits on terminal punctuation and averages the
// word counts of non-empty sentences.
func averageWordsPerSentence(text string) float64 {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return 0
	}

	words := 0
	for _, s := range sentences {
		words += len(strings.Fields(s))
	}
	return float64(words) / float64(len(sentences))
}

func splitSentences(text string) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})

	sentences := make([]string, 0, len(raw))
	for _, s := range raw {
		if strings.TrimSpace(s) != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// IsCodeContent reports whether the text trips the code heuristic. The
// content analysis step shares this with the activity classifier.
func IsCodeContent(text string) bool {
	for _, re := range codeIndicators {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
