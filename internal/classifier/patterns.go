package classifier

import (
	"os"

	"github.com/arohandas/introute/models"
	"gopkg.in/yaml.v3"
)

// PatternSet is the hot-reloadable vocabulary the feature detector and
// category classifier match against. Patterns use simple substring
// matching, not regular expressions: several entries carry a leading
// or trailing space deliberately, as word-boundary guards against
// false positives (" hi " must not match "history").
type PatternSet struct {
	Features      map[models.Feature][]string  `yaml:"features"`
	QuestionWords []string                     `yaml:"question_words"`
	CategoryTools map[models.Category][]string `yaml:"category_tools"`
}

// DefaultPatterns is the built-in vocabulary, used until a
// config/patterns.yaml file is found and until any subsequent reload.
func DefaultPatterns() PatternSet {
	return PatternSet{
		Features: map[models.Feature][]string{
			models.FeatureMultiDocument: {
				"compare", "multiple", "several", " all ", "across", "between",
				"documents", "files", "contracts", "policies", "analyze together",
			},
			models.FeatureExternalDataNeeded: {
				"current", "recent", "latest", "today", "news", "regulation",
				"industry", "market", "trend", "outside", "external", "web",
			},
			models.FeatureComplexReasoning: {
				"why ", " how ", "explain", "analyze", "evaluate", "assess",
				"recommend", "suggest", "strategy", "impact", "implications",
			},
			models.FeatureEntityExtraction: {
				"extract", "find all", " list ", "identify", " names", " dates",
				"numbers", "entities", "metadata", "structured",
			},
			models.FeatureConversational: {
				"hello", " hi ", "hi,", "hi!", "thanks", "help me", "what can you",
				"tell me about yourself", "who are you",
			},
			models.FeatureSimpleLookup: {
				"what is", "show me", " find ", "where is", "when was",
				"how much", "policy on", "document about",
			},
		},
		QuestionWords: []string{"why", "how", "explain", "analyze", "compare"},
		CategoryTools: map[models.Category][]string{
			models.CategoryDocumentLookup:   {"VectorSearch", "DocumentRetrieval"},
			models.CategoryDocumentAnalysis: {"VectorSearch", "DocumentRetrieval", "Summarizer"},
			models.CategoryResearch:         {"WebSearch", "VectorSearch", "WebBrowse"},
			models.CategoryConversational:   {"ConversationMemory"},
			models.CategoryMultiStep:        {"VectorSearch", "WebSearch", "Calculator", "Summarizer"},
			models.CategoryEntityExtraction: {"VectorSearch", "EntityExtractor", "StructuredOutput"},
		},
	}
}

// LoadPatternsFile reads a PatternSet from a yaml file, falling back to
// DefaultPatterns for any section the file omits.
func LoadPatternsFile(path string) (PatternSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return PatternSet{}, err
	}

	set := DefaultPatterns()
	if err := yaml.Unmarshal(raw, &set); err != nil {
		return PatternSet{}, err
	}
	return set, nil
}

// ToolsFor returns the suggested tool list for a category, or nil if
// the pattern set carries none.
func (p PatternSet) ToolsFor(category models.Category) []string {
	return p.CategoryTools[category]
}
