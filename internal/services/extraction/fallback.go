package extraction

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/voxtask/voxtask/internal/models"
	"gopkg.in/yaml.v3"
)

// Vocabulary maps input keywords to tags for the heuristic fallback path.
type Vocabulary map[string]string

// DefaultVocabulary returns the built-in keyword-to-tag vocabulary.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		"fix":      "fix",
		"bug":      "fix",
		"broken":   "fix",
		"auth":     "authentication",
		"login":    "authentication",
		"password": "authentication",
		"api":      "api",
		"endpoint": "api",
		"deploy":   "deployment",
		"release":  "deployment",
		"test":     "testing",
		"doc":      "documentation",
		"design":   "design",
		"meeting":  "meeting",
		"email":    "communication",
	}
}

// LoadVocabulary reads a keyword-to-tag vocabulary from a YAML file and
// merges it over the defaults. File entries win on conflict.
func LoadVocabulary(path string) (Vocabulary, error) {
	vocab := DefaultVocabulary()
	if path == "" {
		return vocab, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary file: %w", err)
	}

	var overrides map[string]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary file: %w", err)
	}

	for keyword, tag := range overrides {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		tag = strings.TrimSpace(tag)
		if keyword != "" && tag != "" {
			vocab[keyword] = tag
		}
	}

	return vocab, nil
}

// MatchTags returns the tags whose keywords appear in the text, sorted and
// deduplicated. An empty result means no keyword matched.
func (v Vocabulary) MatchTags(text string) []string {
	lowered := strings.ToLower(text)

	seen := make(map[string]bool)
	for keyword, tag := range v {
		if strings.Contains(lowered, keyword) {
			seen[tag] = true
		}
	}

	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// HeuristicDraft builds the deterministic single-draft fallback used whenever
// the oracle is unavailable or returns unusable output. The description keeps
// the user's literal input so no intent is lost.
func HeuristicDraft(transcript string, vocab Vocabulary) models.TaskDraft {
	title := strings.TrimSpace(transcript)
	if len(title) > models.MaxTitleLength {
		// Back the cut up to a rune boundary so a multi-byte character is
		// never split.
		cut := models.MaxTitleLength - 3
		for cut > 0 && !utf8.RuneStart(title[cut]) {
			cut--
		}
		title = strings.TrimSpace(title[:cut]) + "..."
	}
	if title == "" {
		title = models.DefaultDraftTitle
	}

	tags := vocab.MatchTags(transcript)
	if len(tags) == 0 {
		tags = []string{models.DefaultTag}
	}

	priority := models.PriorityMedium
	lowered := strings.ToLower(transcript)
	if strings.Contains(lowered, "urgent") || strings.Contains(lowered, "asap") {
		priority = models.PriorityUrgent
	}

	return models.TaskDraft{
		Title:       title,
		Description: transcript,
		Priority:    priority,
		Tags:        tags,
		Status:      models.TaskStatusTodo,
	}
}
