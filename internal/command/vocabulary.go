// Package command maps recognized speech to robot motion commands.
package command

import (
	"fmt"
	"sort"
	"strings"
)

// Category is a motion command recognized from an utterance
type Category int

const (
	Unknown Category = iota
	Forward
	Backward
	Left
	Right
	Stop
	SpeedUp
	SlowDown
)

var categoryNames = map[Category]string{
	Unknown:  "unknown",
	Forward:  "forward",
	Backward: "backward",
	Left:     "left",
	Right:    "right",
	Stop:     "stop",
	SpeedUp:  "speed_up",
	SlowDown: "slow_down",
}

// String returns the snake_case name of the category
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// IsMotion reports whether c is one of the recognized motion commands
func (c Category) IsMotion() bool {
	return c >= Forward && c <= SlowDown
}

// ParseCategory parses a snake_case category name
func ParseCategory(name string) (Category, error) {
	for c, n := range categoryNames {
		if n == name {
			return c, nil
		}
	}
	return Unknown, fmt.Errorf("unknown command category: %q", name)
}

// Priority is the order in which categories are tested against an utterance.
// An utterance carrying keywords of two categories resolves to the earlier one.
var Priority = []Category{SpeedUp, SlowDown, Forward, Backward, Right, Left, Stop}

// defaultKeywords is the built-in trigger table. Several entries are
// common misrecognitions ("lift", "stuff", "fist") or number words.
var defaultKeywords = map[Category][]string{
	SpeedUp:  {"speed", "fast", "faster", "quick", "fist"},
	SlowDown: {"slow", "slower", "y"},
	Forward:  {"start", "move", "come", "forward", "one"},
	Backward: {"back", "backward", "four"},
	Right:    {"right", "two"},
	Left:     {"left", "lift", "three"},
	Stop:     {"stop", "stopped", "hold", "stuff", "five"},
}

type entry struct {
	category Category
	keywords map[string]struct{}
}

// Vocabulary is an immutable, priority-ordered keyword table
type Vocabulary struct {
	entries []entry
}

// DefaultVocabulary returns the built-in vocabulary
func DefaultVocabulary() *Vocabulary {
	v, _ := NewVocabulary(nil)
	return v
}

// NewVocabulary builds the vocabulary from the built-in table plus extra
// keywords per category. Keywords are whole tokens; anything containing
// whitespace could never match and is rejected.
func NewVocabulary(extra map[Category][]string) (*Vocabulary, error) {
	for c, words := range extra {
		if c == Unknown {
			return nil, fmt.Errorf("keywords cannot be assigned to %s", Unknown)
		}
		if _, ok := categoryNames[c]; !ok {
			return nil, fmt.Errorf("invalid command category: %d", int(c))
		}
		for _, w := range words {
			if w == "" || len(strings.Fields(w)) != 1 || strings.TrimSpace(w) != w {
				return nil, fmt.Errorf("invalid keyword %q for %s: must be a single token", w, c)
			}
		}
	}

	v := &Vocabulary{entries: make([]entry, 0, len(Priority))}
	for _, c := range Priority {
		set := make(map[string]struct{})
		for _, w := range defaultKeywords[c] {
			set[w] = struct{}{}
		}
		for _, w := range extra[c] {
			set[w] = struct{}{}
		}
		v.entries = append(v.entries, entry{category: c, keywords: set})
	}
	return v, nil
}

// Classify returns the first category, in priority order, whose keyword set
// contains any whitespace-separated token of the utterance, or Unknown.
func (v *Vocabulary) Classify(utterance string) Category {
	tokens := strings.Fields(utterance)
	if len(tokens) == 0 {
		return Unknown
	}

	for _, e := range v.entries {
		for _, tok := range tokens {
			if _, ok := e.keywords[tok]; ok {
				return e.category
			}
		}
	}
	return Unknown
}

// KeywordsFor returns the sorted keywords that trigger a category
func (v *Vocabulary) KeywordsFor(c Category) []string {
	for _, e := range v.entries {
		if e.category == c {
			return sortedKeys(e.keywords)
		}
	}
	return nil
}

// Keywords returns every keyword of the vocabulary, sorted and de-duplicated
func (v *Vocabulary) Keywords() []string {
	all := make(map[string]struct{})
	for _, e := range v.entries {
		for w := range e.keywords {
			all[w] = struct{}{}
		}
	}
	return sortedKeys(all)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for w := range set {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}
