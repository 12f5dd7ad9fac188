package stt

import (
	"encoding/json"
	"fmt"
	"strings"
)

// GrammarJSON renders a recognizer grammar: the given words plus the unknown
// token, so out-of-vocabulary speech does not get forced onto a command word
func GrammarJSON(words []string) (string, error) {
	seen := make(map[string]bool, len(words)+1)
	phrases := make([]string, 0, len(words)+1)
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		phrases = append(phrases, w)
	}
	if len(phrases) == 0 {
		return "", fmt.Errorf("grammar has no words")
	}
	if !seen[UnknownWord] {
		phrases = append(phrases, UnknownWord)
	}

	data, err := json.Marshal(phrases)
	if err != nil {
		return "", fmt.Errorf("failed to encode grammar: %w", err)
	}
	return string(data), nil
}

// StripUnknown removes [unk] tokens from a grammar-restricted transcript
func StripUnknown(text string) string {
	fields := strings.Fields(text)
	kept := fields[:0]
	for _, f := range fields {
		if f != UnknownWord {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}
