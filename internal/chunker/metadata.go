package chunker

import (
	"sort"
	"strings"

	"github.com/xxxsen/kbase/internal/model"
)

const (
	wordsPerMinute  = 200
	maxTopics       = 10
	minTopicLength  = 4
	minSummaryChars = 20
	maxSummaryChars = 200
)

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "that": {}, "have": {}, "for": {}, "not": {},
	"with": {}, "you": {}, "this": {}, "but": {}, "his": {}, "from": {},
	"they": {}, "she": {}, "her": {}, "will": {}, "would": {}, "there": {},
	"their": {}, "what": {}, "about": {}, "which": {}, "when": {}, "make": {},
	"can": {}, "like": {}, "time": {}, "just": {}, "him": {}, "know": {},
	"into": {}, "your": {}, "some": {}, "could": {}, "them": {}, "than": {},
	"then": {}, "only": {}, "over": {}, "also": {}, "after": {}, "been": {},
	"more": {}, "these": {}, "those": {}, "such": {}, "where": {}, "while": {},
	"does": {}, "each": {}, "other": {}, "very": {}, "most": {}, "because": {},
	"through": {}, "between": {}, "should": {}, "during": {}, "before": {},
}

// ExtractMetadata derives advisory content metadata: word count, estimated
// reading time, a naive topic list, and a one-sentence summary. None of it
// affects chunk boundaries.
func ExtractMetadata(content string) model.ContentMetadata {
	words := strings.Fields(content)
	meta := model.ContentMetadata{
		WordCount: len(words),
	}
	if len(words) > 0 {
		meta.ReadingTime = (len(words) + wordsPerMinute - 1) / wordsPerMinute
	}
	meta.Topics = topTopics(words)
	meta.Summary = firstSummary(content)
	return meta
}

func topTopics(words []string) []string {
	freq := make(map[string]int)
	for _, word := range words {
		token := normalizeToken(word)
		if len(token) < minTopicLength {
			continue
		}
		if _, ok := stopwords[token]; ok {
			continue
		}
		freq[token]++
	}
	if len(freq) == 0 {
		return nil
	}
	tokens := make([]string, 0, len(freq))
	for token := range freq {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if freq[tokens[i]] != freq[tokens[j]] {
			return freq[tokens[i]] > freq[tokens[j]]
		}
		return tokens[i] < tokens[j]
	})
	if len(tokens) > maxTopics {
		tokens = tokens[:maxTopics]
	}
	return tokens
}

func normalizeToken(word string) string {
	return strings.TrimFunc(strings.ToLower(word), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
}

func firstSummary(content string) string {
	for _, sentence := range SplitSentences(content) {
		if len(sentence) <= minSummaryChars {
			continue
		}
		if len(sentence) > maxSummaryChars {
			return sentence[:maxSummaryChars] + "..."
		}
		return sentence
	}
	return ""
}
