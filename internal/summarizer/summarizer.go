package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// DefaultMaxSentences bounds the summary length when none is configured.
const DefaultMaxSentences = 3

// Summarizer produces a short overview of processed document text.
type Summarizer interface {
	Summarize(text string) string
}

var (
	sentencePattern = regexp.MustCompile(`[^.!?]+(?:[.!?]+|$)`)
	tokenPattern    = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
)

// Frequency is an extractive summarizer: sentences are scored by the normalised
// frequency of their non-stopword tokens and the best ones are kept in text order.
type Frequency struct {
	maxSentences int
	stopwords    map[string]struct{}
}

// NewFrequency creates a frequency-based summarizer keeping at most maxSentences.
func NewFrequency(maxSentences int) *Frequency {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	return &Frequency{maxSentences: maxSentences, stopwords: defaultStopwords()}
}

// Summarize returns up to maxSentences of the highest-scoring sentences.
func (s *Frequency) Summarize(text string) string {
	var sentences []string
	for _, raw := range sentencePattern.FindAllString(text, -1) {
		if sent := strings.Join(strings.Fields(raw), " "); sent != "" {
			sentences = append(sentences, sent)
		}
	}
	if len(sentences) <= s.maxSentences {
		return strings.Join(sentences, " ")
	}

	tokens := make([][]string, len(sentences))
	freq := map[string]float64{}
	maxF := 0.0
	for i, sent := range sentences {
		tokens[i] = s.tokens(sent)
		for _, tok := range tokens[i] {
			freq[tok]++
			maxF = math.Max(maxF, freq[tok])
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(sentences))
	for i := range sentences {
		total := 0.0
		for _, tok := range tokens[i] {
			total += freq[tok] / maxF
		}
		if n := len(tokens[i]); n > 0 {
			total /= math.Sqrt(float64(n))
		}
		scores[i] = scored{i, total}
	}
	sort.SliceStable(scores, func(a, b int) bool { return scores[a].score > scores[b].score })

	selected := make([]int, s.maxSentences)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, len(selected))
	for i, idx := range selected {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " ")
}

func (s *Frequency) tokens(text string) []string {
	var out []string
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if _, stop := s.stopwords[tok]; !stop {
			out = append(out, tok)
		}
	}
	return out
}

// None disables summaries.
type None struct{}

// Summarize always returns "".
func (None) Summarize(string) string { return "" }

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "its", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "should", "now", "not", "no", "we", "you", "they", "he", "she", "i",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
