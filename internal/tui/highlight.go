package tui

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true).TabWidth(lipgloss.NoTabConversion)
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	// A terminator followed by a non-space (3.14, e.g) does not end a sentence.
	sentenceRe = regexp.MustCompile(`(?:[^.!?\n]|[.!?][^\s.!?])+[.!?]*`)
)

// bestSentence returns the index of the sentence sharing the most words with
// query, or -1 when nothing overlaps.
func bestSentence(sentences []string, query string) int {
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return -1
	}
	bestIdx, bestScore := -1, 0
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	return bestIdx
}

// highlightReply emphasises the reply sentence closest to the question.
// Every byte outside the styled sentence is kept as is.
func highlightReply(reply, question string) string {
	if strings.TrimSpace(reply) == "" {
		return reply
	}
	spans := sentenceSpans(reply)
	sentences := make([]string, len(spans))
	for i, sp := range spans {
		sentences[i] = reply[sp[0]:sp[1]]
	}
	best := bestSentence(sentences, question)
	if best < 0 {
		return reply
	}
	start, end := spans[best][0], spans[best][1]
	return reply[:start] + highlightStyle.Render(reply[start:end]) + reply[end:]
}

// sentenceSpans returns byte ranges of the sentences in text, trimmed of
// surrounding whitespace. Blank ranges are dropped.
func sentenceSpans(text string) [][2]int {
	var spans [][2]int
	for _, loc := range sentenceRe.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		for start < end && isSpace(text[start]) {
			start++
		}
		for end > start && isSpace(text[end-1]) {
			end--
		}
		if start < end {
			spans = append(spans, [2]int{start, end})
		}
	}
	return spans
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
