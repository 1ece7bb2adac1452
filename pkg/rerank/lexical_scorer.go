package rerank

import (
	"context"
	"strings"
	"unicode"
)

// LexicalScorer is the offline fallback when no hosted reranker is
// reachable. It scores token overlap between query and document, with
// CJK text tokenized into character bigrams since it carries no word
// boundaries. Deterministic: equal inputs always score equally.
type LexicalScorer struct{}

func NewLexicalScorer() *LexicalScorer { return &LexicalScorer{} }

func (s *LexicalScorer) Name() string { return "lexical" }

func (s *LexicalScorer) Score(_ context.Context, query string, documents []string) ([]float64, error) {
	queryTokens := tokenize(query)

	scores := make([]float64, len(documents))
	if len(queryTokens) == 0 {
		return scores, nil
	}

	for i, doc := range documents {
		docTokens := tokenize(doc)
		if len(docTokens) == 0 {
			continue
		}
		matched := 0
		for token := range queryTokens {
			if docTokens[token] {
				matched++
			}
		}
		scores[i] = float64(matched) / float64(len(queryTokens))
	}
	return scores, nil
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"of": true, "in": true, "on": true, "to": true, "and": true,
	"what": true, "how": true, "for": true, "with": true,
}

func tokenize(text string) map[string]bool {
	tokens := make(map[string]bool)

	var cjk []rune
	flushCJK := func() {
		// Single characters are too noisy; bigrams keep enough
		// context to discriminate.
		for i := 0; i+1 < len(cjk); i++ {
			tokens[string(cjk[i:i+2])] = true
		}
		if len(cjk) == 1 {
			tokens[string(cjk)] = true
		}
		cjk = cjk[:0]
	}

	for _, field := range strings.Fields(strings.ToLower(text)) {
		word := strings.TrimFunc(field, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if word == "" {
			continue
		}

		hasCJK := false
		for _, r := range word {
			if unicode.Is(unicode.Han, r) {
				hasCJK = true
				break
			}
		}

		if !hasCJK {
			if len(word) > 2 && !stopWords[word] {
				tokens[word] = true
			}
			continue
		}

		for _, r := range word {
			if unicode.Is(unicode.Han, r) {
				cjk = append(cjk, r)
				continue
			}
			flushCJK()
		}
		flushCJK()
	}
	return tokens
}
