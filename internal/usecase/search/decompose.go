package search

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// fillers are dropped from needs; pronouns and need-verbs are kept.
var fillers = map[string]struct{}{
	"also": {}, "the": {}, "a": {}, "an": {}, "some": {}, "too": {},
	"please": {}, "just": {}, "really": {}, "very": {}, "etc": {},
}

var conjunctions = map[string]struct{}{"and": {}, "or": {}}

// leadPhrases open a sentence with what the person is asking for. Longer
// phrases come first so the longest prefix wins.
var leadPhrases = [][]string{
	{"i", "am", "looking", "for"},
	{"we", "are", "looking", "for"},
	{"i", "would", "like"},
	{"looking", "for"},
	{"i", "need"},
	{"we", "need"},
	{"i", "want"},
	{"we", "want"},
	{"i", "require"},
	{"need"},
	{"want"},
	{"require"},
}

var irregularPlurals = map[string]string{
	"children": "child",
	"people":   "person",
	"women":    "woman",
	"men":      "man",
	"feet":     "foot",
	"teeth":    "tooth",
	"mice":     "mouse",
}

// singularWords end in "s" but are not plurals.
var singularWords = map[string]struct{}{
	"always": {}, "perhaps": {}, "news": {}, "series": {}, "species": {},
	"various": {}, "previous": {}, "plus": {}, "bus": {}, "gas": {},
	"yes": {}, "its": {}, "his": {}, "hers": {}, "ours": {}, "yours": {},
	"theirs": {}, "this": {}, "thus": {}, "was": {}, "has": {}, "does": {},
	"is": {}, "us": {}, "as": {}, "less": {}, "unless": {}, "across": {},
	"status": {}, "bonus": {}, "census": {},
}

func isSentenceBreak(r rune) bool {
	switch r {
	case '.', '!', '?', ';', '\n', '\r':
		return true
	}
	return false
}

// normalize applies NFKC, case folding and strips punctuation to spaces.
// Apostrophes are removed so contractions stay one token.
func normalize(s string) string {
	s = cases.Fold().String(norm.NFKC.String(s))
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\'' || r == '’':
			return -1
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return r
		default:
			return ' '
		}
	}, s)
}

// lemma reduces a token to a light singular form. It is idempotent.
func lemma(tok string) string {
	if s, ok := irregularPlurals[tok]; ok {
		return s
	}
	if _, ok := singularWords[tok]; ok || len(tok) <= 3 {
		return tok
	}
	switch {
	case strings.HasSuffix(tok, "ies"):
		return tok[:len(tok)-3] + "y"
	case strings.HasSuffix(tok, "sses"),
		strings.HasSuffix(tok, "shes"),
		strings.HasSuffix(tok, "ches"),
		strings.HasSuffix(tok, "xes"):
		return tok[:len(tok)-2]
	case strings.HasSuffix(tok, "ss"), strings.HasSuffix(tok, "us"), strings.HasSuffix(tok, "is"):
		return tok
	case strings.HasSuffix(tok, "s"):
		return tok[:len(tok)-1]
	}
	return tok
}

// Tokenize is the token stream shared by decomposition and lexical scoring:
// normalized, filler-free and lemmatized.
func Tokenize(text string) []string {
	fields := strings.Fields(normalize(text))
	out := fields[:0]
	for _, f := range fields {
		if _, ok := fillers[f]; ok {
			continue
		}
		out = append(out, lemma(f))
	}
	return out
}

// Decompose splits a query into atomic, normalized needs. Sentences are split
// on coordinating conjunctions that are not the sentence's first token. When
// a sentence opens with a lead phrase ("i need ..."), later segments that
// lack one inherit it. Duplicates are dropped, first occurrence wins. An
// empty query yields no needs.
func Decompose(query string) []string {
	var needs []string
	seen := make(map[string]struct{})

	for _, sentence := range strings.FieldsFunc(query, isSentenceBreak) {
		tokens := strings.Fields(normalize(sentence))
		if len(tokens) == 0 {
			continue
		}

		var lead []string
		for i, seg := range splitOnConjunctions(tokens) {
			seg = cleanSegment(seg)
			if len(seg) == 0 {
				continue
			}
			if i == 0 {
				lead = leadPhrase(seg)
			} else if lead != nil && leadPhrase(seg) == nil {
				seg = append(slices.Clone(lead), seg...)
			}

			need := strings.Join(seg, " ")
			if _, dup := seen[need]; dup {
				continue
			}
			seen[need] = struct{}{}
			needs = append(needs, need)
		}
	}
	return needs
}

func splitOnConjunctions(tokens []string) [][]string {
	var segs [][]string
	start := 0
	for i := 1; i < len(tokens); i++ {
		if _, ok := conjunctions[tokens[i]]; ok {
			segs = append(segs, tokens[start:i])
			start = i + 1
		}
	}
	return append(segs, tokens[start:])
}

func cleanSegment(seg []string) []string {
	out := make([]string, 0, len(seg))
	for _, tok := range seg {
		if _, ok := fillers[tok]; ok {
			continue
		}
		out = append(out, lemma(tok))
	}
	return out
}

func leadPhrase(seg []string) []string {
	for _, p := range leadPhrases {
		if len(seg) > len(p) && slices.Equal(seg[:len(p)], p) {
			return p
		}
	}
	return nil
}
