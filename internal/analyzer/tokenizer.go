package analyzer

import "strings"

// Tokenize lowercases text, strips non-token characters, drops stopwords and
// length-1 tokens, and applies the crude suffix stemmer. The result is
// disjoint from the stopword set and contains no length-1 tokens.
func Tokenize(text string) []string {
	lowered := strings.ToLower(text)

	var sb strings.Builder
	sb.Grow(len(lowered))
	for _, r := range lowered {
		if isTokenRune(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteByte(' ')
		}
	}

	fields := strings.Fields(sb.String())
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) <= 1 {
			continue
		}
		if IsStopWord(f) {
			continue
		}
		stemmed := stem(f)
		if len(stemmed) <= 1 {
			continue
		}
		tokens = append(tokens, stemmed)
	}
	return tokens
}

// isTokenRune reports whether r belongs to [a-z0-9_\-].
func isTokenRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-'
}

// stem applies the order-sensitive suffix stripper. The first matching
// suffix wins; if stripping it would leave a token shorter than its minimum,
// the token is returned unstemmed rather than falling through to the next rule.
func stem(word string) string {
	switch {
	case strings.HasSuffix(word, "ies"):
		if len(word)-2 > 4 {
			return word[:len(word)-3] + "y"
		}
		return word

	case strings.HasSuffix(word, "ing"):
		if len(word)-3 > 5 {
			return word[:len(word)-3]
		}
		return word

	case strings.HasSuffix(word, "tion"):
		if len(word)-4 > 5 {
			return word[:len(word)-4]
		}
		return word

	case strings.HasSuffix(word, "ment"), strings.HasSuffix(word, "ness"),
		strings.HasSuffix(word, "less"), strings.HasSuffix(word, "able"),
		strings.HasSuffix(word, "ible"):
		if len(word)-4 > 5 {
			return word[:len(word)-4]
		}
		return word

	case strings.HasSuffix(word, "ful"):
		if len(word)-3 > 4 {
			return word[:len(word)-3]
		}
		return word

	case strings.HasSuffix(word, "ed"):
		if len(word)-2 > 4 {
			return word[:len(word)-2]
		}
		return word

	case strings.HasSuffix(word, "ly"), strings.HasSuffix(word, "er"):
		if len(word)-2 > 4 {
			return word[:len(word)-2]
		}
		return word

	case strings.HasSuffix(word, "est"):
		if len(word)-3 > 4 {
			return word[:len(word)-3]
		}
		return word

	case strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss"):
		if len(word)-1 > 3 {
			return word[:len(word)-1]
		}
		return word
	}

	return word
}
