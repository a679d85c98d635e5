package analyzer

// stopWords is the fixed English function-word list dropped during
// tokenization: determiners, auxiliaries, pronouns, common prepositions and
// conjunctions. Closed list, not configurable — the crude stemmer downstream
// assumes a stable vocabulary boundary.
var stopWords = buildStopWordSet([]string{
	"a", "an", "the",
	"and", "or", "but", "nor", "so", "yet", "for",
	"i", "me", "my", "mine", "myself",
	"you", "your", "yours", "yourself", "yourselves",
	"he", "him", "his", "himself",
	"she", "her", "hers", "herself",
	"it", "its", "itself",
	"we", "us", "our", "ours", "ourselves",
	"they", "them", "their", "theirs", "themselves",
	"this", "that", "these", "those",
	"who", "whom", "whose", "which", "what",
	"am", "is", "are", "was", "were", "be", "been", "being",
	"have", "has", "had", "having",
	"do", "does", "did", "doing",
	"will", "would", "shall", "should", "can", "could", "may", "might", "must",
	"in", "on", "at", "by", "to", "of", "with", "from", "into", "onto", "upon",
	"about", "above", "below", "under", "over", "between", "among", "through",
	"during", "before", "after", "since", "until", "against", "toward", "towards",
	"out", "off", "down", "up", "within", "without", "across", "along", "around",
	"if", "then", "else", "because", "although", "though", "while", "unless",
	"as", "than", "too", "very", "just", "not", "no", "nor",
	"all", "any", "both", "each", "few", "more", "most", "other", "some", "such",
	"only", "own", "same", "so", "here", "there", "when", "where", "why", "how",
	"again", "further", "once",
})

func buildStopWordSet(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// IsStopWord reports whether a lowercased word is in the fixed stopword set.
func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}
