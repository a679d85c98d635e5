package index

import (
	"sort"
	"strings"

	"github.com/engramhq/engram/internal/analyzer"
	"github.com/engramhq/engram/internal/scoring"
	"github.com/engramhq/engram/internal/synonyms"
)

// SearchOptions configures a single search call (§4.5). Zero values select
// the spec's documented defaults except where a pointer is used to
// distinguish "unset" from the zero value itself.
type SearchOptions struct {
	Tags              []string
	Type              string
	After             int64 // unix ms, 0 = no lower bound
	Before            int64 // unix ms, 0 = no upper bound
	MinImportance     *float64
	UseSynonyms       *bool // defaults to true
	IncludeSuperseded bool
	Limit             int // defaults to 10

	RecencyWeight     float64
	RecencyLambda     float64
	SynonymWeight     float64
	SupersededPenalty float64
	K1                float64
	B                 float64
}

// withDefaults fills in the documented defaults for any zero-valued
// numeric field, since Go's zero value for float64 collides with a
// legitimate weight of 0.
func (o SearchOptions) withDefaults() SearchOptions {
	if o.Limit == 0 {
		o.Limit = 10
	}
	if o.RecencyWeight == 0 {
		o.RecencyWeight = scoring.DefaultRecencyWeight
	}
	if o.RecencyLambda == 0 {
		o.RecencyLambda = scoring.DefaultRecencyLambda
	}
	if o.SynonymWeight == 0 {
		o.SynonymWeight = scoring.DefaultSynonymWeight
	}
	if o.SupersededPenalty == 0 {
		o.SupersededPenalty = scoring.DefaultSupersededPenalty
	}
	if o.K1 == 0 {
		o.K1 = scoring.DefaultK1
	}
	if o.B == 0 {
		o.B = scoring.DefaultB
	}
	return o
}

func (o SearchOptions) useSynonyms() bool {
	if o.UseSynonyms == nil {
		return true
	}
	return *o.UseSynonyms
}

// Hit is one ranked search result (§4.5's search(query, opts) output).
type Hit struct {
	ID      string
	Score   float64
	BM25    float64
	Recency float64
}

// Search tokenizes query, optionally expands it via syn, scores every
// indexed doc that passes the filters, and returns the top opts.Limit hits
// sorted by descending score (ties broken by ascending id).
func (idx *Index) Search(query string, nowUnixMs int64, syn *synonyms.Table, opts SearchOptions) []Hit {
	opts = opts.withDefaults()

	qtokens := analyzer.Tokenize(query)
	if len(qtokens) == 0 {
		return nil
	}

	var syntokens []string
	if opts.useSynonyms() && syn != nil {
		expanded := syn.Expand(query)
		seen := make(map[string]struct{}, len(qtokens))
		for _, t := range qtokens {
			seen[t] = struct{}{}
		}
		for _, t := range analyzer.Tokenize(strings.Join(expanded.Expanded, " ")) {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			syntokens = append(syntokens, t)
		}
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	avgdl := idx.avgDLLocked()
	hits := make([]Hit, 0, len(idx.docs))

	for _, doc := range idx.docs {
		if !idx.passesFilters(doc, opts) {
			continue
		}

		effImportance := scoring.EffectiveImportance(doc.Importance, doc.LastAccessedAt, nowUnixMs)
		if opts.MinImportance != nil && effImportance < *opts.MinImportance {
			continue
		}

		b := idx.sumBM25(doc, qtokens, avgdl, opts.K1, opts.B)
		bs := idx.sumBM25(doc, syntokens, avgdl, opts.K1, opts.B)
		totalBM25 := b + opts.SynonymWeight*bs
		if totalBM25 == 0 {
			continue
		}

		recency := scoring.Recency(doc.CreatedAt, nowUnixMs, opts.RecencyLambda)
		blended := (1-opts.RecencyWeight)*totalBM25 + opts.RecencyWeight*recency
		final := blended * (0.5 + effImportance)

		if !opts.IncludeSuperseded && len(doc.SupersededBy) > 0 {
			final *= opts.SupersededPenalty
		}

		hits = append(hits, Hit{ID: doc.ID, Score: final, BM25: totalBM25, Recency: recency})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	if len(hits) > opts.Limit {
		hits = hits[:opts.Limit]
	}
	return hits
}

func (idx *Index) sumBM25(doc *DocEntry, tokens []string, avgdl, k1, b float64) float64 {
	var total float64
	for _, term := range tokens {
		tf := doc.TF[term]
		if tf == 0 {
			continue
		}
		idfTerm := scoring.IDF(idx.df[term], idx.totalDocs)
		total += scoring.Score(tf, float64(doc.DL), avgdl, idfTerm, k1, b)
	}
	return total
}

func (idx *Index) passesFilters(doc *DocEntry, opts SearchOptions) bool {
	for _, tag := range opts.Tags {
		if !containsTag(doc.Tags, tag) {
			return false
		}
	}
	if opts.Type != "" && doc.Type != opts.Type {
		return false
	}
	if opts.After != 0 && doc.CreatedAt < opts.After {
		return false
	}
	if opts.Before != 0 && doc.CreatedAt > opts.Before {
		return false
	}
	return true
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
