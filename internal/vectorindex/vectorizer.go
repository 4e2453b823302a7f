package vectorindex

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// tokenPattern keeps runs of two or more word characters, dropping single
// letters, digits and punctuation.
var tokenPattern = regexp.MustCompile(`\w\w+`)

type VectorizerConfig struct {
	MinDF      int     `json:"min_df"`
	MaxDFRatio float64 `json:"max_df_ratio"`
	NgramMax   int     `json:"ngram_max"`
}

func (c VectorizerConfig) normalized() VectorizerConfig {
	if c.MinDF < 1 {
		c.MinDF = 1
	}
	if c.MaxDFRatio <= 0 || c.MaxDFRatio > 1 {
		c.MaxDFRatio = 1
	}
	if c.NgramMax < 1 {
		c.NgramMax = 1
	}
	return c
}

// Vectorizer turns text into L2-normalized term weight vectors. Fit freezes
// the vocabulary and per-term idf over one corpus; Transform projects any
// later text into that frozen space, silently dropping unknown terms.
type Vectorizer struct {
	cfg    VectorizerConfig
	terms  []string
	vocab  map[string]int
	idf    []float64
	fitted bool
}

// VectorizerState is the persisted form of a fitted Vectorizer. Terms are
// sorted lexicographically and the slice index is the vector dimension.
type VectorizerState struct {
	Config VectorizerConfig `json:"config"`
	Terms  []string         `json:"terms"`
	IDF    []float64        `json:"idf"`
	Fitted bool             `json:"fitted"`
}

func NewVectorizer(cfg VectorizerConfig) *Vectorizer {
	return &Vectorizer{
		cfg:   cfg.normalized(),
		vocab: make(map[string]int),
	}
}

// analyze lowercases, tokenizes, removes stop words and expands the result
// into 1..NgramMax-grams joined by single spaces.
func (v *Vectorizer) analyze(text string) []string {
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	kept := tokens[:0]
	for _, tok := range tokens {
		if _, stop := englishStopWords[tok]; stop {
			continue
		}
		kept = append(kept, tok)
	}
	if v.cfg.NgramMax <= 1 {
		return kept
	}
	grams := make([]string, 0, len(kept)*v.cfg.NgramMax)
	grams = append(grams, kept...)
	for n := 2; n <= v.cfg.NgramMax; n++ {
		for i := 0; i+n <= len(kept); i++ {
			grams = append(grams, strings.Join(kept[i:i+n], " "))
		}
	}
	return grams
}

// Fit builds the vocabulary from the corpus, keeping terms whose document
// frequency is at least MinDF and at most MaxDFRatio of the corpus size. A
// corpus whose every term falls outside those bounds yields an empty
// vocabulary; the vectorizer still counts as fitted and produces zero-width
// vectors.
func (v *Vectorizer) Fit(docs []string) {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, term := range v.analyze(doc) {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}

	maxDF := v.cfg.MaxDFRatio * float64(len(docs))
	terms := make([]string, 0, len(df))
	for term, count := range df {
		if count < v.cfg.MinDF || float64(count) > maxDF {
			continue
		}
		terms = append(terms, term)
	}
	sort.Strings(terms)

	n := float64(len(docs))
	v.terms = terms
	v.vocab = make(map[string]int, len(terms))
	v.idf = make([]float64, len(terms))
	for i, term := range terms {
		v.vocab[term] = i
		v.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	v.fitted = true
}

// Transform computes the L2-normalized tf-idf vector of text against the
// fitted vocabulary. Terms outside the vocabulary contribute nothing.
func (v *Vectorizer) Transform(text string) []float64 {
	vec := make([]float64, len(v.terms))
	if len(v.terms) == 0 {
		return vec
	}
	counts := make(map[int]int)
	for _, term := range v.analyze(text) {
		if idx, ok := v.vocab[term]; ok {
			counts[idx]++
		}
	}
	for idx, count := range counts {
		vec[idx] = float64(count) * v.idf[idx]
	}
	norm := 0.0
	for _, x := range vec {
		norm += x * x
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

func (v *Vectorizer) Fitted() bool {
	return v.fitted
}

func (v *Vectorizer) Dimension() int {
	return len(v.terms)
}

func (v *Vectorizer) State() VectorizerState {
	return VectorizerState{
		Config: v.cfg,
		Terms:  v.terms,
		IDF:    v.idf,
		Fitted: v.fitted,
	}
}

// Restore rebuilds a Vectorizer from persisted state. The persisted knobs win
// over the runtime configuration so a config change cannot silently mismatch
// an already fitted vocabulary.
func (v *Vectorizer) Restore(state VectorizerState) {
	v.cfg = state.Config.normalized()
	v.terms = state.Terms
	v.idf = state.IDF
	v.fitted = state.Fitted
	v.vocab = make(map[string]int, len(state.Terms))
	for i, term := range state.Terms {
		v.vocab[term] = i
	}
}
