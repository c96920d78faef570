// Package tfidf is an offline embedder: vectors are TF-IDF weights over a
// vocabulary fitted to the chunks of the current run.
package tfidf

import (
	"context"
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// vocabulary maps each kept term to a column and its inverse document frequency.
type vocabulary struct {
	terms  []string
	column map[string]int
	idf    []float64
}

// fitVocabulary counts in how many chunks each term appears and derives a
// smoothed idf, ln((1+n)/(1+df)) + 1, so terms seen everywhere still weigh 1.
func fitVocabulary(docs [][]string) *vocabulary {
	df := make(map[string]int)
	for _, tokens := range docs {
		for term := range distinct(tokens) {
			df[term]++
		}
	}
	v := &vocabulary{
		terms:  make([]string, 0, len(df)),
		column: make(map[string]int, len(df)),
	}
	for term := range df {
		v.terms = append(v.terms, term)
	}
	sort.Strings(v.terms)
	n := float64(len(docs))
	v.idf = make([]float64, len(v.terms))
	for i, term := range v.terms {
		v.column[term] = i
		v.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return v
}

func distinct(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// Embedder must be prepared with the corpus before it can embed.
type Embedder struct {
	vocab *vocabulary
}

func NewEmbedder() *Embedder { return &Embedder{} }

func (e *Embedder) Name() string { return "tfidf" }

// Prepare fits the vocabulary to corpus.
func (e *Embedder) Prepare(corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("tfidf: empty corpus")
	}
	docs := make([][]string, len(corpus))
	for i, text := range corpus {
		docs[i] = tokenize(text)
	}
	vocab := fitVocabulary(docs)
	if len(vocab.terms) == 0 {
		return errors.New("tfidf: corpus has no indexable terms")
	}
	e.vocab = vocab
	return nil
}

// Model names the fitted vocabulary by its size, so a store built from a
// different corpus is detected as a different model.
func (e *Embedder) Model() string { return "tfidf-" + strconv.Itoa(e.Dimension()) }

// Dimension is the vocabulary size, 0 before Prepare.
func (e *Embedder) Dimension() int {
	if e.vocab == nil {
		return 0
	}
	return len(e.vocab.terms)
}

func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := e.Embed(t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Embed weights each known term by (1 + ln tf) * idf and L2-normalizes the
// result. Text without known terms yields the zero vector.
func (e *Embedder) Embed(text string) ([]float32, error) {
	if e.vocab == nil {
		return nil, errors.New("tfidf: Prepare must be called before Embed")
	}
	counts := make(map[int]int)
	for _, tok := range tokenize(text) {
		if col, ok := e.vocab.column[tok]; ok {
			counts[col]++
		}
	}
	vec := make([]float32, len(e.vocab.terms))
	if len(counts) == 0 {
		return vec, nil
	}
	weights := make(map[int]float64, len(counts))
	var sumSq float64
	for col, c := range counts {
		w := (1 + math.Log(float64(c))) * e.vocab.idf[col]
		weights[col] = w
		sumSq += w * w
	}
	norm := math.Sqrt(sumSq)
	for col, w := range weights {
		vec[col] = float32(w / norm)
	}
	return vec, nil
}

// tokenize lowercases text and splits it on anything that is not a letter or
// digit. Apostrophes are dropped so "patient's" and "patients" stay close.
// Stopwords and single characters are skipped.
func tokenize(text string) []string {
	text = strings.NewReplacer("'", "", "’", "").Replace(strings.ToLower(text))
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < 2 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

var stopwords = func() map[string]struct{} {
	const list = `about above after again all also an and any are as at be been before being
below between both but by can could did do does doing down during each few for from further
had has have having he her here hers him his how if in into is it its itself just me more most
my no nor not now of off on once only or other our ours out over own same she should so some
such than that the their them then there these they this those through to too under until up
very was we were what when where which while who whom why will with would you your`
	m := make(map[string]struct{})
	for _, w := range strings.Fields(list) {
		m[w] = struct{}{}
	}
	return m
}()
