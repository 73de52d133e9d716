package search

import (
	"math"
	"sort"
)

// Vocabulary maps terms to column indices. It is fixed when the index is built.
type Vocabulary struct {
	terms []string
	index map[string]int
}

func newVocabulary(terms []string) *Vocabulary {
	sort.Strings(terms)
	index := make(map[string]int, len(terms))
	for i, term := range terms {
		index[term] = i
	}
	return &Vocabulary{terms: terms, index: index}
}

// Len returns the number of distinct terms.
func (v *Vocabulary) Len() int {
	return len(v.terms)
}

// Lookup returns the column of term.
func (v *Vocabulary) Lookup(term string) (int, bool) {
	col, ok := v.index[term]
	return col, ok
}

// Term returns the term stored at col.
func (v *Vocabulary) Term(col int) string {
	return v.terms[col]
}

// Terms returns a copy of the terms in column order.
func (v *Vocabulary) Terms() []string {
	out := make([]string, len(v.terms))
	copy(out, v.terms)
	return out
}

// TFIDFVectorizer implements Term Frequency - Inverse Document Frequency over a
// fitted vocabulary. Instances are produced by Build and never modified.
type TFIDFVectorizer struct {
	buildID   string
	tokenizer *Tokenizer
	vocab     *Vocabulary
	idf       []float64
}

// fitTFIDF derives the vocabulary and smoothed IDF weights from a tokenized
// corpus. Columns are assigned after sorting, so the result does not depend on
// the order in which documents were tokenized.
func fitTFIDF(buildID string, tokenizer *Tokenizer, corpus [][]string) *TFIDFVectorizer {
	docCounts := make(map[string]int)
	for _, tokens := range corpus {
		seen := make(map[string]struct{}, len(tokens))
		for _, token := range tokens {
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			docCounts[token]++
		}
	}

	terms := make([]string, 0, len(docCounts))
	for term := range docCounts {
		terms = append(terms, term)
	}
	vocab := newVocabulary(terms)

	// idf = ln((1 + N) / (1 + df)) + 1
	n := float64(len(corpus))
	idf := make([]float64, vocab.Len())
	for col, term := range vocab.terms {
		idf[col] = math.Log((1+n)/(1+float64(docCounts[term]))) + 1
	}

	return &TFIDFVectorizer{
		buildID:   buildID,
		tokenizer: tokenizer,
		vocab:     vocab,
		idf:       idf,
	}
}

// Vocabulary returns the fitted vocabulary.
func (v *TFIDFVectorizer) Vocabulary() *Vocabulary {
	return v.vocab
}

// IDF returns a copy of the weights in column order.
func (v *TFIDFVectorizer) IDF() []float64 {
	out := make([]float64, len(v.idf))
	copy(out, v.idf)
	return out
}

// Transform converts text to a normalized vector. Terms outside the vocabulary
// are dropped.
func (v *TFIDFVectorizer) Transform(text string) Vector {
	return v.weigh(v.tokenizer.Tokenize(text))
}

func (v *TFIDFVectorizer) weigh(tokens []string) Vector {
	tf := make(map[int]float64)
	for _, token := range tokens {
		if col, ok := v.vocab.Lookup(token); ok {
			tf[col]++
		}
	}

	cols := make([]int, 0, len(tf))
	for col := range tf {
		cols = append(cols, col)
	}
	sort.Ints(cols)

	values := make([]float64, len(cols))
	for i, col := range cols {
		values[i] = tf[col] * v.idf[col]
	}

	return normalizeL2(Vector{
		buildID: v.buildID,
		dim:     v.vocab.Len(),
		indices: cols,
		values:  values,
	})
}
