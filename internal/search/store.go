package search

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultTopN is the result count used when a caller does not ask for one.
const DefaultTopN = 10

// RankedMatch holds a matching document and its score
type RankedMatch struct {
	Document Document
	Score    float64
}

// Index is an immutable TF-IDF index over a fixed corpus. Vocabulary, IDF
// weights and document vectors are created together by Build and share one
// lifetime; a corpus refresh builds a new Index. All methods are safe for
// concurrent use, and a nil *Index reports ErrIndexNotReady.
type Index struct {
	id         string
	builtAt    time.Time
	vectorizer *TFIDFVectorizer
	documents  []Document
	rows       []Vector
}

// Build tokenizes the corpus, fits the vocabulary and weights, and encodes every
// document. Row numbers follow the order of docs.
func Build(docs []Document, opts Options) (*Index, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyCorpus
	}
	opts = opts.withDefaults()
	tokenizer := NewTokenizer(opts)

	tokenized := make([][]string, len(docs))
	forEachRow(len(docs), opts.Workers, func(row int) {
		tokenized[row] = tokenizer.Tokenize(docs[row].Text)
	})

	id := uuid.NewString()
	vectorizer := fitTFIDF(id, tokenizer, tokenized)
	if vectorizer.vocab.Len() == 0 {
		return nil, fmt.Errorf("%w: %w", ErrEmptyCorpus, ErrEmptyVocabulary)
	}

	idx := &Index{
		id:         id,
		builtAt:    time.Now().UTC(),
		vectorizer: vectorizer,
		documents:  make([]Document, len(docs)),
		rows:       make([]Vector, len(docs)),
	}
	forEachRow(len(docs), opts.Workers, func(row int) {
		doc := docs[row]
		doc.Row = row
		idx.documents[row] = doc
		idx.rows[row] = vectorizer.weigh(tokenized[row])
	})

	return idx, nil
}

// forEachRow runs fn for every row on at most workers goroutines. fn must only
// write to its own row.
func forEachRow(n, workers int, fn func(row int)) {
	if workers <= 1 || n < 2 {
		for row := 0; row < n; row++ {
			fn(row)
		}
		return
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for row := 0; row < n; row++ {
		row := row
		g.Go(func() error {
			fn(row)
			return nil
		})
	}
	_ = g.Wait()
}

// ID returns the unique identifier of this build.
func (idx *Index) ID() string {
	if idx == nil {
		return ""
	}
	return idx.id
}

func (idx *Index) BuiltAt() time.Time {
	if idx == nil {
		return time.Time{}
	}
	return idx.builtAt
}

// Len returns the corpus size.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.documents)
}

func (idx *Index) Vocabulary() *Vocabulary {
	if idx == nil {
		return nil
	}
	return idx.vectorizer.Vocabulary()
}

// IDF returns a copy of the IDF weights in vocabulary column order.
func (idx *Index) IDF() []float64 {
	if idx == nil {
		return nil
	}
	return idx.vectorizer.IDF()
}

// Document returns the metadata and vector stored at row.
func (idx *Index) Document(row int) (Document, Vector, bool) {
	if idx == nil || row < 0 || row >= len(idx.documents) {
		return Document{}, Vector{}, false
	}
	return idx.documents[row], idx.rows[row], true
}

// Documents returns a copy of the corpus metadata in row order.
func (idx *Index) Documents() []Document {
	if idx == nil {
		return nil
	}
	out := make([]Document, len(idx.documents))
	copy(out, idx.documents)
	return out
}

// Vectorize encodes query text with the tokenizer and vocabulary of this index.
func (idx *Index) Vectorize(text string) (Vector, error) {
	if idx == nil {
		return Vector{}, ErrIndexNotReady
	}
	return idx.vectorizer.Transform(text), nil
}

// Rank scores every document against q and returns the topN best matches,
// ordered by descending score and then ascending row. A zero query vector
// yields an empty result.
func (idx *Index) Rank(q Vector, topN int) ([]RankedMatch, error) {
	if idx == nil {
		return nil, ErrIndexNotReady
	}
	if topN < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopN, topN)
	}
	if q.buildID != idx.id || q.dim != idx.vectorizer.vocab.Len() {
		return nil, ErrVocabularyMismatch
	}
	if q.IsZero() {
		return []RankedMatch{}, nil
	}

	results := make([]RankedMatch, len(idx.rows))
	for row, vec := range idx.rows {
		results[row] = RankedMatch{
			Document: idx.documents[row],
			Score:    clampUnit(dot(q, vec)),
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			return results[i].Document.Row < results[j].Document.Row
		}
		return results[i].Score > results[j].Score
	})

	n := min(topN, len(results))
	out := make([]RankedMatch, n)
	copy(out, results[:n])
	return out, nil
}

// Query vectorizes text and ranks the corpus against it.
func (idx *Index) Query(text string, topN int) ([]RankedMatch, error) {
	q, err := idx.Vectorize(text)
	if err != nil {
		return nil, err
	}
	return idx.Rank(q, topN)
}
