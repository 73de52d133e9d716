package search

import (
	"runtime"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Document represents one catalog entry held by an index.
type Document struct {
	Row           int // assigned by Build, equals the position in the corpus
	Name          string
	URL           string
	TestType      string
	Duration      int // minutes, 0 when the catalog does not state one
	RemoteTesting bool
	AdaptiveIRT   bool

	// Text is the combined text used for indexing only.
	Text string
}

// Options controls tokenization and build parallelism.
type Options struct {
	Stopwords      bool
	MinTokenLength int
	FoldDiacritics bool
	Workers        int
}

// DefaultOptions mirrors the classic English TF-IDF setup: stopwords removed and
// single-character tokens dropped.
func DefaultOptions() Options {
	return Options{
		Stopwords:      true,
		MinTokenLength: 2,
		FoldDiacritics: true,
		Workers:        runtime.NumCPU(),
	}
}

func (o Options) withDefaults() Options {
	if o.MinTokenLength < 1 {
		o.MinTokenLength = 1
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	return o
}

// Tokenizer turns raw text into normalized terms. It holds no mutable state and
// is safe for concurrent use.
type Tokenizer struct {
	stopwords bool
	minLength int
	fold      bool
}

func NewTokenizer(opts Options) *Tokenizer {
	opts = opts.withDefaults()
	return &Tokenizer{
		stopwords: opts.Stopwords,
		minLength: opts.MinTokenLength,
		fold:      opts.FoldDiacritics,
	}
}

var defaultTokenizer = NewTokenizer(DefaultOptions())

// Tokenize splits text with the default options.
func Tokenize(text string) []string {
	return defaultTokenizer.Tokenize(text)
}

// Tokenize lowercases text and splits it on non-alphanumeric boundaries.
func (t *Tokenizer) Tokenize(text string) []string {
	if t.fold {
		text = foldDiacritics(text)
	}
	f := func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsNumber(c)
	}
	fields := strings.FieldsFunc(text, f)
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		token := strings.ToLower(field)
		if utf8.RuneCountInString(token) < t.minLength {
			continue
		}
		if t.stopwords && isStopword(token) {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

// foldDiacritics maps "Évaluation" to "Evaluation". The transformer chain is
// stateful, so a fresh one is built per call.
func foldDiacritics(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return folded
}
