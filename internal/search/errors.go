package search

import "errors"

var (
	// ErrEmptyCorpus is returned by Build when no documents are supplied.
	ErrEmptyCorpus = errors.New("empty corpus")

	// ErrEmptyVocabulary is returned by Build when no document yields a term,
	// e.g. every text is blank or made only of stopwords.
	ErrEmptyVocabulary = errors.New("empty vocabulary")

	// ErrIndexNotReady is returned when querying before a successful build.
	ErrIndexNotReady = errors.New("index not ready")

	// ErrInvalidTopN is returned when fewer than one result is requested.
	ErrInvalidTopN = errors.New("top n must be at least 1")

	// ErrVocabularyMismatch indicates a query vector from another build.
	ErrVocabularyMismatch = errors.New("query vector belongs to a different index")
)
