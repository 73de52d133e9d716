package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/assessment-engine/recommender/internal/catalog"
	"github.com/assessment-engine/recommender/internal/config"
	"github.com/assessment-engine/recommender/internal/metrics"
	"github.com/assessment-engine/recommender/internal/provider"
	"github.com/assessment-engine/recommender/internal/search"
)

// ErrNotWatchable is returned by Watch when the catalog source has no local file.
var ErrNotWatchable = errors.New("catalog source cannot be watched")

// watchable is implemented by sources backed by a local file.
type watchable interface {
	WatchPath() string
}

// Engine owns the published index and rebuilds it from the catalog source.
// Queries read the current index without locking; a rebuild swaps it in whole.
type Engine struct {
	Config *config.Config
	Logger *logrus.Entry
	Source catalog.Source
	LLM    provider.LLMProvider

	index     atomic.Pointer[search.Index]
	rebuildMu sync.Mutex

	mu    sync.RWMutex
	stats EngineStats
}

type EngineStats struct {
	Skipped     int
	LastError   string
	LastAttempt time.Time
	Rebuilds    int64
}

// Status is a point-in-time view of the engine.
type Status struct {
	Ready          bool       `json:"ready"`
	Documents      int        `json:"documents"`
	VocabularySize int        `json:"vocabulary_size"`
	BuildID        string     `json:"build_id,omitempty"`
	BuiltAt        *time.Time `json:"built_at,omitempty"`
	SkippedRecords int        `json:"skipped_records"`
	Rebuilds       int64      `json:"rebuilds"`
	LastError      string     `json:"last_error,omitempty"`
	Source         string     `json:"source"`
}

func NewEngine(cfg *config.Config, logger *logrus.Entry, source catalog.Source) *Engine {
	if logger == nil {
		logger = logrus.WithField("component", "engine")
	}
	return &Engine{
		Config: cfg,
		Logger: logger,
		Source: source,
		LLM:    provider.New(cfg.LLM),
	}
}

func (e *Engine) searchOptions() search.Options {
	return search.Options{
		Stopwords:      e.Config.Index.Stopwords,
		MinTokenLength: e.Config.Index.MinTokenLength,
		FoldDiacritics: e.Config.Index.FoldDiacritics,
		Workers:        e.Config.Index.Workers,
	}
}

// Rebuild loads the catalog and publishes a fresh index. On failure the
// previously published index stays in place.
func (e *Engine) Rebuild(ctx context.Context) (*search.Index, error) {
	e.rebuildMu.Lock()
	defer e.rebuildMu.Unlock()

	start := time.Now()
	log := e.Logger.WithField("source", e.Source.String())

	cat, err := e.Source.Load(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %w", catalog.ErrIngestionFailure, err)
		e.recordFailure(start, err)
		log.WithError(err).Error("Failed to load catalog")
		return nil, err
	}

	idx, err := search.Build(cat.Documents(), e.searchOptions())
	if err != nil {
		e.recordFailure(start, err)
		log.WithError(err).Error("Failed to build index")
		return nil, err
	}

	e.index.Store(idx)
	duration := time.Since(start)
	metrics.RecordBuild(duration, nil, idx.Len(), idx.Vocabulary().Len(), len(cat.Skipped))

	e.mu.Lock()
	e.stats.Skipped = len(cat.Skipped)
	e.stats.LastError = ""
	e.stats.LastAttempt = start
	e.stats.Rebuilds++
	e.mu.Unlock()

	for _, rej := range cat.Skipped {
		log.WithField("reason", rej.Reason).Debug("Skipped catalog record")
	}
	for _, w := range cat.Warnings {
		log.WithFields(logrus.Fields{"record": w.Record, "reason": w.Reason}).Warn("Catalog record kept without link")
	}
	log.WithFields(logrus.Fields{
		"build_id":   idx.ID(),
		"documents":  idx.Len(),
		"vocabulary": idx.Vocabulary().Len(),
		"skipped":    len(cat.Skipped),
		"duration":   duration,
	}).Info("Index built")

	return idx, nil
}

func (e *Engine) recordFailure(start time.Time, err error) {
	metrics.RecordBuild(time.Since(start), err, 0, 0, 0)
	e.mu.Lock()
	e.stats.LastError = err.Error()
	e.stats.LastAttempt = start
	e.mu.Unlock()
}

// Index returns the published index, or nil before the first successful build.
func (e *Engine) Index() *search.Index {
	return e.index.Load()
}

func (e *Engine) Ready() bool {
	return e.index.Load() != nil
}

// Recommend ranks the catalog against query. A topN below one uses the
// configured default.
func (e *Engine) Recommend(query string, topN int) ([]search.RankedMatch, error) {
	if topN < 1 {
		topN = e.Config.Recommend.DefaultTopN
	}
	start := time.Now()

	matches, err := e.index.Load().Query(query, topN)
	outcome := metrics.OutcomeMatched
	switch {
	case err != nil:
		outcome = metrics.OutcomeError
	case len(matches) == 0:
		outcome = metrics.OutcomeNoMatch
	}
	metrics.RecordQuery(time.Since(start), outcome)

	return matches, err
}

// Explain asks the LLM provider why the top matches fit query.
func (e *Engine) Explain(ctx context.Context, query string, topN int) (string, []search.RankedMatch, error) {
	matches, err := e.Recommend(query, topN)
	if err != nil {
		return "", nil, err
	}
	answer, err := e.LLM.Generate(ctx, provider.BuildPrompt(query, matches))
	if err != nil {
		return "", matches, fmt.Errorf("llm generation failed: %w", err)
	}
	return answer, matches, nil
}

func (e *Engine) Status() Status {
	idx := e.index.Load()

	e.mu.RLock()
	stats := e.stats
	e.mu.RUnlock()

	st := Status{
		Ready:          idx != nil,
		Documents:      idx.Len(),
		BuildID:        idx.ID(),
		SkippedRecords: stats.Skipped,
		Rebuilds:       stats.Rebuilds,
		LastError:      stats.LastError,
		Source:         e.Source.String(),
	}
	if idx != nil {
		builtAt := idx.BuiltAt()
		st.BuiltAt = &builtAt
		st.VocabularySize = idx.Vocabulary().Len()
	}
	return st
}

// Watch rebuilds the index whenever the catalog file changes, until ctx is
// done. Bursts of events are collapsed into a single rebuild.
func (e *Engine) Watch(ctx context.Context) error {
	src, ok := e.Source.(watchable)
	if !ok {
		return ErrNotWatchable
	}
	target, err := filepath.Abs(src.WatchPath())
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	// Editors often replace files via rename, so watch the directory.
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	debounce := e.Config.Catalog.WatchDebounce
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	log := e.Logger.WithField("path", target)
	log.Info("Watching catalog for changes")

	go func() {
		defer watcher.Close()

		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !isCatalogChange(ev, target) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(debounce)
				} else {
					timer.Reset(debounce)
				}
				fire = timer.C
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("Catalog watcher error")
			case <-fire:
				fire = nil
				log.Info("Catalog changed, rebuilding index")
				// Rebuild logs its own failures and keeps the old index.
				_, _ = e.Rebuild(ctx)
			}
		}
	}()

	return nil
}

func isCatalogChange(ev fsnotify.Event, target string) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	name, err := filepath.Abs(ev.Name)
	if err != nil {
		return false
	}
	return name == target
}
