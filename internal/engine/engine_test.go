package engine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/assessment-engine/recommender/internal/catalog"
	"github.com/assessment-engine/recommender/internal/config"
	"github.com/assessment-engine/recommender/internal/engine"
	"github.com/assessment-engine/recommender/internal/search"
)

type MockSource struct {
	mock.Mock
}

func (m *MockSource) Load(ctx context.Context) (*catalog.Catalog, error) {
	args := m.Called(ctx)
	if cat := args.Get(0); cat != nil {
		return cat.(*catalog.Catalog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSource) String() string {
	return "mock"
}

type MockLLM struct {
	mock.Mock
}

func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockLLM) Name() string {
	return "mock"
}

func testConfig() *config.Config {
	return &config.Config{
		Catalog:   config.CatalogConfig{WatchDebounce: 20 * time.Millisecond},
		Index:     config.IndexConfig{Stopwords: true, MinTokenLength: 2, FoldDiacritics: true, Workers: 2},
		Recommend: config.RecommendConfig{DefaultTopN: 10, MaxTopN: 50},
	}
}

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logrus.NewEntry(logger)
}

func sampleCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		Assessments: []catalog.Assessment{
			{Name: "Verify Numerical", Description: "numerical reasoning for analysts", TestType: "Ability", Duration: 18},
			{Name: "OPQ32r", Description: "personality questionnaire for leadership", TestType: "Personality"},
			{Name: "Java 8", Description: "java programming knowledge", TestType: "Knowledge", Duration: 30},
		},
		Skipped: []catalog.Rejected{{Reason: "name is required"}},
	}
}

func TestEngine_NotReadyBeforeBuild(t *testing.T) {
	src := new(MockSource)
	eng := engine.NewEngine(testConfig(), testLogger(), src)

	assert.False(t, eng.Ready())
	assert.Nil(t, eng.Index())

	_, err := eng.Recommend("java", 5)
	assert.ErrorIs(t, err, search.ErrIndexNotReady)

	st := eng.Status()
	assert.False(t, st.Ready)
	assert.Zero(t, st.Documents)
	assert.Nil(t, st.BuiltAt)
	assert.Equal(t, "mock", st.Source)
}

func TestEngine_RebuildAndRecommend(t *testing.T) {
	src := new(MockSource)
	src.On("Load", mock.Anything).Return(sampleCatalog(), nil)

	eng := engine.NewEngine(testConfig(), testLogger(), src)
	idx, err := eng.Rebuild(context.Background())
	require.NoError(t, err)
	require.NotNil(t, idx)
	assert.True(t, eng.Ready())
	assert.Same(t, idx, eng.Index())

	matches, err := eng.Recommend("java programming", 0)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "Java 8", matches[0].Document.Name)

	st := eng.Status()
	assert.True(t, st.Ready)
	assert.Equal(t, 3, st.Documents)
	assert.Equal(t, idx.ID(), st.BuildID)
	require.NotNil(t, st.BuiltAt)
	assert.Equal(t, idx.BuiltAt(), *st.BuiltAt)
	assert.Equal(t, 1, st.SkippedRecords)
	assert.Equal(t, int64(1), st.Rebuilds)
	assert.Positive(t, st.VocabularySize)
	assert.Empty(t, st.LastError)
}

func TestEngine_FailedRebuildKeepsIndex(t *testing.T) {
	src := new(MockSource)
	src.On("Load", mock.Anything).Return(sampleCatalog(), nil).Once()
	src.On("Load", mock.Anything).Return(nil, errors.New("disk gone")).Once()
	src.On("Load", mock.Anything).Return(&catalog.Catalog{}, nil).Once()

	eng := engine.NewEngine(testConfig(), testLogger(), src)
	first, err := eng.Rebuild(context.Background())
	require.NoError(t, err)

	_, err = eng.Rebuild(context.Background())
	assert.ErrorIs(t, err, catalog.ErrIngestionFailure)
	assert.Same(t, first, eng.Index())
	assert.Contains(t, eng.Status().LastError, "disk gone")

	_, err = eng.Rebuild(context.Background())
	assert.ErrorIs(t, err, search.ErrEmptyCorpus)
	assert.Same(t, first, eng.Index())

	src.AssertExpectations(t)
}

func TestEngine_EmptyVocabularyKeepsIndex(t *testing.T) {
	stopwordsOnly := &catalog.Catalog{
		Assessments: []catalog.Assessment{
			{Name: "The", Description: "and of"},
			{Name: "A", Description: "it is"},
		},
	}
	src := new(MockSource)
	src.On("Load", mock.Anything).Return(sampleCatalog(), nil).Once()
	src.On("Load", mock.Anything).Return(stopwordsOnly, nil).Once()

	eng := engine.NewEngine(testConfig(), testLogger(), src)
	first, err := eng.Rebuild(context.Background())
	require.NoError(t, err)

	idx, err := eng.Rebuild(context.Background())
	assert.ErrorIs(t, err, search.ErrEmptyVocabulary)
	assert.Nil(t, idx)
	assert.Same(t, first, eng.Index())

	st := eng.Status()
	assert.True(t, st.Ready)
	assert.Equal(t, 3, st.Documents)
	assert.Contains(t, st.LastError, "empty vocabulary")

	matches, err := eng.Recommend("java", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Java 8", matches[0].Document.Name)

	src.AssertExpectations(t)
}

func TestEngine_RebuildSwapsIndex(t *testing.T) {
	src := new(MockSource)
	src.On("Load", mock.Anything).Return(sampleCatalog(), nil)

	eng := engine.NewEngine(testConfig(), testLogger(), src)
	first, err := eng.Rebuild(context.Background())
	require.NoError(t, err)
	second, err := eng.Rebuild(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.ID(), second.ID())
	assert.Same(t, second, eng.Index())

	// vectors from the old build are rejected by the new one
	q, err := first.Vectorize("java")
	require.NoError(t, err)
	_, err = second.Rank(q, 3)
	assert.ErrorIs(t, err, search.ErrVocabularyMismatch)
}

func TestEngine_Explain(t *testing.T) {
	src := new(MockSource)
	src.On("Load", mock.Anything).Return(sampleCatalog(), nil)
	llm := new(MockLLM)
	llm.On("Generate", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return assert.Contains(t, prompt, "1. Java 8 [Knowledge]")
	})).Return("Java 8 covers the role.", nil)

	eng := engine.NewEngine(testConfig(), testLogger(), src)
	eng.LLM = llm
	_, err := eng.Rebuild(context.Background())
	require.NoError(t, err)

	answer, matches, err := eng.Explain(context.Background(), "java developer", 2)
	require.NoError(t, err)
	assert.Equal(t, "Java 8 covers the role.", answer)
	assert.Len(t, matches, 2)
	llm.AssertExpectations(t)
}

func TestEngine_ExplainProviderError(t *testing.T) {
	src := new(MockSource)
	src.On("Load", mock.Anything).Return(sampleCatalog(), nil)
	llm := new(MockLLM)
	llm.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("connection refused"))

	eng := engine.NewEngine(testConfig(), testLogger(), src)
	eng.LLM = llm
	_, err := eng.Rebuild(context.Background())
	require.NoError(t, err)

	_, _, err = eng.Explain(context.Background(), "java", 2)
	assert.ErrorContains(t, err, "connection refused")
}

func TestEngine_WatchRequiresFileSource(t *testing.T) {
	eng := engine.NewEngine(testConfig(), testLogger(), new(MockSource))
	assert.ErrorIs(t, eng.Watch(context.Background()), engine.ErrNotWatchable)
}

func TestEngine_WatchRebuildsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,description\nJava 8,java programming\n"), 0644))

	eng := engine.NewEngine(testConfig(), testLogger(), catalog.NewFileSource(path))
	first, err := eng.Rebuild(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, first.Len())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, eng.Watch(ctx))

	// unrelated files in the same directory are ignored
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "notes.txt"), []byte("x"), 0644))

	require.NoError(t, os.WriteFile(path, []byte("name,description\nJava 8,java programming\nOPQ32r,personality\n"), 0644))

	require.Eventually(t, func() bool {
		return eng.Index().Len() == 2
	}, 5*time.Second, 20*time.Millisecond)
	assert.NotEqual(t, first.ID(), eng.Index().ID())
}
