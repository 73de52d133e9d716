package catalog

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/assessment-engine/recommender/internal/fetcher"
	"github.com/assessment-engine/recommender/internal/storage"
)

// Source loads a catalog.
type Source interface {
	Load(ctx context.Context) (*Catalog, error)
	String() string
}

// FileSource reads a catalog from the local file system. The format follows
// the file extension.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Load(ctx context.Context) (*Catalog, error) {
	format, err := FormatFromPath(s.Path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()
	return Parse(f, format)
}

// WatchPath is the file to watch for catalog refreshes.
func (s *FileSource) WatchPath() string {
	return s.Path
}

func (s *FileSource) String() string {
	return "file:" + s.Path
}

// Downloader fetches a remote document.
type Downloader interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.FetchResult, error)
}

// RemoteSource downloads the catalog over HTTP. Successful downloads are kept
// in Cache, and the cached copy is used when the remote is unavailable.
type RemoteSource struct {
	URL        string
	Downloader Downloader
	Cache      storage.ContentStorage
	Logger     *logrus.Entry
}

func NewRemoteSource(rawURL string, d Downloader, cache storage.ContentStorage, logger *logrus.Entry) *RemoteSource {
	if logger == nil {
		logger = logrus.WithField("component", "catalog")
	}
	return &RemoteSource{URL: rawURL, Downloader: d, Cache: cache, Logger: logger}
}

func (s *RemoteSource) Load(ctx context.Context) (*Catalog, error) {
	res, err := s.Downloader.Fetch(ctx, s.URL)
	switch {
	case err != nil && s.Cache != nil:
		cached, cacheErr := s.Cache.Get(s.URL)
		if cacheErr != nil {
			return nil, fmt.Errorf("failed to fetch catalog: %w", err)
		}
		s.Logger.WithError(err).WithField("fetched_at", cached.FetchedAt).Warn("Catalog fetch failed, using cached copy")
		res = cached
	case err != nil:
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	case s.Cache != nil:
		if saveErr := s.Cache.Save(res); saveErr != nil {
			s.Logger.WithError(saveErr).Warn("Failed to cache catalog")
		}
	}

	format, err := s.format(res)
	if err != nil {
		return nil, err
	}
	return Parse(bytes.NewReader(res.Body), format)
}

// format prefers the URL extension and falls back to the Content-Type.
func (s *RemoteSource) format(res *fetcher.FetchResult) (Format, error) {
	if u, err := url.Parse(res.URL); err == nil {
		if format, err := FormatFromPath(u.Path); err == nil {
			return format, nil
		}
	}
	return FormatFromContentType(res.ContentType)
}

func (s *RemoteSource) String() string {
	return "url:" + s.URL
}
