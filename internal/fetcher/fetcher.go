package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
)

var (
	// ErrDisallowedByRobots is returned when robots.txt forbids fetching a URL.
	ErrDisallowedByRobots = errors.New("disallowed by robots.txt")

	// ErrBodyTooLarge is returned when a response exceeds Options.MaxBodyBytes.
	ErrBodyTooLarge = errors.New("response body too large")
)

// defaultMaxBodySize caps the catalog download when Options leaves it unset.
const defaultMaxBodySize = 64 << 20

// FetchResult contains a downloaded catalog document
type FetchResult struct {
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
	Body        []byte    `json:"body"`
	StatusCode  int       `json:"status_code"`
	FetchedAt   time.Time `json:"fetched_at"`
}

type Options struct {
	Timeout       time.Duration
	UserAgent     string
	RespectRobots bool
	RobotsTTL     time.Duration
	MaxBodyBytes  int64
}

type Fetcher struct {
	client *http.Client
	opts   Options
	logger *logrus.Entry

	mu          sync.RWMutex
	robotsCache map[string]*robotsEntry
}

type robotsEntry struct {
	robots    *robotstxt.RobotsData
	fetchTime time.Time
}

func NewFetcher(opts Options, logger *logrus.Entry) *Fetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = "AssessmentRecommender/1.0"
	}
	if opts.RobotsTTL == 0 {
		opts.RobotsTTL = 24 * time.Hour
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodySize
	}
	if logger == nil {
		logger = logrus.WithField("component", "fetcher")
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:        opts,
		logger:      logger,
		robotsCache: make(map[string]*robotsEntry),
	}
}

// Fetch downloads rawURL. A non-200 response returns the result together with
// an error.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid URL %q", rawURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}

	if f.opts.RespectRobots && !f.isAllowed(ctx, parsed) {
		return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowedByRobots)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	result := &FetchResult{
		URL:         rawURL,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
		FetchedAt:   time.Now().UTC(),
	}

	if resp.StatusCode != http.StatusOK {
		return result, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	// One byte past the cap tells a full body apart from a truncated one.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(body)) > f.opts.MaxBodyBytes {
		return nil, fmt.Errorf("%s: %w (limit %d bytes)", rawURL, ErrBodyTooLarge, f.opts.MaxBodyBytes)
	}
	result.Body = body

	return result, nil
}

// isAllowed consults robots.txt for the URL's host. Failing to fetch robots.txt
// allows the request.
func (f *Fetcher) isAllowed(ctx context.Context, u *url.URL) bool {
	robots, err := f.robotsFor(ctx, u)
	if err != nil {
		f.logger.WithError(err).WithField("host", u.Host).Warn("Failed to get robots.txt, allowing request")
		return true
	}
	if robots == nil {
		return true
	}
	group := robots.FindGroup(f.opts.UserAgent)
	if group == nil {
		return true
	}
	return group.Test(u.EscapedPath())
}

func (f *Fetcher) robotsFor(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	key := u.Scheme + "://" + u.Host

	f.mu.RLock()
	entry, exists := f.robotsCache[key]
	f.mu.RUnlock()
	if exists && time.Since(entry.fetchTime) < f.opts.RobotsTTL {
		return entry.robots, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, key+"/robots.txt", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create robots.txt request: %w", err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	var robots *robotstxt.RobotsData
	if resp.StatusCode == http.StatusOK {
		robots, err = robotstxt.FromResponse(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to parse robots.txt: %w", err)
		}
	}

	// Cache the result (even if nil for 404s)
	f.mu.Lock()
	f.robotsCache[key] = &robotsEntry{robots: robots, fetchTime: time.Now()}
	f.mu.Unlock()

	return robots, nil
}
