// Package profile caches the JSON-LD context documents (profiles) the server
// renders with.
//
// Profiles are downloaded once, written to the profile folder and listed in a
// toml registry next to them. A background sweeper refreshes entries older
// than the configured validity. Failed downloads back off exponentially; an
// expired file is kept when JsonLdKeepExpiredProfiles is set and purged
// otherwise.
//
// The cache serves the documents to json-gold through DocumentLoader, so
// contexts named in payloads and in Accept profiles never hit the network
// twice.
//
// # Usage
//
//	cache, err := profile.New(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	cache.Start(ctx)
//	defer cache.Stop(5 * time.Second)
//	if err := cache.BlockUntilInitialized(ctx); err != nil {
//	    return err
//	}
package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"

	"github.com/geoknoesis/wap-go/internal/config"
)

const (
	// DefaultMaxBytes caps the size of a downloaded profile.
	DefaultMaxBytes = 1 << 20
	// DownloadTimeout bounds a single profile download.
	DownloadTimeout = 5 * time.Second
	// MaxSweepInterval is the longest sleep between two update passes.
	MaxSweepInterval = 30 * time.Second

	backoffBase     = 5 * time.Minute
	backoffMaxShift = 8
)

var (
	errTooLarge      = errors.New("profile exceeds size limit")
	errTooManyHops   = errors.New("profile redirected more than once")
	errNotPermanent  = errors.New("profile redirect is not permanent")
	errNotHTTPScheme = errors.New("profile URL is not http or https")
)

// Option customizes a Cache.
type Option func(*Cache)

// WithHTTPClient sets the client used for downloads. Its redirect policy is
// replaced by the single permanent hop policy.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Cache) { c.client = client }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithMaxBytes sets the download size limit.
func WithMaxBytes(n int64) Option {
	return func(c *Cache) { c.maxBytes = n }
}

// Cache is the profile cache engine. All state changes happen under mu; the
// registry file is additionally guarded by an flock lock so that CLI
// invocations and the server do not interleave writes.
type Cache struct {
	folder       string
	registryPath string
	frameFolder  string
	validity     time.Duration
	keepExpired  bool

	client   *http.Client
	now      func() time.Time
	maxBytes int64
	log      *logrus.Entry
	lock     *flock.Flock

	mu      sync.Mutex
	entries map[string]*Entry
	docs    map[string][]byte // entry URL -> document
	bundle  map[string][]byte // entry URL and its scheme complement -> document

	initOnce    sync.Once
	initialized chan struct{}
	stopOnce    sync.Once
	stop        chan struct{}
	done        chan struct{}
}

// New loads the registry described by cfg. The sweeper is not started.
func New(cfg *config.Config, logger *logrus.Logger, opts ...Option) (*Cache, error) {
	c := &Cache{
		folder:       cfg.JSONLDProfileFolder,
		registryPath: cfg.JSONLDProfileFile,
		frameFolder:  cfg.JSONLDFrameFolder,
		validity:     cfg.JSONLDCacheValidity,
		keepExpired:  cfg.JSONLDKeepExpiredProfiles,
		client:       &http.Client{},
		now:          time.Now,
		maxBytes:     DefaultMaxBytes,
		log:          logger.WithField("component", "profile"),
		entries:      make(map[string]*Entry),
		docs:         make(map[string][]byte),
		initialized:  make(chan struct{}),
		stop:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	client := *c.client
	client.Timeout = DownloadTimeout
	client.CheckRedirect = permanentSingleHop
	c.client = &client

	if err := os.MkdirAll(c.folder, 0o755); err != nil {
		return nil, fmt.Errorf("create profile folder: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.registryPath), 0o755); err != nil {
		return nil, fmt.Errorf("create registry folder: %w", err)
	}
	c.lock = flock.New(c.registryPath + ".lock")

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadRegistry(); err != nil {
		return nil, err
	}
	c.rebuildBundle()
	return c, nil
}

// Start launches the sweeper. The first pass runs immediately and fires the
// initialization signal when it finishes.
func (c *Cache) Start(ctx context.Context) {
	c.mu.Lock()
	if c.done != nil {
		c.mu.Unlock()
		return
	}
	c.done = make(chan struct{})
	c.mu.Unlock()

	go c.run(ctx)
}

func (c *Cache) run(ctx context.Context) {
	defer close(c.done)
	for {
		if err := c.Refresh(ctx); err != nil {
			c.log.WithError(err).Warn("profile update pass failed")
		}
		c.initOnce.Do(func() { close(c.initialized) })

		timer := time.NewTimer(c.sweepInterval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-c.stop:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (c *Cache) sweepInterval() time.Duration {
	if c.validity > 0 && c.validity < MaxSweepInterval {
		return c.validity
	}
	return MaxSweepInterval
}

// BlockUntilInitialized waits until the first update pass has completed.
func (c *Cache) BlockUntilInitialized(ctx context.Context) error {
	select {
	case <-c.initialized:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop interrupts the sweeper and waits up to timeout for it to exit. A
// sweeper that does not exit in time is logged and abandoned.
func (c *Cache) Stop(timeout time.Duration) {
	c.stopOnce.Do(func() { close(c.stop) })

	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return
	}
	select {
	case <-done:
		c.log.Debug("profile sweeper stopped")
	case <-time.After(timeout):
		c.log.WithField("timeout", timeout).Warn("profile sweeper did not stop in time")
	}
}

// Refresh runs one update pass over every registered profile.
func (c *Cache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	changed := false
	for _, e := range c.sortedEntries() {
		if e.Cached && now.Sub(e.LastSuccess) < c.validity {
			continue
		}
		if e.Failures > 0 && now.Sub(e.LastFailure) < backoff(e.Failures) {
			c.log.WithFields(logrus.Fields{"url": e.URL, "failures": e.Failures}).Debug("profile in backoff")
			continue
		}
		changed = true

		data, err := c.download(ctx, e.URL)
		if err == nil {
			err = writeFileAtomic(c.filePath(e.File), data)
		}
		if err == nil {
			e.Failures = 0
			e.LastSuccess = now
			e.Cached = true
			c.docs[e.URL] = data
			c.log.WithField("url", e.URL).Info("profile refreshed")
			continue
		}

		e.Failures++
		e.LastFailure = now
		log := c.log.WithError(err).WithFields(logrus.Fields{"url": e.URL, "failures": e.Failures})
		if e.Cached && c.keepExpired {
			log.Warn("profile download failed, serving expired copy")
			continue
		}
		if !e.Cached {
			log.Warn("profile download failed, retrying after backoff")
			continue
		}
		// the entry stays registered so the next sweep retries it
		log.Warn("profile download failed, dropping expired copy")
		e.Cached = false
		delete(c.docs, e.URL)
		if err := os.Remove(c.filePath(e.File)); err != nil && !errors.Is(err, os.ErrNotExist) {
			c.log.WithError(err).WithField("file", e.File).Warn("cannot remove profile file")
		}
	}
	if !changed {
		return nil
	}
	c.rebuildBundle()
	return c.saveRegistry()
}

// backoff returns how long a profile that failed k consecutive times is
// left alone: 5 minutes doubled per failure, capped at 2^8.
func backoff(k int) time.Duration {
	if k > backoffMaxShift {
		k = backoffMaxShift
	}
	return backoffBase << uint(k)
}

// CacheProfile makes u available, downloading it if neither u nor its
// http/https complement is cached. https is tried before http. It reports
// whether the profile can be served.
func (c *Cache) CacheProfile(ctx context.Context, u string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cachedLocked(u) {
		return true
	}
	rest, ok := strings.CutPrefix(u, "https://")
	if !ok {
		rest, ok = strings.CutPrefix(u, "http://")
	}
	if !ok {
		return false
	}
	for _, candidate := range []string{"https://" + rest, "http://" + rest} {
		data, err := c.download(ctx, candidate)
		if err != nil {
			c.log.WithError(err).WithField("url", candidate).Debug("profile not available")
			continue
		}
		e := &Entry{URL: candidate, File: fileName(candidate), LastSuccess: c.now(), Cached: true}
		if existing := c.entryByFile(e.File); existing != nil && existing.URL != candidate {
			e.File = fmt.Sprintf("%d_%s", len(c.entries), e.File)
		}
		if err := writeFileAtomic(c.filePath(e.File), data); err != nil {
			c.log.WithError(err).WithField("url", candidate).Warn("cannot store profile")
			return false
		}
		c.entries[candidate] = e
		c.docs[candidate] = data
		c.rebuildBundle()
		if err := c.saveRegistry(); err != nil {
			c.log.WithError(err).Warn("cannot save profile registry")
		}
		c.log.WithField("url", candidate).Info("profile cached")
		return true
	}
	return false
}

// IsCached reports whether u or its scheme complement is being served.
func (c *Cache) IsCached(u string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cachedLocked(u)
}

func (c *Cache) cachedLocked(u string) bool {
	_, ok := c.bundle[u]
	return ok
}

// Profiles returns a snapshot of the registry ordered by URL.
func (c *Cache) Profiles() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := c.sortedEntries()
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, *e)
	}
	return out
}

// document returns the cached bytes for u.
func (c *Cache) document(u string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.bundle[u]
	return data, ok
}

// rebuildBundle maps every cached URL and its complement to its document.
// Exact URLs win over complements.
func (c *Cache) rebuildBundle() {
	bundle := make(map[string][]byte, 2*len(c.docs))
	for u, data := range c.docs {
		if e, ok := c.entries[u]; !ok || !e.Cached {
			continue
		}
		if _, taken := bundle[complement(u)]; !taken {
			bundle[complement(u)] = data
		}
	}
	for u, data := range c.docs {
		if e, ok := c.entries[u]; ok && e.Cached {
			bundle[u] = data
		}
	}
	c.bundle = bundle
}

func (c *Cache) download(ctx context.Context, u string) ([]byte, error) {
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return nil, errNotHTTPScheme
	}
	ctx, cancel := context.WithTimeout(ctx, DownloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/ld+json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", u, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > c.maxBytes {
		return nil, errTooLarge
	}
	if err := validateDocument(data); err != nil {
		return nil, err
	}
	return data, nil
}

func permanentSingleHop(req *http.Request, via []*http.Request) error {
	if len(via) > 1 {
		return errTooManyHops
	}
	if req.Response != nil {
		switch req.Response.StatusCode {
		case http.StatusMovedPermanently, http.StatusPermanentRedirect:
			return nil
		}
	}
	return errNotPermanent
}

func validateDocument(data []byte) error {
	if !json.Valid(bytes.TrimSpace(data)) {
		return errors.New("profile is not a JSON document")
	}
	return nil
}
