package profile

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/geoknoesis/wap-go/internal/vocab"
)

// Entry is the persisted state of one cached profile.
type Entry struct {
	URL         string    `toml:"url"`
	LastSuccess time.Time `toml:"last_success"`
	LastFailure time.Time `toml:"last_failure"`
	Failures    int       `toml:"failures"`

	// File is the name of the cached document inside the profile folder.
	File string `toml:"-"`
	// Cached is set while a parsed copy of the document is being served.
	Cached bool `toml:"-"`
}

// registryFile is the on-disk layout: one table per cached file.
//
//	[profiles."anno.jsonld"]
//	url = "http://www.w3.org/ns/anno.jsonld"
type registryFile struct {
	Profiles map[string]Entry `toml:"profiles"`
}

var defaultProfiles = map[string]string{
	"anno.jsonld": vocab.AnnoContext,
	"ldp.jsonld":  vocab.LDPContext,
}

// loadRegistry reads the registry under the file lock and seeds the default
// profiles. A missing file yields the seeds only.
func (c *Cache) loadRegistry() error {
	if err := c.lock.Lock(); err != nil {
		return fmt.Errorf("lock profile registry: %w", err)
	}
	defer c.lock.Unlock()

	var reg registryFile
	data, err := os.ReadFile(c.registryPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("read profile registry: %w", err)
	default:
		if _, err := toml.Decode(string(data), &reg); err != nil {
			return fmt.Errorf("parse profile registry %s: %w", c.registryPath, err)
		}
	}

	for file, e := range reg.Profiles {
		e.File = file
		entry := e
		c.entries[e.URL] = &entry
	}
	for file, u := range defaultProfiles {
		if _, ok := c.entries[u]; !ok && c.entryByFile(file) == nil {
			c.entries[u] = &Entry{URL: u, File: file}
		}
	}
	for _, e := range c.entries {
		data, err := os.ReadFile(c.filePath(e.File))
		if err != nil {
			continue
		}
		if err := validateDocument(data); err != nil {
			c.log.WithError(err).WithField("file", e.File).Warn("ignoring unreadable cached profile")
			continue
		}
		c.docs[e.URL] = data
		e.Cached = true
	}
	return nil
}

// saveRegistry writes the registry atomically under the file lock.
func (c *Cache) saveRegistry() error {
	reg := registryFile{Profiles: make(map[string]Entry, len(c.entries))}
	for _, e := range c.entries {
		reg.Profiles[e.File] = *e
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(reg); err != nil {
		return fmt.Errorf("encode profile registry: %w", err)
	}

	if err := c.lock.Lock(); err != nil {
		return fmt.Errorf("lock profile registry: %w", err)
	}
	defer c.lock.Unlock()
	return writeFileAtomic(c.registryPath, buf.Bytes())
}

func (c *Cache) entryByFile(file string) *Entry {
	for _, e := range c.entries {
		if e.File == file {
			return e
		}
	}
	return nil
}

func (c *Cache) filePath(file string) string {
	return filepath.Join(c.folder, file)
}

// sortedEntries returns the entries ordered by URL.
func (c *Cache) sortedEntries() []*Entry {
	out := make([]*Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}

// fileName derives the cache file name from the URL path, with slashes
// replaced by underscores.
func fileName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || strings.Trim(u.Path, "/") == "" {
		return strings.NewReplacer("/", "_", ":", "_").Replace(rawURL)
	}
	return strings.ReplaceAll(strings.TrimPrefix(u.Path, "/"), "/", "_")
}

// complement swaps the http and https schemes of u.
func complement(u string) string {
	switch {
	case strings.HasPrefix(u, "https://"):
		return "http://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
