// Package prompt builds the system prompt and caches the operator's prompt file.
package prompt

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	. "github.com/roelfdiedericks/discordclaw/internal/logging"
)

// FileCache holds the contents of a single prompt file and reloads it when
// the file changes. It uses fsnotify for immediate invalidation and optional
// hash polling as a fallback for filesystems where events are unreliable.
type FileCache struct {
	mu           sync.RWMutex
	path         string
	content      string
	valid        bool
	contentHash  string
	watcher      *fsnotify.Watcher
	pollInterval time.Duration
	stopCh       chan struct{}
	closeOnce    sync.Once
}

// NewFileCache creates a cache for path. An empty path yields a cache that
// always returns "". pollInterval of 0 disables hash polling.
func NewFileCache(path string, pollInterval time.Duration) *FileCache {
	fc := &FileCache{
		path:         path,
		pollInterval: pollInterval,
		stopCh:       make(chan struct{}),
	}
	if path == "" {
		fc.valid = true
		return fc
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		L_warn("prompt: failed to create watcher, reloading on every request", "error", err)
		return fc
	}

	// Watch the directory so editors that replace the file via rename still trigger
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		L_warn("prompt: failed to watch prompt dir", "dir", dir, "error", err)
		watcher.Close()
		return fc
	}
	fc.watcher = watcher

	L_info("prompt: watching prompt file", "path", path, "pollInterval", pollInterval)

	go fc.watchLoop()
	if pollInterval > 0 {
		go fc.hashPoller()
	}
	return fc
}

// watchLoop handles fsnotify events
func (fc *FileCache) watchLoop() {
	for {
		select {
		case event, ok := <-fc.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(fc.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				L_debug("prompt: file changed, invalidating", "file", event.Name, "op", event.Op.String())
				fc.Invalidate()
			}
		case err, ok := <-fc.watcher.Errors:
			if !ok {
				return
			}
			L_warn("prompt: fsnotify error", "error", err)
		case <-fc.stopCh:
			return
		}
	}
}

// hashPoller periodically compares the file hash as a fallback
func (fc *FileCache) hashPoller() {
	ticker := time.NewTicker(fc.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if fc.hashChanged() {
				L_debug("prompt: file hash changed, invalidating", "file", fc.path)
				fc.Invalidate()
			}
		case <-fc.stopCh:
			return
		}
	}
}

func (fc *FileCache) hashChanged() bool {
	newHash := hashOf(fc.read())

	fc.mu.Lock()
	defer fc.mu.Unlock()
	changed := fc.contentHash != "" && newHash != fc.contentHash
	if changed {
		fc.contentHash = newHash
	}
	return changed
}

// read loads the file; a missing file is treated as empty
func (fc *FileCache) read() string {
	data, err := os.ReadFile(fc.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			L_warn("prompt: failed to read prompt file", "path", fc.path, "error", err)
		}
		return ""
	}
	return strings.TrimSpace(string(data))
}

func hashOf(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:8])
}

// Invalidate forces the next Content call to re-read the file
func (fc *FileCache) Invalidate() {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.path != "" {
		fc.valid = false
	}
}

// Content returns the cached file contents, reloading them if invalid
func (fc *FileCache) Content() string {
	fc.mu.RLock()
	if fc.valid {
		content := fc.content
		fc.mu.RUnlock()
		L_trace("prompt: cache hit")
		return content
	}
	fc.mu.RUnlock()

	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.valid {
		return fc.content
	}

	fc.content = fc.read()
	fc.contentHash = hashOf(fc.content)
	// Without a watcher every request re-reads the file
	fc.valid = fc.watcher != nil
	L_debug("prompt: loaded prompt file", "path", fc.path, "chars", len(fc.content))
	return fc.content
}

// IsValid reports whether the cached content is current
func (fc *FileCache) IsValid() bool {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return fc.valid
}

// Close stops the watcher and hash poller
func (fc *FileCache) Close() {
	fc.closeOnce.Do(func() {
		close(fc.stopCh)
		if fc.watcher != nil {
			fc.watcher.Close()
		}
	})
}
