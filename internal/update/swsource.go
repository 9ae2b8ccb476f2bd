package update

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"regexp"
	"sync"
)

// swVersionRegex matches version assignments inside a service worker script,
// e.g. `const VERSION = "1.4.0"` or `version: '2.0.1'`.
var swVersionRegex = regexp.MustCompile(`(?i)\bversion['"]?\s*[:=]\s*['"]([^'"]+)['"]`)

// FileWorkerSource is a WorkerSource backed by a service worker script on
// disk. A content change since the last check is reported as a waiting
// worker, which is what "update available" means during development.
type FileWorkerSource struct {
	path string

	mu      sync.Mutex
	lastSum string
	current *WorkerInfo
}

// NewFileWorkerSource watches the service worker script at path.
func NewFileWorkerSource(path string) *FileWorkerSource {
	return &FileWorkerSource{path: path}
}

// CheckForUpdates hashes the script and reports a waiting worker when the
// content changed since the previous check. The first check primes the hash
// and reports no update.
func (s *FileWorkerSource) CheckForUpdates() (*WorkerInfo, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read worker script: %w", err)
	}

	raw := sha256.Sum256(content)
	sum := hex.EncodeToString(raw[:])
	version := scriptVersion(content, sum)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastSum == "" {
		s.lastSum = sum
		s.current = &WorkerInfo{
			ScriptURL: "/sw.js?v=" + version,
			State:     "activated",
		}
		return nil, nil
	}
	if sum == s.lastSum {
		return nil, nil
	}

	s.lastSum = sum
	s.current = &WorkerInfo{
		ScriptURL: "/sw.js?v=" + version,
		State:     "waiting",
	}
	info := *s.current
	return &info, nil
}

// WorkerInfo returns the most recently seen worker, or nil before the first
// check.
func (s *FileWorkerSource) WorkerInfo() (*WorkerInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, nil
	}
	info := *s.current
	return &info, nil
}

// SkipWaiting marks the waiting worker as activated.
func (s *FileWorkerSource) SkipWaiting() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.State = "activated"
	}
	return nil
}

// ClearCaches is a no-op: the dev server keeps no worker caches.
func (s *FileWorkerSource) ClearCaches() error {
	return nil
}

// scriptVersion extracts a version marker from the worker script, falling
// back to a content hash prefix so version-less scripts still get distinct
// identifiers.
func scriptVersion(content []byte, sum string) string {
	if m := swVersionRegex.FindSubmatch(content); m != nil {
		return string(m[1])
	}
	return sum[:8]
}
