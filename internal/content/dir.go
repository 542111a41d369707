package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dgallion1/pagedeco/internal/page"
	"github.com/dgallion1/pagedeco/internal/parser"
	"github.com/fsnotify/fsnotify"
)

// extensions are tried in this order when a path names no file directly.
var extensions = []string{".html", ".md", ".docx", ".txt"}

// DirSource serves pages authored as files under a root directory. The path
// /a/b resolves to a/b.html, a/b.md, a/b.docx, a/b.txt, then the same names
// under a/b/index. While watching, file contents are cached and invalidated
// on change.
type DirSource struct {
	root string
	log  *slog.Logger

	mu       sync.RWMutex
	cache    map[string][]byte
	watching bool
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewDirSource creates a source rooted at dir.
func NewDirSource(dir string, log *slog.Logger) (*DirSource, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve content dir: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("content dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content dir %s is not a directory", root)
	}
	if log == nil {
		log = slog.Default()
	}
	return &DirSource{root: root, log: log, cache: make(map[string][]byte)}, nil
}

// Load parses the file that path resolves to.
func (s *DirSource) Load(_ context.Context, urlPath string) (*page.Page, error) {
	file, err := s.resolve(urlPath)
	if err != nil {
		return nil, err
	}
	data, err := s.read(file)
	if err != nil {
		return nil, err
	}
	p, err := parser.ForFile(file)
	if err != nil {
		return nil, err
	}
	pg, err := p.Parse(bytes.NewReader(data), filepath.Base(file))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", urlPath, err)
	}
	return pg, nil
}

func (s *DirSource) resolve(urlPath string) (string, error) {
	rel := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if rel == "" {
		rel = "index"
	}

	var candidates []string
	if parser.IsSupportedExtension(rel) {
		candidates = append(candidates, rel)
	}
	for _, ext := range extensions {
		candidates = append(candidates, rel+ext)
	}
	for _, ext := range extensions {
		candidates = append(candidates, path.Join(rel, "index"+ext))
	}

	for _, c := range candidates {
		file := filepath.Join(s.root, filepath.FromSlash(c))
		if info, err := os.Stat(file); err == nil && info.Mode().IsRegular() {
			return file, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, urlPath)
}

func (s *DirSource) read(file string) ([]byte, error) {
	s.mu.RLock()
	data, ok := s.cache[file]
	watching := s.watching
	s.mu.RUnlock()
	if ok {
		return data, nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, file)
		}
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	if watching {
		s.mu.Lock()
		s.cache[file] = data
		s.mu.Unlock()
	}
	return data, nil
}

// Cached reports how many files are cached.
func (s *DirSource) Cached() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

// Watch starts caching file contents and watching the directory tree so
// that changed files are re-read. It stops when ctx is done or Close is
// called.
func (s *DirSource) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	err = filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(p)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return fmt.Errorf("watch content dir: %w", err)
	}

	s.mu.Lock()
	s.watcher = watcher
	s.watching = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	s.log.Info("watching content", "dir", s.root)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.watchLoop(ctx, watcher, stopCh)
	}()
	return nil
}

func (s *DirSource) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, stopCh chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						s.log.Warn("failed to watch directory", "dir", event.Name, "error", err)
					}
				}
			}
			s.invalidate(event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.Error("content watcher error", "error", err)
		}
	}
}

// invalidate drops name, and anything below it, from the cache.
func (s *DirSource) invalidate(name string) {
	prefix := name + string(filepath.Separator)
	s.mu.Lock()
	defer s.mu.Unlock()
	for file := range s.cache {
		if file == name || strings.HasPrefix(file, prefix) {
			delete(s.cache, file)
			s.log.Debug("content changed", "file", file)
		}
	}
}

// Close stops watching and drops the cache.
func (s *DirSource) Close() error {
	s.mu.Lock()
	watcher := s.watcher
	stopCh := s.stopCh
	s.watcher = nil
	s.stopCh = nil
	s.watching = false
	s.cache = make(map[string][]byte)
	s.mu.Unlock()

	if watcher == nil {
		return nil
	}
	close(stopCh)
	err := watcher.Close()
	s.wg.Wait()
	return err
}
