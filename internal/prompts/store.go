package prompts

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/meridianlab/listingintel/internal/metrics"
)

// Store is the read-only prompt catalogue for the pipeline. The built-in
// prompt set is registered once at process start; a YAML directory may
// layer additional or overriding templates on top, with optional hot
// reload. Entries handed out are never mutated.
type Store struct {
	mu        sync.RWMutex
	templates map[string]*Template

	logger *zap.Logger
}

// NewStore constructs a store pre-populated with the built-in prompt set.
func NewStore(logger *zap.Logger) *Store {
	s := &Store{
		templates: make(map[string]*Template),
		logger:    logger,
	}
	for _, t := range builtinTemplates() {
		// Built-ins are authored in this package; a validation failure
		// here is a programming error.
		if err := t.Validate(); err != nil {
			panic(fmt.Sprintf("built-in template invalid: %v", err))
		}
		s.templates[t.Name] = t
	}
	metrics.TemplatesLoaded.WithLabelValues("builtin").Add(float64(len(s.templates)))
	return s
}

// Get returns the template registered under name. Unknown names are
// configuration/programming errors and surface as errors rather than
// degraded results.
func (s *Store) Get(name string) (*Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[name]
	if !ok {
		return nil, fmt.Errorf("unknown prompt template %q", name)
	}
	return t, nil
}

// List returns the names of all registered templates, unordered.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.templates))
	for name := range s.templates {
		names = append(names, name)
	}
	return names
}

// LoadDirectory loads every YAML template file under root into the store,
// replacing same-named entries. Individual file failures are collected so
// one bad file does not block the rest.
func (s *Store) LoadDirectory(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("stat template directory %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("template path %s is not a directory", root)
	}

	var failures []string
	walkFn := func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", path, walkErr))
			return nil
		}
		if d.IsDir() || !isYAML(path) {
			return nil
		}
		if err := s.loadFile(path); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", path, err))
		}
		return nil
	}
	if err := filepath.WalkDir(root, walkFn); err != nil {
		return fmt.Errorf("walk template directory %s: %w", root, err)
	}
	if len(failures) > 0 {
		return &LoadError{Failures: failures}
	}
	return nil
}

func (s *Store) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		metrics.TemplateErrors.WithLabelValues("decode").Inc()
		return fmt.Errorf("decode yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		metrics.TemplateErrors.WithLabelValues("validate").Inc()
		return err
	}

	s.mu.Lock()
	s.templates[t.Name] = &t
	s.mu.Unlock()

	metrics.TemplatesLoaded.WithLabelValues("file").Inc()
	return nil
}

// Watch reloads templates when files under root change, until stop is
// closed. Reload failures are logged and the previous entries stay live.
func (s *Store) Watch(root string, stop <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create template watcher: %w", err)
	}
	if err := watcher.Add(root); err != nil {
		watcher.Close()
		return fmt.Errorf("watch template directory %s: %w", root, err)
	}

	go func() {
		defer watcher.Close()
		// Debounce bursts from editors that write-then-rename.
		var pending *time.Timer
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if pending != nil {
					pending.Stop()
				}
				pending = time.AfterFunc(200*time.Millisecond, func() {
					if err := s.LoadDirectory(root); err != nil {
						s.logger.Warn("Template reload failed",
							zap.String("dir", root),
							zap.Error(err),
						)
						return
					}
					s.logger.Info("Templates reloaded", zap.String("dir", root))
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("Template watcher error", zap.Error(err))
			case <-stop:
				return
			}
		}
	}()
	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// LoadError aggregates per-file template load failures.
type LoadError struct {
	Failures []string
}

func (e *LoadError) Error() string {
	if len(e.Failures) == 0 {
		return "template load failed"
	}
	return fmt.Sprintf("%d template(s) failed to load: %s", len(e.Failures), strings.Join(e.Failures, "; "))
}

// IsLoadError reports whether err is an aggregated template load failure.
func IsLoadError(err error) bool {
	_, ok := err.(*LoadError)
	return ok
}
