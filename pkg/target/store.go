package target

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the target file name, matching the original's hjz-target.yaml.
const DefaultPath = "hjz-target.yaml"

// emptyTargetText is returned verbatim by GetTarget when no file exists yet.
const emptyTargetText = "# No orchestration target set\nprocesses: []\n"

// Store owns the on-disk representation of a Target: the raw accepted text
// (returned verbatim by GetTarget) and its parsed form. It optionally watches
// the file for external edits, hot-reloading a validated replacement the
// same way a supervisor's own config file would be hot-reloaded.
type Store struct {
	path     string
	secrets  Secrets
	logger   *zap.Logger
	mu       sync.RWMutex
	text     string
	parsed   Target
	watcher  *fsnotify.Watcher
	onChange chan struct{}
}

// Load reads the target file (or synthesizes the empty target if absent),
// applies secrets, validates, and returns a ready Store.
func Load(path string, secrets Secrets, logger *zap.Logger) (*Store, error) {
	s := &Store{
		path:     path,
		secrets:  secrets,
		logger:   logger,
		onChange: make(chan struct{}, 1),
	}

	text, parsed, err := s.readAndValidate()
	if err != nil {
		logger.Warn("ignoring stored target, as it is invalid", zap.Error(err))
		text, parsed = emptyTargetText, Empty()
	}
	s.text = text
	s.parsed = parsed
	return s, nil
}

// readAndValidate loads the file from disk, applies secrets, parses, and
// validates it, without mutating the Store.
func (s *Store) readAndValidate() (string, Target, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return emptyTargetText, Empty(), nil
		}
		return "", Target{}, fmt.Errorf("failed to read target file: %w", err)
	}
	text := string(raw)

	substituted, err := s.secrets.Apply(text)
	if err != nil {
		return "", Target{}, fmt.Errorf("failed to apply secrets: %w", err)
	}

	var parsed Target
	if err := yaml.Unmarshal([]byte(substituted), &parsed); err != nil {
		return "", Target{}, fmt.Errorf("failed to parse target yaml: %w", err)
	}
	if err := Validate(parsed); err != nil {
		return "", Target{}, fmt.Errorf("target validation failed: %w", err)
	}
	return text, parsed, nil
}

// Text returns the last-accepted raw target text, verbatim.
func (s *Store) Text() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.text
}

// Current returns the last-accepted parsed target.
func (s *Store) Current() Target {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.parsed
}

// Accept validates and persists the given raw target text as the new current
// target, returning whether anything actually changed relative to what was
// previously accepted. The caller must already hold whatever external lock
// synchronizes this with reconciliation, since changed/unchanged is meant to
// be observed atomically with the swap.
func (s *Store) Accept(text string) (changed bool, err error) {
	substituted, err := s.secrets.Apply(text)
	if err != nil {
		return false, fmt.Errorf("failed to apply secrets: %w", err)
	}

	var parsed Target
	if err := yaml.Unmarshal([]byte(substituted), &parsed); err != nil {
		return false, fmt.Errorf("failed to parse target yaml: %w", err)
	}
	if err := Validate(parsed); err != nil {
		return false, fmt.Errorf("target validation failed: %w", err)
	}

	if err := os.WriteFile(s.path, []byte(text), 0o644); err != nil {
		return false, fmt.Errorf("failed to persist target file: %w", err)
	}

	s.mu.Lock()
	changed = !s.parsed.Equal(parsed)
	s.text = text
	s.parsed = parsed
	s.mu.Unlock()

	return changed, nil
}

// Watch starts watching the target file for external edits. On a write
// event, the file is reloaded, validated, and swapped in if valid; invalid
// reloads are logged and the previous target is kept. Reload notifications
// are delivered on OnChange. reloadLock is held for the entire reload, so an
// externally-triggered reload linearizes against whatever other lock also
// guards target/process-state mutation (the supervisor's own lock) instead
// of racing a concurrent housekeeping pass.
func (s *Store) Watch(reloadLock sync.Locker) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(s.path); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch target file: %w", err)
	}
	s.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				reloadLock.Lock()
				s.reloadFromDisk()
				reloadLock.Unlock()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Error("target file watcher error", zap.Error(err))
			}
		}
	}()

	return nil
}

func (s *Store) reloadFromDisk() {
	text, parsed, err := s.readAndValidate()
	if err != nil {
		s.logger.Error("failed to reload target file, keeping previous target", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.text = text
	s.parsed = parsed
	s.mu.Unlock()

	s.logger.Info("target file reloaded from disk")
	select {
	case s.onChange <- struct{}{}:
	default:
	}
}

// OnChange signals whenever the on-disk file is reloaded (not when Accept is
// called directly through the control surface).
func (s *Store) OnChange() <-chan struct{} {
	return s.onChange
}

// Close stops the file watcher, if one was started.
func (s *Store) Close() {
	if s.watcher != nil {
		s.watcher.Close()
	}
}
