// Package watcher watches a source file and a language definition directory,
// debouncing bursts of events into single change notifications.
package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zjrosen/shine/internal/log"
)

// Change reports what changed since the last notification.
type Change struct {
	// Source is set when the watched file was written or recreated.
	Source bool
	// Languages is set when a definition in the languages directory changed.
	Languages bool
}

// Config holds watcher configuration options.
type Config struct {
	// File is the source file to watch. Its directory is watched so editors
	// that replace the file on save are still seen.
	File string

	// LanguagesDir is watched for *.yaml / *.yml changes. Optional; a
	// missing directory is skipped.
	LanguagesDir string

	DebounceDur time.Duration
}

// DefaultConfig returns defaults for watching file.
func DefaultConfig(file, languagesDir string) Config {
	return Config{
		File:         file,
		LanguagesDir: languagesDir,
		DebounceDur:  200 * time.Millisecond,
	}
}

// Watcher monitors files and sends debounced Change notifications.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	file      string
	langDir   string
	debounce  time.Duration
	onChange  chan Change
	done      chan struct{}
}

// New creates a watcher. Start must be called to begin watching.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	w := &Watcher{
		fsWatcher: fsw,
		debounce:  cfg.DebounceDur,
		onChange:  make(chan Change, 1),
		done:      make(chan struct{}),
	}
	if cfg.File != "" {
		w.file = filepath.Clean(cfg.File)
	}
	if cfg.LanguagesDir != "" {
		w.langDir = filepath.Clean(cfg.LanguagesDir)
	}
	return w, nil
}

// Start begins watching and returns the notification channel.
func (w *Watcher) Start() (<-chan Change, error) {
	if w.file != "" {
		dir := filepath.Dir(w.file)
		if err := w.fsWatcher.Add(dir); err != nil {
			return nil, fmt.Errorf("watching directory %s: %w", dir, err)
		}
	}

	if w.langDir != "" {
		if info, err := os.Stat(w.langDir); err == nil && info.IsDir() {
			if err := w.fsWatcher.Add(w.langDir); err != nil {
				return nil, fmt.Errorf("watching directory %s: %w", w.langDir, err)
			}
		} else {
			log.Debug(log.CatWatcher, "languages directory not watched", "dir", w.langDir)
			w.langDir = ""
		}
	}

	go w.loop()
	return w.onChange, nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

func (w *Watcher) loop() {
	var (
		timer   *time.Timer
		pending Change
	)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			c := w.classify(event)
			if !c.Source && !c.Languages {
				continue
			}
			pending.Source = pending.Source || c.Source
			pending.Languages = pending.Languages || c.Languages

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-func() <-chan time.Time {
			if timer != nil {
				return timer.C
			}
			return nil
		}():
			if pending.Source || pending.Languages {
				log.Debug(log.CatWatcher, "change detected", "source", pending.Source, "languages", pending.Languages)
				// Merge with an undelivered notification rather than drop it.
				select {
				case prev := <-w.onChange:
					pending.Source = pending.Source || prev.Source
					pending.Languages = pending.Languages || prev.Languages
				default:
				}
				w.onChange <- pending
				pending = Change{}
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.ErrorErr(log.CatWatcher, "watch error", err)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// classify maps an event to the Change it represents.
func (w *Watcher) classify(event fsnotify.Event) Change {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return Change{}
	}

	name := filepath.Clean(event.Name)
	var c Change
	if w.file != "" && name == w.file && event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
		c.Source = true
	}
	if w.langDir != "" && filepath.Dir(name) == w.langDir {
		ext := strings.ToLower(filepath.Ext(name))
		c.Languages = ext == ".yaml" || ext == ".yml"
	}
	return c
}
