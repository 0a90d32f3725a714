// Package watch submits plan workbooks dropped into a directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is how long a file must stay quiet before it is submitted.
const DefaultDebounce = 500 * time.Millisecond

// SubmitFunc handles one settled workbook path.
type SubmitFunc func(ctx context.Context, path string) error

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the watcher logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(w *Watcher) { w.logger = logger }
}

// WithDebounce sets the quiet period before submission.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// Watcher debounces create and write events on .xlsx files in one directory.
type Watcher struct {
	dir      string
	submit   SubmitFunc
	logger   zerolog.Logger
	debounce time.Duration
	pending  map[string]time.Time
	fsw      *fsnotify.Watcher
}

// New starts watching dir. Run must be called to process events.
func New(dir string, submit SubmitFunc, opts ...Option) (*Watcher, error) {
	if submit == nil {
		return nil, errors.New("watch: submit func required")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	w := &Watcher{
		dir:      dir,
		submit:   submit,
		logger:   zerolog.Nop(),
		debounce: DefaultDebounce,
		pending:  make(map[string]time.Time),
		fsw:      fsw,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Workbook reports whether name looks like a submittable workbook. Office
// lock files and hidden files are skipped.
func Workbook(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, "~$") || strings.HasPrefix(base, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(base), ".xlsx")
}

// Run processes events until ctx is done, then closes the underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.fsw.Close() }()
	tick := w.debounce / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	w.logger.Info().Str("dir", w.dir).Msg("watching for workbooks")
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("watch error")
		case now := <-ticker.C:
			w.flush(ctx, now)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !Workbook(event.Name) {
		return
	}
	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		w.pending[event.Name] = time.Now()
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		delete(w.pending, event.Name)
	}
}

// flush submits every path that has been quiet for the debounce period, in
// name order.
func (w *Watcher) flush(ctx context.Context, now time.Time) {
	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.debounce {
			ready = append(ready, path)
		}
	}
	sort.Strings(ready)
	for _, path := range ready {
		delete(w.pending, path)
		start := time.Now()
		if err := w.submit(ctx, path); err != nil {
			w.logger.Error().Err(err).Str("file", path).Msg("submit workbook")
			continue
		}
		w.logger.Info().Str("file", path).Dur("elapsed", time.Since(start)).Msg("workbook submitted")
	}
}
