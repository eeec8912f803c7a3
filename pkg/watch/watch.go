// Package watch monitors a channel bundle for edits, batching rapid file
// system events so validate --watch re-lints once per save burst instead of
// once per write.
package watch

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/channelkit/channelkit/pkg/channel"
	"github.com/channelkit/channelkit/pkg/errors"
)

// ChangeEvent is a debounced batch of file system changes.
type ChangeEvent struct {
	// Paths are the changed files, deduplicated, in first-seen order.
	Paths []string
	// Timestamp is when the batch flushed.
	Timestamp time.Time
}

// Options configures a Watcher.
type Options struct {
	// QuietPeriod is how long the bundle must stay still before a batch
	// flushes. Defaults to 250ms.
	QuietPeriod time.Duration
	// MaxWait bounds how long a continuously-edited bundle can defer a
	// flush. Defaults to 2s.
	MaxWait time.Duration
}

// Watcher watches a channel bundle's manifest, graphs/, and nodes/ for
// changes.
type Watcher struct {
	fsw    *fsnotify.Watcher
	dir    string
	opts   Options
	events chan ChangeEvent
}

// New creates a watcher for the bundle rooted at dir. The bundle's
// manifest, graphs/, and nodes/ directories are registered; Start begins
// delivery.
func New(dir string, opts Options) (*Watcher, error) {
	if opts.QuietPeriod <= 0 {
		opts.QuietPeriod = 250 * time.Millisecond
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = 2 * time.Second
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create file watcher")
	}

	w := &Watcher{
		fsw:    fsw,
		dir:    dir,
		opts:   opts,
		events: make(chan ChangeEvent, 10),
	}

	// Watching the bundle root covers channel.yml; the two content
	// directories are watched directly so edits inside them surface.
	for _, p := range []string{dir, filepath.Join(dir, channel.GraphsDir), filepath.Join(dir, channel.NodesDir)} {
		if err := fsw.Add(p); err != nil {
			fsw.Close()
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "watch %s", p)
		}
	}
	return w, nil
}

// Events returns the channel of debounced change batches. It is closed
// when the context passed to Start is cancelled.
func (w *Watcher) Events() <-chan ChangeEvent {
	return w.events
}

// Start begins processing events until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *Watcher) run(ctx context.Context) {
	defer w.fsw.Close()
	defer close(w.events)

	var (
		pending []string
		seen    = map[string]bool{}
		quiet   *time.Timer
		maxWait *time.Timer
	)
	timerC := func(t *time.Timer) <-chan time.Time {
		if t == nil {
			return nil
		}
		return t.C
	}

	flush := func() {
		if len(pending) == 0 {
			return
		}
		w.events <- ChangeEvent{Paths: pending, Timestamp: time.Now()}
		pending = nil
		seen = map[string]bool{}
		if quiet != nil {
			quiet.Stop()
			quiet = nil
		}
		if maxWait != nil {
			maxWait.Stop()
			maxWait = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				flush()
				return
			}
			if !relevant(event) {
				continue
			}
			if !seen[event.Name] {
				seen[event.Name] = true
				pending = append(pending, event.Name)
			}
			if quiet == nil {
				quiet = time.NewTimer(w.opts.QuietPeriod)
			} else {
				quiet.Reset(w.opts.QuietPeriod)
			}
			if maxWait == nil {
				maxWait = time.NewTimer(w.opts.MaxWait)
			}

		case <-timerC(quiet):
			flush()

		case <-timerC(maxWait):
			flush()

		case _, ok := <-w.fsw.Errors:
			if !ok {
				flush()
				return
			}
			// Watch errors are transient; the next event batch still
			// triggers a full re-lint.
		}
	}
}

// relevant filters events down to bundle content: YAML files, the
// manifest, and anything under graphs/ or nodes/. Editor temp files with
// other extensions are ignored.
func relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(event.Name)
	if base == channel.ManifestFile {
		return true
	}
	ext := strings.ToLower(filepath.Ext(base))
	return ext == ".yaml" || ext == ".yml"
}
