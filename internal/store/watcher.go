package store

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a snapshot file must stay quiet before a
// change is reported.
const DefaultSettle = 100 * time.Millisecond

// FileWatcher reports changes to one snapshot file. Hosts often write a
// snapshot in several chunks, so events are coalesced until the file has
// been quiet for the settle delay, then onChange runs once.
type FileWatcher struct {
	logger   *slog.Logger
	fsw      *fsnotify.Watcher
	path     string
	onChange func(path string)

	mu      sync.Mutex
	settle  time.Duration
	pending *time.Timer
	stop    chan struct{}
	started bool
	stopped bool
}

// NewFileWatcher creates a watcher for path. It does nothing until Start.
func NewFileWatcher(path string, onChange func(path string), logger *slog.Logger) (*FileWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &FileWatcher{
		logger:   logger.With("component", "snapshot-watcher"),
		fsw:      fsw,
		path:     path,
		onChange: onChange,
		settle:   DefaultSettle,
		stop:     make(chan struct{}),
	}, nil
}

// Path returns the watched file path.
func (fw *FileWatcher) Path() string {
	return fw.path
}

// SetSettle changes the quiet period. Zero reports every event.
func (fw *FileWatcher) SetSettle(d time.Duration) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.settle = max(d, 0)
}

// Start watches the file's directory, so that editors and hosts that
// replace the file by rename are still seen.
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.started || fw.stopped {
		return nil
	}
	if err := fw.fsw.Add(filepath.Dir(fw.path)); err != nil {
		return err
	}
	fw.started = true
	go fw.run()
	return nil
}

func (fw *FileWatcher) run() {
	name := filepath.Base(fw.path)
	for {
		select {
		case ev, ok := <-fw.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				fw.logger.Debug("snapshot file event", "file", fw.path, "op", ev.Op.String())
				fw.schedule()
			}
		case err, ok := <-fw.fsw.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("snapshot watcher error", "error", err)
		case <-fw.stop:
			return
		}
	}
}

// schedule (re)arms the settle timer.
func (fw *FileWatcher) schedule() {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.stopped {
		return
	}
	if fw.settle == 0 {
		go fw.fire()
		return
	}
	if fw.pending != nil {
		fw.pending.Reset(fw.settle)
		return
	}
	fw.pending = time.AfterFunc(fw.settle, fw.fire)
}

func (fw *FileWatcher) fire() {
	fw.mu.Lock()
	fw.pending = nil
	stopped := fw.stopped
	fw.mu.Unlock()

	if stopped || fw.onChange == nil {
		return
	}
	fw.onChange(fw.path)
}

// Stop ends watching and drops any pending change. Safe to call twice.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.stopped {
		return nil
	}
	fw.stopped = true
	if fw.pending != nil {
		fw.pending.Stop()
		fw.pending = nil
	}
	close(fw.stop)
	return fw.fsw.Close()
}
