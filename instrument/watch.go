package instrument

import (
	"context"
	"path/filepath"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// Watcher recompiles an instruments file whenever it changes. Editors tend
// to write a file in several steps, so events are coalesced until the file
// has been quiet for the debounce period.
type Watcher struct {
	path     string
	debounce time.Duration
	fs       *fsnotify.Watcher
	logger   *log.Logger
}

func NewWatcher(ctx context.Context, path string, debounce time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fault.Wrap(err, fmsg.With("start file watcher"))
	}
	// the directory, not the file: atomic saves replace the inode
	if err := fs.Add(filepath.Dir(abs)); err != nil {
		fs.Close()
		return nil, fault.Wrap(err, fmsg.With("watch "+filepath.Dir(abs)))
	}
	return &Watcher{
		path:     abs,
		debounce: debounce,
		fs:       fs,
		logger:   log.FromContext(ctx).WithPrefix("watch"),
	}, nil
}

// Run delivers a freshly compiled table after each burst of changes until
// ctx is done. Compile errors are passed along with the partial table.
func (w *Watcher) Run(ctx context.Context, deliver func(*Table, error)) error {
	defer w.fs.Close()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("change", "op", ev.Op.String())
			if pending && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(w.debounce)
			pending = true

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch", "err", err)

		case <-timer.C:
			pending = false
			t, err := Load(ctx, w.path)
			if t == nil {
				w.logger.Error("reload failed", "err", err)
				deliver(nil, err)
				continue
			}
			if err != nil {
				w.logger.Warn("reloaded with errors", "loaded", t.Loaded(), "of", t.Len(), "err", err)
			} else {
				w.logger.Info("reloaded", "instruments", t.Len())
			}
			deliver(t, err)
		}
	}
}
