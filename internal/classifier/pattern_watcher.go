package classifier

import (
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// PatternWatcher reloads a Classifier's pattern set whenever its
// backing yaml file changes on disk, so pattern tuning takes effect
// without a restart.
type PatternWatcher struct {
	watcher    *fsnotify.Watcher
	classifier *Classifier
	path       string
}

// WatchPatternsFile starts watching path for changes and reloads
// classifier's pattern set on every write. The watcher's own goroutine
// owns the fsnotify channels; call Close to stop it.
func WatchPatternsFile(classifier *Classifier, path string) (*PatternWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	pw := &PatternWatcher{
		watcher:    watcher,
		classifier: classifier,
		path:       path,
	}

	go pw.watchLoop()
	return pw, nil
}

func (pw *PatternWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-pw.watcher.Events:
			if !ok {
				return
			}
			pw.handleEvent(event)

		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("pattern watcher error: %v", err)
		}
	}
}

func (pw *PatternWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(pw.path) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	set, err := LoadPatternsFile(pw.path)
	if err != nil {
		log.Printf("pattern reload failed for %s: %v", pw.path, err)
		return
	}
	pw.classifier.SetPatterns(set)
}

// Close stops the watcher.
func (pw *PatternWatcher) Close() error {
	return pw.watcher.Close()
}
